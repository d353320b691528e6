// Package gpio maps hardware buttons to playback commands through the
// sysfs GPIO interface, for headless boxes built around a Raspberry Pi.
package gpio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/llehouerou/hifi/internal/config"
	"github.com/llehouerou/hifi/internal/errmsg"
	"github.com/llehouerou/hifi/internal/playback"
)

const (
	defaultSysfsRoot = "/sys/class/gpio"

	// cooldown suppresses mechanical bounce and accidental double presses.
	cooldown = 250 * time.Millisecond

	volumeStep = 0.05
)

// Action identifies a button command.
type Action int

const (
	ActionPlayPause Action = iota
	ActionNext
	ActionPrevious
	ActionVolumeUp
	ActionVolumeDown
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionPlayPause:
		return "play-pause"
	case ActionNext:
		return "next"
	case ActionPrevious:
		return "previous"
	case ActionVolumeUp:
		return "volume-up"
	case ActionVolumeDown:
		return "volume-down"
	default:
		return "unknown"
	}
}

type button struct {
	pin       int
	action    Action
	lastValue byte
	lastFired time.Time
}

// Controller polls configured pins and fires playback commands on the
// falling edge (buttons wired active-low between pin and ground, with the
// internal pull-up).
type Controller struct {
	svc      playback.Service
	buttons  []*button
	interval time.Duration

	// sysfsRoot is swapped in tests for a temp directory.
	sysfsRoot string
}

func New(svc playback.Service, cfg config.GpioConfig) *Controller {
	c := &Controller{
		svc:       svc,
		interval:  time.Duration(cfg.PollMs) * time.Millisecond,
		sysfsRoot: defaultSysfsRoot,
	}
	if c.interval <= 0 {
		c.interval = 25 * time.Millisecond
	}

	add := func(pin int, action Action) {
		if pin > 0 {
			c.buttons = append(c.buttons, &button{pin: pin, action: action, lastValue: '1'})
		}
	}
	add(cfg.PlayPausePin, ActionPlayPause)
	add(cfg.NextPin, ActionNext)
	add(cfg.PreviousPin, ActionPrevious)
	add(cfg.VolumeUpPin, ActionVolumeUp)
	add(cfg.VolumeDownPin, ActionVolumeDown)
	return c
}

// Run exports the pins and polls them until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	if len(c.buttons) == 0 {
		return nil
	}
	for _, b := range c.buttons {
		if err := c.export(b.pin); err != nil {
			return fmt.Errorf("export pin %d: %w", b.pin, err)
		}
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := time.Now()
			for _, b := range c.buttons {
				c.poll(b, now)
			}
		}
	}
}

// export makes the pin readable through sysfs. Already-exported pins are
// fine; anything else is a real error.
func (c *Controller) export(pin int) error {
	valuePath := c.pinPath(pin, "value")
	if _, err := os.Stat(valuePath); err == nil {
		return nil
	}
	err := os.WriteFile(filepath.Join(c.sysfsRoot, "export"), fmt.Appendf(nil, "%d", pin), 0o200)
	if err != nil {
		return err
	}
	// The kernel needs a moment to create the pin directory.
	for i := 0; i < 10; i++ {
		if _, err := os.Stat(valuePath); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	return os.WriteFile(c.pinPath(pin, "direction"), []byte("in"), 0o644)
}

func (c *Controller) pinPath(pin int, file string) string {
	return filepath.Join(c.sysfsRoot, fmt.Sprintf("gpio%d", pin), file)
}

func (c *Controller) poll(b *button, now time.Time) {
	raw, err := os.ReadFile(c.pinPath(b.pin, "value"))
	if err != nil {
		return
	}
	v := byte('1')
	if s := strings.TrimSpace(string(raw)); s != "" {
		v = s[0]
	}

	// Falling edge: released (1) -> pressed (0).
	pressed := b.lastValue == '1' && v == '0'
	b.lastValue = v
	if !pressed || now.Sub(b.lastFired) < cooldown {
		return
	}
	b.lastFired = now
	c.fire(b.action)
}

func (c *Controller) fire(action Action) {
	var err error
	switch action {
	case ActionPlayPause:
		err = c.svc.Toggle()
	case ActionNext:
		err = c.svc.Next()
	case ActionPrevious:
		err = c.svc.Previous()
	case ActionVolumeUp:
		err = c.svc.SetVolume(c.svc.Volume() + volumeStep)
	case ActionVolumeDown:
		err = c.svc.SetVolume(c.svc.Volume() - volumeStep)
	}
	if err != nil {
		c.svc.Notify(playback.LevelWarning, errmsg.FormatWith(errmsg.OpGpioRead, action.String(), err))
	}
}
