package gpio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/hifi/internal/catalog"
	"github.com/llehouerou/hifi/internal/config"
	"github.com/llehouerou/hifi/internal/playback"
	"github.com/llehouerou/hifi/internal/player"
	"github.com/llehouerou/hifi/internal/queue"
	"github.com/llehouerou/hifi/internal/resolver"
	"github.com/llehouerou/hifi/internal/state"
)

type gpioFixture struct {
	ctrl   *Controller
	svc    playback.Service
	player *player.Mock
	root   string
}

func newGpioFixture(t *testing.T, cfg config.GpioConfig) *gpioFixture {
	t.Helper()

	cat := catalog.NewMock()
	cat.AddTrack(catalog.Track{ID: "t1", Duration: time.Minute})
	cat.AddTrack(catalog.Track{ID: "t2", Duration: time.Minute})
	store := state.NewMock()
	q := queue.New(store)
	require.NoError(t, q.Append(
		queue.Track{ID: "t1", Duration: time.Minute},
		queue.Track{ID: "t2", Duration: time.Minute},
	))
	p := player.NewMock()
	svc := playback.New(p, q, resolver.New(cat), store)

	root := t.TempDir()
	ctrl := New(svc, cfg)
	ctrl.sysfsRoot = root

	// Pre-create the pin files the way the kernel would after export.
	for _, b := range ctrl.buttons {
		dir := filepath.Join(root, fmt.Sprintf("gpio%d", b.pin))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "value"), []byte("1\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "direction"), []byte("in"), 0o644))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		svc.Close()
	})

	return &gpioFixture{ctrl: ctrl, svc: svc, player: p, root: root}
}

func (f *gpioFixture) setPin(t *testing.T, pin int, value string) {
	t.Helper()
	path := filepath.Join(f.root, fmt.Sprintf("gpio%d", pin), "value")
	require.NoError(t, os.WriteFile(path, []byte(value+"\n"), 0o644))
}

func TestButtonPress_FiresOnFallingEdge(t *testing.T) {
	f := newGpioFixture(t, config.GpioConfig{PlayPausePin: 17, PollMs: 5})

	f.setPin(t, 17, "0")

	// Toggle from idle starts playback: the backend gets a load.
	require.Eventually(t, func() bool {
		return len(f.player.Loads()) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestButtonHeld_FiresOnce(t *testing.T) {
	f := newGpioFixture(t, config.GpioConfig{PlayPausePin: 17, PollMs: 5})

	f.setPin(t, 17, "0")
	require.Eventually(t, func() bool {
		return len(f.player.Loads()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Held low across many polls: no repeats.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, f.player.Loads(), 1)
}

func TestVolumeButtons(t *testing.T) {
	f := newGpioFixture(t, config.GpioConfig{VolumeUpPin: 22, VolumeDownPin: 23, PollMs: 5})
	require.NoError(t, f.svc.SetVolume(0.5))

	near := func(want float64) func() bool {
		return func() bool {
			d := f.svc.Volume() - want
			return d > -1e-9 && d < 1e-9
		}
	}

	f.setPin(t, 23, "0")
	require.Eventually(t, near(0.45), 2*time.Second, 5*time.Millisecond)

	f.setPin(t, 22, "0")
	require.Eventually(t, near(0.5), 2*time.Second, 5*time.Millisecond)
}

func TestNoButtonsConfigured_RunReturns(t *testing.T) {
	svc := playback.New(player.NewMock(), queue.New(state.NewMock()),
		resolver.New(catalog.NewMock()), state.NewMock())
	defer svc.Close()

	ctrl := New(svc, config.GpioConfig{})
	assert.NoError(t, ctrl.Run(context.Background()))
}
