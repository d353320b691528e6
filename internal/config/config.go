package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// Catalog service credentials and limits
	Catalog CatalogConfig `koanf:"catalog"`

	// Web front-end settings
	Web WebConfig `koanf:"web"`

	// RFID reader (enabled when a device path is configured)
	Rfid RfidConfig `koanf:"rfid"`

	// GPIO buttons (enabled when at least one pin is configured)
	Gpio GpioConfig `koanf:"gpio"`

	// Audio engine tuning
	Audio AudioConfig `koanf:"audio"`
}

// CatalogConfig holds streaming-catalog credentials and quality limits.
type CatalogConfig struct {
	BaseURL      string `koanf:"base_url"`
	AppID        string `koanf:"app_id"`
	AppSecret    string `koanf:"app_secret"`
	Username     string `koanf:"username"`
	PasswordHash string `koanf:"password_hash"` // md5 of the password, as the service expects
	MaxQuality   int    `koanf:"max_quality"`   // 5=mp3, 6=cd, 7=hires96, 27=hires192
}

// WebConfig holds web server settings.
type WebConfig struct {
	Enabled   *bool  `koanf:"enabled"`   // default: true
	Interface string `koanf:"interface"` // listen address, default "0.0.0.0:9888"
	Secret    string `koanf:"secret"`    // optional shared secret for command endpoints
}

// RfidConfig holds RFID reader settings.
type RfidConfig struct {
	Device     string `koanf:"device"`      // e.g. "/dev/ttyUSB0" or an evdev-backed line device
	DebounceMs int    `koanf:"debounce_ms"` // ignore same-tag rereads within this window
}

// GpioConfig maps sysfs pin numbers to player commands.
type GpioConfig struct {
	PlayPausePin  int `koanf:"play_pause_pin"`
	NextPin       int `koanf:"next_pin"`
	PreviousPin   int `koanf:"previous_pin"`
	VolumeUpPin   int `koanf:"volume_up_pin"`
	VolumeDownPin int `koanf:"volume_down_pin"`
	PollMs        int `koanf:"poll_ms"` // default: 25
}

// AudioConfig holds audio engine tuning.
type AudioConfig struct {
	BufferMs int `koanf:"buffer_ms"` // speaker buffer length, default: 100
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Normalize catalog URL (remove trailing slash)
	cfg.Catalog.BaseURL = strings.TrimSuffix(cfg.Catalog.BaseURL, "/")

	// Expand ~ in rfid device path
	if cfg.Rfid.Device != "" {
		cfg.Rfid.Device = expandPath(cfg.Rfid.Device)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/hifi/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "hifi", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// SetValue writes one key into the user config file, creating it if
// needed. Existing keys are preserved.
func SetValue(key string, value any) error {
	path, err := userConfigPath()
	if err != nil {
		return err
	}

	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return err
		}
	}
	if err := k.Set(key, value); err != nil {
		return err
	}

	out, err := toml.Parser().Marshal(k.Raw())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func userConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hifi", "config.toml"), nil
}

// HasCredentials returns true if catalog login is configured.
func (c *Config) HasCredentials() bool {
	return c.Catalog.Username != "" && c.Catalog.PasswordHash != ""
}

// WebEnabled returns whether the web front-end should start.
func (c *Config) WebEnabled() bool {
	if c.Web.Enabled == nil {
		return true
	}
	return *c.Web.Enabled
}

// WebInterface returns the web listen address with the default applied.
func (c *Config) WebInterface() string {
	if c.Web.Interface == "" {
		return "0.0.0.0:9888"
	}
	return c.Web.Interface
}

// HasRfid returns true if the RFID reader is configured.
func (c *Config) HasRfid() bool {
	return c.Rfid.Device != ""
}

// RfidDebounce returns the same-tag debounce window with the default applied.
func (c *Config) RfidDebounce() int {
	if c.Rfid.DebounceMs <= 0 {
		return 2000
	}
	return c.Rfid.DebounceMs
}

// HasGpio returns true if at least one button pin is configured.
func (c *Config) HasGpio() bool {
	g := c.Gpio
	return g.PlayPausePin > 0 || g.NextPin > 0 || g.PreviousPin > 0 ||
		g.VolumeUpPin > 0 || g.VolumeDownPin > 0
}

// GpioPoll returns the pin poll interval with the default applied.
func (c *Config) GpioPoll() int {
	if c.Gpio.PollMs <= 0 {
		return 25
	}
	return c.Gpio.PollMs
}

// GetAudioConfig returns the audio configuration with defaults applied.
func (c *Config) GetAudioConfig() AudioConfig {
	cfg := c.Audio
	if cfg.BufferMs <= 0 || cfg.BufferMs > 2000 {
		cfg.BufferMs = 100
	}
	return cfg
}

// GetMaxQuality returns the configured quality cap with the default applied.
func (c *Config) GetMaxQuality() int {
	switch c.Catalog.MaxQuality {
	case 5, 6, 7, 27:
		return c.Catalog.MaxQuality
	default:
		return 6
	}
}
