package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	General   GeneralConfig   `toml:"general"`
	Web       WebConfig       `toml:"web"`
	Clipboard ClipboardConfig `toml:"clipboard"`
	Paste     PasteConfig     `toml:"paste"`
	Hotkeys   HotkeysConfig   `toml:"hotkeys"`
	Sync      SyncConfig      `toml:"sync"`

	path string
}

type GeneralConfig struct {
	DataDir   string `toml:"data_dir"`
	ExportDir string `toml:"export_dir"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

type ClipboardConfig struct {
	PollIntervalMs int `toml:"poll_interval_ms"`
	MaxHistory     int `toml:"max_history"`
}

type PasteConfig struct {
	HideDelayMs       int `toml:"hide_delay_ms"`
	ActivateTimeoutMs int `toml:"activate_timeout_ms"`
}

type HotkeysConfig struct {
	Attempts        int `toml:"attempts"`
	RetryIntervalMs int `toml:"retry_interval_ms"`
	StartupDelayMs  int `toml:"startup_delay_ms"`
}

type SyncConfig struct {
	URL             string `toml:"url"`
	IntervalSeconds int    `toml:"interval_seconds"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Dir returns the per-user snipee configuration directory
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, "snipee"), nil
}

// Default configuration
func defaultConfig(dir string) *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		General: GeneralConfig{
			DataDir:   dir,
			ExportDir: filepath.Join(home, "Downloads"),
			LogLevel:  "info",
			LogFormat: "auto",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    7375,
		},
		Clipboard: ClipboardConfig{
			PollIntervalMs: 500,
			MaxHistory:     100,
		},
		Paste: PasteConfig{
			HideDelayMs:       50,
			ActivateTimeoutMs: 1000,
		},
		Hotkeys: HotkeysConfig{
			Attempts:        3,
			RetryIntervalMs: 500,
			StartupDelayMs:  1000,
		},
		Sync: SyncConfig{
			URL:             "",
			IntervalSeconds: 300,
			TimeoutSeconds:  30,
		},
	}
}

// ConfigPath returns the path to the default configuration file
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the TOML file at path, or from the
// default location when path is empty.
// If the file doesn't exist, it creates it with default values
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := defaultConfig(filepath.Dir(path))
	cfg.path = path

	// If config doesn't exist, create it with defaults
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	// Load existing config over the defaults
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Path returns the file the configuration was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration back to its TOML file
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(c)
}

// Validate checks the values Load would reject
func (c *Config) Validate() error {
	if c.Clipboard.PollIntervalMs <= 0 {
		return fmt.Errorf("clipboard.poll_interval_ms must be positive")
	}
	if c.Clipboard.MaxHistory <= 0 {
		return fmt.Errorf("clipboard.max_history must be positive")
	}
	if c.Hotkeys.Attempts <= 0 {
		return fmt.Errorf("hotkeys.attempts must be positive")
	}
	if c.Sync.IntervalSeconds <= 0 {
		return fmt.Errorf("sync.interval_seconds must be positive")
	}
	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	return nil
}

func (c ClipboardConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (p PasteConfig) HideDelay() time.Duration {
	return time.Duration(p.HideDelayMs) * time.Millisecond
}

func (p PasteConfig) ActivateTimeout() time.Duration {
	return time.Duration(p.ActivateTimeoutMs) * time.Millisecond
}

func (h HotkeysConfig) RetryInterval() time.Duration {
	return time.Duration(h.RetryIntervalMs) * time.Millisecond
}

func (h HotkeysConfig) StartupDelay() time.Duration {
	return time.Duration(h.StartupDelayMs) * time.Millisecond
}

func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s SyncConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}
