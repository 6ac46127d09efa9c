package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvConfigPath overrides the default config file location when set.
const EnvConfigPath = "TUBESYNC_CONFIG"

// Server contains backend endpoint configuration.
type Server struct {
	BaseURL  string `toml:"base_url"`
	PushAddr string `toml:"push_addr"`
	Token    string `toml:"token"`
}

// Sync contains timing and retry configuration for the sync engine.
type Sync struct {
	PollIntervalMS      int `toml:"poll_interval_ms"`
	ConnectAttempts     int `toml:"connect_attempts"`
	ConnectDelaySeconds int `toml:"connect_delay_seconds"`
	RetryAttempts       int `toml:"retry_attempts"`
	RetryDelaySeconds   int `toml:"retry_delay_seconds"`
}

// Paths contains directory, socket, and lock file configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	Socket  string `toml:"socket"`
	Lock    string `toml:"lock"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Notifications contains coalesced-notification configuration.
type Notifications struct {
	Desktop          bool `toml:"desktop"`
	DismissBroadcast bool `toml:"dismiss_broadcast"`
}

// Config is the root configuration for the tubesync client.
type Config struct {
	Server        Server        `toml:"server"`
	Sync          Sync          `toml:"sync"`
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// Load reads configuration from path, falling back to the TUBESYNC_CONFIG
// environment variable and then the default location. A missing file yields
// the defaults. The resolved path is returned alongside the config.
func Load(path string) (*Config, string, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, "", err
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults apply when no config file exists yet.
	case err != nil:
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory %s: %w", dir, err)
		}
	}
	return nil
}

// PollInterval returns the job status poll cadence.
func (c *Config) PollInterval() time.Duration {
	if c.Sync.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Sync.PollIntervalMS) * time.Millisecond
}

// ConnectDelay returns the delay between initial connect attempts.
func (c *Config) ConnectDelay() time.Duration {
	if c.Sync.ConnectDelaySeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Sync.ConnectDelaySeconds) * time.Second
}

// RetryDelay returns the delay between bounded retry attempts for
// non-polling backend calls.
func (c *Config) RetryDelay() time.Duration {
	if c.Sync.RetryDelaySeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.Sync.RetryDelaySeconds) * time.Second
}

// SocketPath returns the IPC socket location.
func (c *Config) SocketPath() string {
	if c.Paths.Socket != "" {
		return c.Paths.Socket
	}
	return filepath.Join(c.Paths.DataDir, "tubesync.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	if c.Paths.Lock != "" {
		return c.Paths.Lock
	}
	return filepath.Join(c.Paths.DataDir, "tubesync.lock")
}

// DatabasePath returns the exclusion store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "exclusions.db")
}

func (c *Config) normalize() {
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	c.Server.PushAddr = strings.TrimSpace(c.Server.PushAddr)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	for _, p := range []*string{&c.Paths.DataDir, &c.Paths.LogDir, &c.Paths.Socket, &c.Paths.Lock} {
		if *p == "" {
			continue
		}
		if expanded, err := ExpandPath(*p); err == nil {
			*p = expanded
		}
	}
}

// ExpandPath expands a leading ~ to the user home directory.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

func resolvePath(path string) (string, error) {
	if p := strings.TrimSpace(path); p != "" {
		return ExpandPath(p)
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return ExpandPath(p)
	}
	return ExpandPath("~/.config/tubesync/config.toml")
}
