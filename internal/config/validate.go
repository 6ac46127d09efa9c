package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.BaseURL == "" {
		problems = append(problems, "server.base_url must be set")
	}
	if c.Server.PushAddr == "" {
		problems = append(problems, "server.push_addr must be set")
	}
	if c.Paths.DataDir == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if c.Sync.PollIntervalMS < 0 {
		problems = append(problems, "sync.poll_interval_ms must not be negative")
	}
	if c.Sync.ConnectAttempts < 0 {
		problems = append(problems, "sync.connect_attempts must not be negative")
	}
	if c.Sync.RetryAttempts < 0 {
		problems = append(problems, "sync.retry_attempts must not be negative")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
