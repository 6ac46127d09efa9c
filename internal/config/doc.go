// Package config loads, validates, and defaults the TOML configuration for
// the tubesync client.
package config
