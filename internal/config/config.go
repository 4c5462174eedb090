// Package config holds application configuration loaded from a YAML file
// and environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Storage Storage `yaml:"storage"`
	Remote  Remote  `yaml:"remote"`
	Netmon  Netmon  `yaml:"netmon"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
}

// Storage holds local persistence settings.
type Storage struct {
	DataDir string `yaml:"data_dir" env:"STORAGE_DATA_DIR" env-default:"./data"`
}

// Remote holds remote item gateway settings.
type Remote struct {
	BaseURL string        `yaml:"base_url" env:"REMOTE_BASE_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout"  env:"REMOTE_TIMEOUT"  env-default:"10s"`
}

// Netmon holds connectivity probe settings. An empty probe URL disables
// probing; the monitor then only changes state via the manual override.
type Netmon struct {
	ProbeURL      string        `yaml:"probe_url"      env:"NETMON_PROBE_URL"`
	ProbeInterval time.Duration `yaml:"probe_interval" env:"NETMON_PROBE_INTERVAL" env-default:"30s"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"  env:"NETMON_PROBE_TIMEOUT"  env-default:"5s"`
	FullSyncEvery time.Duration `yaml:"full_sync_every" env:"NETMON_FULL_SYNC_EVERY" env-default:"15m"`
}

// Server holds the local WebSocket event endpoint settings.
type Server struct {
	Addr string `yaml:"addr" env:"SERVER_ADDR" env-default:"127.0.0.1:8123"`
}

// Log holds logging settings.
type Log struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Validate checks settings cleanenv tags cannot express.
func (c *Config) Validate() error {
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive")
	}
	if c.Netmon.ProbeInterval <= 0 {
		return fmt.Errorf("netmon.probe_interval must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
