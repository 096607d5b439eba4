package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the authkeeper CLI.
//
// Fields:
//   - ServerURL: base URL of the auth backend, scheme included.
//   - RequestTimeout: upper bound for every backend request; zero disables it.
//   - DatabasePath: sqlite file holding the renewal credential.
//   - LogBackend: one of logging.BackendSlog, BackendLogrus, BackendZap.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerURL      string        `mapstructure:"server_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DatabasePath   string        `mapstructure:"database_path"`
	LogBackend     string        `mapstructure:"log_backend"`
	LogLevel       string        `mapstructure:"log_level"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000"
	c.RequestTimeout = 10 * time.Second
	c.DatabasePath = "session.db"
	c.LogBackend = "slog"
	c.LogLevel = "info"
}

// LoadConfig builds a Config from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load applies defaults, then the config file and AUTHKEEPER_* environment,
// then the command-line flags found in args. Later sources win.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is empty")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout %s is negative", c.RequestTimeout)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is empty")
	}
	return nil
}
