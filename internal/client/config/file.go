package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "AUTHKEEPER"

const (
	keyServerURL      = "server_url"
	keyRequestTimeout = "request_timeout"
	keyDatabasePath   = "database_path"
	keyLogBackend     = "log_backend"
	keyLogLevel       = "log_level"
)

// parseFile overlays cfg with the optional config file named by -c/-config
// and with AUTHKEEPER_* environment variables; the environment wins over
// the file.
//
// Durations accept Go syntax ("5s", "1m30s").
func parseFile(cfg *Config, args []string) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so every key gets a default.
	v.SetDefault(keyServerURL, cfg.ServerURL)
	v.SetDefault(keyRequestTimeout, cfg.RequestTimeout)
	v.SetDefault(keyDatabasePath, cfg.DatabasePath)
	v.SetDefault(keyLogBackend, cfg.LogBackend)
	v.SetDefault(keyLogLevel, cfg.LogLevel)

	if path := configFileFlag(args); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}
