// Package config loads runtime configuration for the authkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config, in any format viper
//     reads (JSON, YAML, TOML, ...).
//  3. AUTHKEEPER_* environment variables, e.g. AUTHKEEPER_SERVER_URL.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the backend
//	-t int      request timeout (seconds)
//	-d string   path to the local sqlite database
//	-l string   log level (debug, info, warn, error)
//
// # File keys
//
//	server_url: http://127.0.0.1:3000
//	request_timeout: 10s
//	database_path: session.db
//	log_backend: slog
//	log_level: info
package config
