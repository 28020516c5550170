// Package config loads runtime configuration for the zktadmin console.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJSON) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the access-control backend
//	-s string   session database path
//	-l int      daily PIN generation limit
//	-t int      request timeout (seconds)
//	-r float    API requests per second (0 disables pacing)
//	-v string   log level (debug, info, warn, error)
//	-m string   Prometheus /metrics listen address (empty disables it)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "10s"
// or integer nanoseconds. Keys that are absent keep their earlier value:
//
//	{
//	  "base_url": "http://localhost:5000",
//	  "session_db_path": "session.db",
//	  "daily_limit": 3,
//	  "request_timeout": "10s",
//	  "requests_per_second": 5,
//	  "log_level": "info",
//	  "metrics_addr": "127.0.0.1:9464",
//	  "pin_validity": "15m"
//	}
//
// Environment variables are not read.
package config
