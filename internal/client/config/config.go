package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/zktaccess/zktadmin/internal/flagx"
)

// Config holds runtime settings for the zktadmin console.
//
// Fields:
//   - BaseURL: root URL of the access-control backend.
//   - SessionDBPath: SQLite file holding the session (":memory:" keeps it
//     for the lifetime of the process only).
//   - DailyLimit: PIN generations per user per day, mirrored for UI gating.
//   - RequestTimeout: per-request HTTP timeout.
//   - RequestsPerSecond: client-side pacing of API calls (0 disables it).
//   - LogLevel: debug, info, warn or error.
//   - MetricsAddr: when set, address of the Prometheus /metrics listener.
//   - PINValidity: how long a PIN is advertised as valid.
type Config struct {
	BaseURL           string
	SessionDBPath     string
	DailyLimit        int
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	LogLevel          string
	MetricsAddr       string
	PINValidity       time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://localhost:5000"
	c.SessionDBPath = "session.db"
	c.DailyLimit = 3
	c.RequestTimeout = 10 * time.Second
	c.RequestsPerSecond = 5
	c.LogLevel = "info"
	c.MetricsAddr = ""
	c.PINValidity = 15 * time.Minute
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base url %q must be an absolute http(s) URL", c.BaseURL)
	}
	if c.SessionDBPath == "" {
		return errors.New("session db path must not be empty")
	}
	if c.DailyLimit < 1 {
		return fmt.Errorf("daily limit must be positive, got %d", c.DailyLimit)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative, got %v", c.RequestsPerSecond)
	}
	if c.PINValidity <= 0 {
		return fmt.Errorf("pin validity must be positive, got %s", c.PINValidity)
	}
	return nil
}

// Load constructs a Config from args (without the program name): defaults,
// then the JSON file named by -c/-config, then flags. Later sources take
// precedence over earlier ones.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path := flagx.ConfigPath(args); path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
