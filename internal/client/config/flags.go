package config

import (
	"flag"
	"io"
	"time"

	"github.com/zktaccess/zktadmin/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// args is filtered with flagx.FilterArgs to the flags handled here, so that
// -c/-config and unknown arguments do not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, "a", "s", "l", "t", "r", "v", "m")

	fs := flag.NewFlagSet("zktadmin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "backend base URL")
	fs.StringVar(&cfg.SessionDBPath, "s", cfg.SessionDBPath, "session database path")
	fs.IntVar(&cfg.DailyLimit, "l", cfg.DailyLimit, "daily PIN generation limit")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.Float64Var(&cfg.RequestsPerSecond, "r", cfg.RequestsPerSecond, "API requests per second")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
