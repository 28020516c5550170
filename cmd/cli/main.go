package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/zktaccess/zktadmin/internal/buildinfo"
	"github.com/zktaccess/zktadmin/internal/client/cli"
	"github.com/zktaccess/zktadmin/internal/client/client"
	"github.com/zktaccess/zktadmin/internal/client/config"
	"github.com/zktaccess/zktadmin/internal/client/session"
	"github.com/zktaccess/zktadmin/internal/logging"
	"github.com/zktaccess/zktadmin/internal/obs"
)

const (
	getRetries   = 2
	retryBackoff = 250 * time.Millisecond
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger := logging.New(os.Stderr, level)

	if err := run(cfg, logger); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, db, err := session.Open(ctx, cfg.SessionDBPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := obs.NewMetrics(reg)

	api, err := client.NewHTTPClient(cfg.BaseURL, store,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRateLimit(cfg.RequestsPerSecond, 1),
		client.WithRetry(getRetries, retryBackoff),
		client.WithLogger(logger),
		client.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	app := cli.NewApp(cli.Deps{
		Config:   cfg,
		Sessions: store,
		Client:   api,
		Logger:   logger,
	})
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		// Metrics are optional: a listener failure is logged by Serve and
		// the console keeps running.
		g.Go(func() error {
			_ = obs.Serve(gctx, cfg.MetricsAddr, reg, logger)
			return nil
		})
	}
	g.Go(func() error {
		defer stop()
		return app.Run(gctx)
	})
	return g.Wait()
}
