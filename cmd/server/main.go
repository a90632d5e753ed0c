// Package main - Entry point for the permit-fees HTTP server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"permit-fees/api"
	"permit-fees/internal/app"
	"permit-fees/internal/config"
	"permit-fees/internal/logging"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "config file")
	addr := flag.String("addr", "", "server address (overrides config)")
	flag.Parse()

	if err := run(*cfgPath, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "permit-fees server: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, addr string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	config.Set(cfg)

	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.OpenCatalog(ctx, cfg, logging.Logger)
	if err != nil {
		return err
	}
	defer c.Close()

	e := app.NewEngine(cfg, c, logging.Logger)
	server := api.NewServer(api.NewHandler(e, app.Version),
		api.WithLogger(logging.Named("api")),
		api.WithRateLimit(cfg.Server.RateLimit, cfg.Server.Burst))

	logging.Named("server").Info("starting permit-fees server",
		zap.String("version", app.Version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("catalog_driver", cfg.Catalog.Driver))
	return server.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout.Std(), cfg.Server.WriteTimeout.Std())
}
