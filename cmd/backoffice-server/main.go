package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-backoffice/internal/app"
	"github.com/goliatone/go-backoffice/internal/config"
	"github.com/goliatone/go-backoffice/internal/logging"
)

func main() {
	var (
		configFlag = flag.String("config", "", "YAML configuration file")
		envFlag    = flag.String("env", ".env", "Optional .env file with BACKOFFICE_* overrides")
		addrFlag   = flag.String("addr", "", "Listen address (overrides the configuration)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag, *envFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backoffice: %v\n", err)
		os.Exit(2)
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "backoffice: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	built, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}
	if err := built.Server.Run(ctx); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
	logger.Info("server stopped")
}
