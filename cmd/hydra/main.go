package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hydra/internal/infrastructure/config"
	"hydra/internal/infrastructure/logger"
	"hydra/internal/infrastructure/svc"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup("info")
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service initialization failed")
	}
	defer sc.Close()

	log.Info().
		Str("config", *configPath).
		Int("symbols", len(sc.Symbols)).
		Int("interval_sec", cfg.App.IntervalSec).
		Str("listen", cfg.Server.ListenAddr).
		Msg("hydra price engine started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sc.Aggregator.Run(gctx) })
	g.Go(func() error { return sc.Hub.RunReaper(gctx) })
	g.Go(func() error { return sc.Rest.Run(gctx, cfg.Server.ListenAddr) })

	if err := g.Wait(); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("service exited")
	}
}
