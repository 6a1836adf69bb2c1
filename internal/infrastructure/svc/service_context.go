package svc

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"hydra/internal/application/port"
	"hydra/internal/application/service"
	"hydra/internal/domain"
	"hydra/internal/infrastructure/auth"
	"hydra/internal/infrastructure/config"
	"hydra/internal/infrastructure/metrics"
	"hydra/internal/infrastructure/source/coingecko"
	"hydra/internal/infrastructure/source/jupiter"
	"hydra/internal/infrastructure/source/synthetic"
	"hydra/internal/infrastructure/storage/composite"
	"hydra/internal/infrastructure/storage/postgres"
	redisrepo "hydra/internal/infrastructure/storage/redis"
	"hydra/internal/infrastructure/storage/sqlite"
	"hydra/internal/interfaces/rest"
	"hydra/internal/interfaces/ws"
)

// ServiceContext initializes and owns every component, in dependency order,
// and tears them down in reverse on Close.
type ServiceContext struct {
	Config  *config.Config
	Symbols []domain.TrackedSymbol

	Repo       port.PriceRepository
	Hub        *ws.Hub
	Aggregator *service.Aggregator
	Rest       *rest.Server
	Metrics    *metrics.Metrics

	closerChain []func() error
}

func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Config:  cfg,
		Symbols: cfg.TrackedSymbols(),
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}

	if err := sc.initStorage(ctx); err != nil {
		_ = sc.Close()
		return nil, err
	}

	verifier := auth.NewVerifier(cfg.Auth.Secret)
	sc.Hub = ws.NewHub(ws.HubConfig{
		AuthGrace:      time.Duration(cfg.Session.AuthGraceSec) * time.Second,
		StaleAfter:     time.Duration(cfg.Session.StaleAfterSec) * time.Second,
		ReaperInterval: time.Duration(cfg.Session.ReaperIntervalSec) * time.Second,
	}, verifier, sc.Symbols)
	sc.Hub.SetMetrics(sc.Metrics.Connections, sc.Metrics.Pushed)

	sources, err := sc.buildSources()
	if err != nil {
		_ = sc.Close()
		return nil, err
	}

	resolver := service.NewResolver(cfg.Sources.Priority, synthetic.New(time.Now().UnixNano()))
	sc.Aggregator = service.NewAggregator(service.AggregatorDeps{
		Sources:      sources,
		Resolver:     resolver,
		Repo:         sc.Repo,
		Publisher:    sc.Hub,
		Symbols:      sc.Symbols,
		Interval:     time.Duration(cfg.App.IntervalSec) * time.Second,
		FetchTimeout: time.Duration(cfg.App.FetchTimeoutSec) * time.Second,
		Observer:     sc.Metrics,
	})

	sc.Rest = rest.NewServer(rest.ServerDeps{
		Repo:             sc.Repo,
		Hub:              sc.Hub,
		Symbols:          sc.Symbols,
		HistoryMaxPoints: cfg.History.MaxPoints,
		HistoryMaxHours:  cfg.History.MaxHours,
	})

	return sc, nil
}

// initStorage builds the history store: redis cache first (freshest reads),
// then the durable backend.
func (sc *ServiceContext) initStorage(ctx context.Context) error {
	var repos []port.PriceRepository

	if sc.Config.Redis.Enabled {
		rdb := redisclient.NewClient(&redisclient.Options{
			Addr:     sc.Config.Redis.Addr,
			Password: sc.Config.Redis.Password,
			DB:       sc.Config.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}

		repo := redisrepo.New(rdb, sc.Config.Redis.Prefix,
			time.Duration(sc.Config.Redis.TTLSeconds)*time.Second, sc.Config.Redis.Channel)
		repos = append(repos, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing redis connection")
			return repo.Close()
		})
		log.Info().Str("addr", sc.Config.Redis.Addr).Msg("redis initialized")
	}

	switch {
	case sc.Config.Postgres.Enabled:
		repo, err := postgres.New(sc.Config.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
		repos = append(repos, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing postgres connection")
			return repo.Close()
		})
		log.Info().Msg("postgres initialized")

	case sc.Config.SQLite.Enabled:
		repo, err := sqlite.New(sc.Config.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
		repos = append(repos, repo)
		sc.closerChain = append(sc.closerChain, func() error {
			log.Info().Msg("closing sqlite connection")
			return repo.Close()
		})
		log.Info().Str("path", sc.Config.SQLite.Path).Msg("sqlite initialized")
	}

	if len(repos) == 0 {
		return ErrNoStorageEnabled
	}
	sc.Repo = composite.New(repos...)
	return nil
}

// buildSources instantiates the enabled adapters in configured priority order.
func (sc *ServiceContext) buildSources() ([]port.Source, error) {
	var sources []port.Source
	for _, name := range sc.Config.Sources.Priority {
		switch name {
		case "jupiter":
			if sc.Config.Sources.Jupiter.Enabled {
				sources = append(sources, jupiter.New(sc.Config.Sources.Jupiter.BaseURL))
			} else {
				log.Warn().Msg("jupiter disabled by config")
			}
		case "coingecko":
			if sc.Config.Sources.Coingecko.Enabled {
				sources = append(sources, coingecko.New(sc.Config.Sources.Coingecko.BaseURL))
			} else {
				log.Warn().Msg("coingecko disabled by config")
			}
		}
	}
	if len(sources) == 0 {
		return nil, ErrNoSourcesEnabled
	}
	return sources, nil
}

// Close releases resources in reverse initialization order.
func (sc *ServiceContext) Close() error {
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	return nil
}
