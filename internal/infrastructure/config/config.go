package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"hydra/internal/domain"
)

type Config struct {
	App struct {
		LogLevel        string `toml:"log_level"`
		IntervalSec     int    `toml:"aggregation_interval_sec"`
		FetchTimeoutSec int    `toml:"fetch_timeout_sec"`
	} `toml:"app"`

	Server struct {
		ListenAddr string `toml:"listen_addr"`
	} `toml:"server"`

	Auth struct {
		Secret string `toml:"secret"`
	} `toml:"auth"`

	Session struct {
		AuthGraceSec      int `toml:"auth_grace_sec"`
		StaleAfterSec     int `toml:"stale_after_sec"`
		ReaperIntervalSec int `toml:"reaper_interval_sec"`
	} `toml:"session"`

	History struct {
		MaxPoints int `toml:"max_points"`
		MaxHours  int `toml:"max_hours"`
	} `toml:"history"`

	Sources struct {
		Priority []string `toml:"priority"`

		Jupiter struct {
			Enabled bool   `toml:"enabled"`
			BaseURL string `toml:"base_url"`
		} `toml:"jupiter"`

		Coingecko struct {
			Enabled bool   `toml:"enabled"`
			BaseURL string `toml:"base_url"`
		} `toml:"coingecko"`
	} `toml:"sources"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`

	Redis struct {
		Enabled    bool   `toml:"enabled"`
		Addr       string `toml:"addr"`
		Password   string `toml:"password"`
		DB         int    `toml:"db"`
		Prefix     string `toml:"prefix"`
		TTLSeconds int    `toml:"ttl_seconds"`
		Channel    string `toml:"channel"`
	} `toml:"redis"`

	Symbols []SymbolConfig `toml:"symbols"`
}

type SymbolConfig struct {
	Symbol      string  `toml:"symbol"`
	JupiterMint string  `toml:"jupiter_mint"`
	CoingeckoID string  `toml:"coingecko_id"`
	Synthetic   bool    `toml:"synthetic"`
	BasePrice   float64 `toml:"base_price"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.IntervalSec <= 0 {
		cfg.App.IntervalSec = 5
	}
	if cfg.App.FetchTimeoutSec <= 0 {
		cfg.App.FetchTimeoutSec = 10
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Session.AuthGraceSec <= 0 {
		cfg.Session.AuthGraceSec = 10
	}
	if cfg.Session.StaleAfterSec <= 0 {
		cfg.Session.StaleAfterSec = 60
	}
	if cfg.Session.ReaperIntervalSec <= 0 {
		cfg.Session.ReaperIntervalSec = 30
	}
	if cfg.History.MaxPoints <= 0 {
		cfg.History.MaxPoints = 1000
	}
	if cfg.History.MaxHours <= 0 {
		cfg.History.MaxHours = 168 // 7 days
	}
	if len(cfg.Sources.Priority) == 0 {
		cfg.Sources.Priority = []string{"jupiter", "coingecko"}
	}
	if cfg.Sources.Jupiter.BaseURL == "" {
		cfg.Sources.Jupiter.BaseURL = "https://api.jup.ag/price/v2"
	}
	if cfg.Sources.Coingecko.BaseURL == "" {
		cfg.Sources.Coingecko.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "hydra"
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "data/hydra.db"
	}
}

func validate(cfg *Config) error {
	if err := normalizeSymbols(cfg); err != nil {
		return err
	}
	if len(cfg.Symbols) == 0 {
		return errors.New("symbols is empty")
	}
	if strings.TrimSpace(cfg.Auth.Secret) == "" {
		return errors.New("auth.secret is empty")
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but enabled")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	for _, name := range cfg.Sources.Priority {
		switch name {
		case "jupiter", "coingecko":
		default:
			return fmt.Errorf("unknown source %q in sources.priority", name)
		}
	}
	return nil
}

func normalizeSymbols(cfg *Config) error {
	seen := map[string]struct{}{}
	out := make([]SymbolConfig, 0, len(cfg.Symbols))
	for _, sc := range cfg.Symbols {
		sc.Symbol = domain.NormalizeSymbol(sc.Symbol)
		if sc.Symbol == "" {
			continue
		}
		if _, ok := seen[sc.Symbol]; ok {
			continue
		}
		if sc.Synthetic && sc.BasePrice <= 0 {
			return fmt.Errorf("symbol %s: synthetic requires base_price > 0", sc.Symbol)
		}
		seen[sc.Symbol] = struct{}{}
		out = append(out, sc)
	}
	cfg.Symbols = out
	return nil
}

// TrackedSymbols converts the configured symbol entries into domain values.
func (c *Config) TrackedSymbols() []domain.TrackedSymbol {
	out := make([]domain.TrackedSymbol, 0, len(c.Symbols))
	for _, sc := range c.Symbols {
		out = append(out, domain.TrackedSymbol{
			Symbol:      sc.Symbol,
			JupiterMint: sc.JupiterMint,
			CoingeckoID: sc.CoingeckoID,
			Synthetic:   sc.Synthetic,
			BasePrice:   sc.BasePrice,
		})
	}
	return out
}
