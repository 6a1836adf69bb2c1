package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"hydra/internal/application/port"
	"hydra/internal/domain"
)

// Repo caches the current record per symbol in a hash and publishes every
// resolved record on a pub/sub channel for out-of-process consumers. It
// keeps no history; pair it with a durable repo through the composite.
type Repo struct {
	rdb       *redis.Client
	ttl       time.Duration
	keyLatest string // prefix + ":latest"
	channel   string
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, channel string) *Repo {
	if channel == "" {
		channel = prefix + ":updates"
	}
	return &Repo{
		rdb:       rdb,
		ttl:       ttl,
		keyLatest: prefix + ":latest",
		channel:   channel,
	}
}

func (r *Repo) Append(ctx context.Context, rec domain.PriceRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, rec.Symbol, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	pipe.Publish(ctx, r.channel, string(b))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) Latest(ctx context.Context, symbol string) (domain.PriceRecord, bool, error) {
	raw, err := r.rdb.HGet(ctx, r.keyLatest, domain.NormalizeSymbol(symbol)).Result()
	if err == redis.Nil {
		return domain.PriceRecord{}, false, nil
	}
	if err != nil {
		return domain.PriceRecord{}, false, err
	}

	var rec domain.PriceRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.PriceRecord{}, false, err
	}
	return rec, true, nil
}

// History is not kept in the cache.
func (r *Repo) History(ctx context.Context, symbol string, since time.Time, limit int) ([]domain.PriceRecord, error) {
	return nil, nil
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.PriceRepository = (*Repo)(nil)
