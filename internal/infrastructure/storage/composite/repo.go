package composite

import (
	"context"
	"time"

	"hydra/internal/application/port"
	"hydra/internal/domain"
)

// Repo fans writes out to every backend and reads from the first backend
// that answers. Order the cache before the durable store so Latest is served
// from memory when possible.
type Repo struct {
	repos []port.PriceRepository
}

func New(repos ...port.PriceRepository) *Repo {
	out := make([]port.PriceRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Append(ctx context.Context, rec domain.PriceRecord) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Append(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) Latest(ctx context.Context, symbol string) (domain.PriceRecord, bool, error) {
	var firstErr error
	for _, repo := range r.repos {
		rec, ok, err := repo.Latest(ctx, symbol)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return rec, true, nil
		}
	}
	return domain.PriceRecord{}, false, firstErr
}

func (r *Repo) History(ctx context.Context, symbol string, since time.Time, limit int) ([]domain.PriceRecord, error) {
	var firstErr error
	for _, repo := range r.repos {
		recs, err := repo.History(ctx, symbol, since, limit)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(recs) > 0 {
			return recs, nil
		}
	}
	return nil, firstErr
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.PriceRepository = (*Repo)(nil)
