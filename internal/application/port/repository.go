package port

import (
	"context"
	"time"

	"hydra/internal/domain"
)

// PriceRepository is the append-only price history store. Append enforces
// (symbol, timestamp) uniqueness; duplicate appends are silently ignored so
// retries stay idempotent. History returns records at or after since,
// oldest first, at most limit rows.
type PriceRepository interface {
	Append(ctx context.Context, rec domain.PriceRecord) error
	Latest(ctx context.Context, symbol string) (domain.PriceRecord, bool, error)
	History(ctx context.Context, symbol string, since time.Time, limit int) ([]domain.PriceRecord, error)
	Close() error
}
