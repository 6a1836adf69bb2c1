package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"hydra/internal/application/port"
	"hydra/internal/domain"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS price_history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol TEXT NOT NULL,
  price REAL NOT NULL,
  change_24h REAL,
  volume_24h REAL,
  high_24h REAL,
  low_24h REAL,
  market_cap REAL,
  source TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  UNIQUE(symbol, ts_ms)
);
CREATE INDEX IF NOT EXISTS idx_history_symbol_ts ON price_history(symbol, ts_ms);
`)
	return err
}

// Append inserts one record. The history is append-only: a duplicate
// (symbol, timestamp) pair is ignored so cycle retries stay idempotent.
func (r *Repo) Append(ctx context.Context, rec domain.PriceRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_history(symbol, price, change_24h, volume_24h, high_24h, low_24h, market_cap, source, ts_ms, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, ts_ms) DO NOTHING
	`, rec.Symbol, rec.Price,
		nullable(rec.Change24h), nullable(rec.Volume24h), nullable(rec.High24h),
		nullable(rec.Low24h), nullable(rec.MarketCap),
		rec.Source, rec.Timestamp.UnixMilli(), time.Now().UnixMilli())
	return err
}

func (r *Repo) Latest(ctx context.Context, symbol string) (domain.PriceRecord, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT symbol, price, change_24h, volume_24h, high_24h, low_24h, market_cap, source, ts_ms
		FROM price_history WHERE symbol=? ORDER BY ts_ms DESC LIMIT 1
	`, strings.ToUpper(symbol))

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PriceRecord{}, false, nil
	}
	if err != nil {
		return domain.PriceRecord{}, false, err
	}
	return rec, true, nil
}

func (r *Repo) History(ctx context.Context, symbol string, since time.Time, limit int) ([]domain.PriceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, price, change_24h, volume_24h, high_24h, low_24h, market_cap, source, ts_ms
		FROM price_history WHERE symbol=? AND ts_ms>=? ORDER BY ts_ms ASC LIMIT ?
	`, strings.ToUpper(symbol), since.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PriceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.PriceRecord, error) {
	var (
		rec                          domain.PriceRecord
		change, vol, high, low, mcap sql.NullFloat64
		tsMs                         int64
	)
	if err := s.Scan(&rec.Symbol, &rec.Price, &change, &vol, &high, &low, &mcap, &rec.Source, &tsMs); err != nil {
		return domain.PriceRecord{}, err
	}
	rec.Change24h = fromNull(change)
	rec.Volume24h = fromNull(vol)
	rec.High24h = fromNull(high)
	rec.Low24h = fromNull(low)
	rec.MarketCap = fromNull(mcap)
	rec.Timestamp = time.UnixMilli(tsMs).UTC()
	return rec, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var _ port.PriceRepository = (*Repo)(nil)
