package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"hydra/internal/application/port"
	"hydra/internal/domain"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

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
  id BIGSERIAL PRIMARY KEY,
  symbol TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  change_24h DOUBLE PRECISION,
  volume_24h DOUBLE PRECISION,
  high_24h DOUBLE PRECISION,
  low_24h DOUBLE PRECISION,
  market_cap DOUBLE PRECISION,
  source TEXT NOT NULL,
  ts_ms BIGINT NOT NULL,
  UNIQUE(symbol, ts_ms)
);
CREATE INDEX IF NOT EXISTS idx_history_symbol_ts ON price_history(symbol, ts_ms);
`)
	return err
}

func (r *Repo) Append(ctx context.Context, rec domain.PriceRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_history(symbol, price, change_24h, volume_24h, high_24h, low_24h, market_cap, source, ts_ms)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT(symbol, ts_ms) DO NOTHING
	`, rec.Symbol, rec.Price, rec.Change24h, rec.Volume24h, rec.High24h,
		rec.Low24h, rec.MarketCap, rec.Source, rec.Timestamp.UnixMilli())
	return err
}

func (r *Repo) Latest(ctx context.Context, symbol string) (domain.PriceRecord, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT symbol, price, change_24h, volume_24h, high_24h, low_24h, market_cap, source, ts_ms
		FROM price_history WHERE symbol=$1 ORDER BY ts_ms DESC LIMIT 1
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
		FROM price_history WHERE symbol=$1 AND ts_ms>=$2 ORDER BY ts_ms ASC LIMIT $3
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
		rec  domain.PriceRecord
		tsMs int64
	)
	if err := s.Scan(&rec.Symbol, &rec.Price, &rec.Change24h, &rec.Volume24h,
		&rec.High24h, &rec.Low24h, &rec.MarketCap, &rec.Source, &tsMs); err != nil {
		return domain.PriceRecord{}, err
	}
	rec.Timestamp = time.UnixMilli(tsMs).UTC()
	return rec, nil
}

var _ port.PriceRepository = (*Repo)(nil)
