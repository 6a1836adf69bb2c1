package domain

import (
	"math"
	"time"
)

// SourceSynthetic tags records produced by the synthetic generator rather
// than a live upstream.
const SourceSynthetic = "synthetic"

// RawQuote is what a source adapter returns for a single symbol before
// normalization. Optional 24h analytics are pointers: nil means the upstream
// did not supply the field, and it stays unknown downstream.
type RawQuote struct {
	Price     float64
	Change24h *float64
	Volume24h *float64
	High24h   *float64
	Low24h    *float64
	MarketCap *float64
}

// Valid reports whether the quote carries a usable price. Non-finite and
// negative values from an upstream are dropped, never propagated.
func (q RawQuote) Valid() bool {
	return !math.IsNaN(q.Price) && !math.IsInf(q.Price, 0) && q.Price >= 0
}

// PriceRecord is the canonical resolved price for one symbol at one instant.
// Records are immutable once created; corrections are new records. Unknown
// analytics remain nil and are omitted from the wire representation instead
// of being fabricated.
type PriceRecord struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h *float64  `json:"change_24h,omitempty"`
	Volume24h *float64  `json:"volume_24h,omitempty"`
	High24h   *float64  `json:"high_24h,omitempty"`
	Low24h    *float64  `json:"low_24h,omitempty"`
	MarketCap *float64  `json:"market_cap,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPriceRecord normalizes a raw quote into a canonical record tagged with
// the adapter that produced it.
func NewPriceRecord(symbol string, q RawQuote, source string, ts time.Time) PriceRecord {
	return PriceRecord{
		Symbol:    symbol,
		Price:     q.Price,
		Change24h: q.Change24h,
		Volume24h: q.Volume24h,
		High24h:   q.High24h,
		Low24h:    q.Low24h,
		MarketCap: q.MarketCap,
		Source:    source,
		Timestamp: ts,
	}
}

// Float64Ptr is a convenience for building optional quote fields.
func Float64Ptr(v float64) *float64 { return &v }
