package service

import (
	"time"

	"hydra/internal/domain"

	"github.com/rs/zerolog/log"
)

// SyntheticQuoter produces a fallback quote for symbols with no live market.
type SyntheticQuoter interface {
	Quote(sym domain.TrackedSymbol) domain.RawQuote
}

// Resolver turns per-source raw quotes into one canonical record per symbol.
// Source priority is fixed and configuration-driven; the first source in
// order that quoted the symbol wins regardless of what later sources or the
// synthetic generator would have produced.
type Resolver struct {
	priority []string
	synth    SyntheticQuoter
}

func NewResolver(priority []string, synth SyntheticQuoter) *Resolver {
	return &Resolver{priority: append([]string(nil), priority...), synth: synth}
}

// Resolve picks the record for sym from the quotes gathered this cycle,
// keyed source name -> symbol -> quote. Returns false when no source applies
// and synthetic fallback is not permitted: the previous record stays current
// and no update is emitted this cycle.
func (r *Resolver) Resolve(sym domain.TrackedSymbol, quotes map[string]map[string]domain.RawQuote, now time.Time) (domain.PriceRecord, bool) {
	for _, name := range r.priority {
		q, ok := quotes[name][sym.Symbol]
		if !ok {
			continue
		}
		if !q.Valid() {
			log.Warn().Str("source", name).Str("symbol", sym.Symbol).Float64("price", q.Price).
				Msg("dropping invalid upstream quote")
			continue
		}
		return domain.NewPriceRecord(sym.Symbol, q, name, now), true
	}

	if sym.Synthetic && r.synth != nil {
		q := r.synth.Quote(sym)
		if q.Valid() {
			return domain.NewPriceRecord(sym.Symbol, q, domain.SourceSynthetic, now), true
		}
	}

	return domain.PriceRecord{}, false
}
