// Package synthetic generates fallback quotes for symbols with no live
// market. Records built from these quotes are always tagged
// domain.SourceSynthetic so consumers can tell them apart.
package synthetic

import (
	"math/rand"
	"sync"

	"hydra/internal/domain"
)

const (
	// stepJitter bounds a single random-walk step relative to the last price.
	stepJitter = 0.02
	// driftBound clamps the walk to ±10% of the configured base price.
	driftBound = 0.10
)

// Generator produces a bounded random walk around each symbol's configured
// base price. Safe for concurrent use.
type Generator struct {
	mu   sync.Mutex
	last map[string]float64
	rng  *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{
		last: make(map[string]float64),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (g *Generator) Quote(sym domain.TrackedSymbol) domain.RawQuote {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev, ok := g.last[sym.Symbol]
	if !ok {
		prev = sym.BasePrice
	}

	step := (g.rng.Float64()*2 - 1) * stepJitter
	price := prev * (1 + step)

	lo, hi := sym.BasePrice*(1-driftBound), sym.BasePrice*(1+driftBound)
	if price < lo {
		price = lo
	}
	if price > hi {
		price = hi
	}
	g.last[sym.Symbol] = price

	// The walk's drift from base doubles as a visibly synthetic 24h change.
	change := (price - sym.BasePrice) / sym.BasePrice * 100
	return domain.RawQuote{
		Price:     price,
		Change24h: domain.Float64Ptr(change),
	}
}
