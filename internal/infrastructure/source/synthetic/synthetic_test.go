package synthetic

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydra/internal/domain"
)

var hydra = domain.TrackedSymbol{Symbol: "HYDRA/USDC", Synthetic: true, BasePrice: 0.042}

func TestQuoteStaysWithinDriftBounds(t *testing.T) {
	g := New(1)

	lo, hi := hydra.BasePrice*0.9, hydra.BasePrice*1.1
	for i := 0; i < 10_000; i++ {
		q := g.Quote(hydra)
		require.True(t, q.Valid())
		assert.GreaterOrEqual(t, q.Price, lo)
		assert.LessOrEqual(t, q.Price, hi)
	}
}

func TestQuoteStepSizeBounded(t *testing.T) {
	g := New(7)

	prev := g.Quote(hydra).Price
	for i := 0; i < 1000; i++ {
		q := g.Quote(hydra)
		ratio := q.Price / prev
		// Single step moves at most 2% unless the drift clamp engages,
		// which only ever pulls the price back toward base.
		assert.InDelta(t, 1.0, ratio, 0.021)
		prev = q.Price
	}
}

func TestQuoteChangeTracksDriftFromBase(t *testing.T) {
	g := New(3)

	q := g.Quote(hydra)
	require.NotNil(t, q.Change24h)
	want := (q.Price - hydra.BasePrice) / hydra.BasePrice * 100
	assert.InDelta(t, want, *q.Change24h, 1e-9)
}

func TestQuoteWalksPerSymbol(t *testing.T) {
	g := New(5)
	other := domain.TrackedSymbol{Symbol: "TEST/USDC", Synthetic: true, BasePrice: 100}

	for i := 0; i < 100; i++ {
		g.Quote(hydra)
		q := g.Quote(other)
		assert.GreaterOrEqual(t, q.Price, 90.0)
		assert.LessOrEqual(t, q.Price, 110.0)
	}
}

func TestQuoteConcurrentAccess(t *testing.T) {
	g := New(9)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				q := g.Quote(hydra)
				assert.Positive(t, q.Price)
			}
		}()
	}
	wg.Wait()
}
