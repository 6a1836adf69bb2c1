package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydra/internal/application/port"
	"hydra/internal/domain"
)

type stubSource struct {
	name   string
	quotes map[string]domain.RawQuote
	delay  time.Duration

	mu    sync.Mutex
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, symbols []domain.TrackedSymbol) map[string]domain.RawQuote {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return map[string]domain.RawQuote{}
		}
	}
	return s.quotes
}

type memRepo struct {
	mu      sync.Mutex
	records []domain.PriceRecord
	failOn  string
}

func (m *memRepo) Append(ctx context.Context, rec domain.PriceRecord) error {
	if rec.Symbol == m.failOn {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memRepo) Latest(ctx context.Context, symbol string) (domain.PriceRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].Symbol == symbol {
			return m.records[i], true, nil
		}
	}
	return domain.PriceRecord{}, false, nil
}

func (m *memRepo) History(ctx context.Context, symbol string, since time.Time, limit int) ([]domain.PriceRecord, error) {
	return nil, nil
}

func (m *memRepo) Close() error { return nil }

type capturePublisher struct {
	mu   sync.Mutex
	recs []domain.PriceRecord
}

func (c *capturePublisher) Publish(rec domain.PriceRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
}

func (c *capturePublisher) published() []domain.PriceRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.PriceRecord(nil), c.recs...)
}

func symbols(names ...string) []domain.TrackedSymbol {
	out := make([]domain.TrackedSymbol, 0, len(names))
	for _, n := range names {
		out = append(out, domain.TrackedSymbol{Symbol: n})
	}
	return out
}

func TestAggregatorCyclePersistsAndPublishes(t *testing.T) {
	src := &stubSource{name: "jupiter", quotes: map[string]domain.RawQuote{
		"SOL/USDC": {Price: 150},
		"BTC/USDC": {Price: 64000},
	}}
	repo := &memRepo{}
	pub := &capturePublisher{}

	agg := NewAggregator(AggregatorDeps{
		Sources:   []port.Source{src},
		Resolver:  NewResolver([]string{"jupiter"}, nil),
		Repo:      repo,
		Publisher: pub,
		Symbols:   symbols("SOL/USDC", "BTC/USDC", "ETH/USDC"),
	})

	agg.RunCycleForTest(context.Background())

	require.Len(t, repo.records, 2)
	assert.Len(t, pub.published(), 2)
	for _, rec := range pub.published() {
		assert.Equal(t, "jupiter", rec.Source)
	}
}

func TestAggregatorSymbolFailureIsolated(t *testing.T) {
	src := &stubSource{name: "jupiter", quotes: map[string]domain.RawQuote{
		"SOL/USDC": {Price: 150},
		"BTC/USDC": {Price: 64000},
	}}
	repo := &memRepo{failOn: "SOL/USDC"}
	pub := &capturePublisher{}

	agg := NewAggregator(AggregatorDeps{
		Sources:   []port.Source{src},
		Resolver:  NewResolver([]string{"jupiter"}, nil),
		Repo:      repo,
		Publisher: pub,
		Symbols:   symbols("SOL/USDC", "BTC/USDC"),
	})

	agg.RunCycleForTest(context.Background())

	// Persistence failure for one symbol blocks neither its own fan-out nor
	// the other symbol.
	assert.Len(t, pub.published(), 2)
	require.Len(t, repo.records, 1)
	assert.Equal(t, "BTC/USDC", repo.records[0].Symbol)
}

func TestAggregatorSlowSourceDoesNotBlockOthers(t *testing.T) {
	slow := &stubSource{name: "jupiter", delay: 5 * time.Second}
	fast := &stubSource{name: "coingecko", quotes: map[string]domain.RawQuote{
		"SOL/USDC": {Price: 151},
	}}
	repo := &memRepo{}
	pub := &capturePublisher{}

	agg := NewAggregator(AggregatorDeps{
		Sources:      []port.Source{slow, fast},
		Resolver:     NewResolver([]string{"jupiter", "coingecko"}, nil),
		Repo:         repo,
		Publisher:    pub,
		Symbols:      symbols("SOL/USDC"),
		FetchTimeout: 50 * time.Millisecond,
	})

	start := time.Now()
	agg.RunCycleForTest(context.Background())
	assert.Less(t, time.Since(start), time.Second)

	recs := pub.published()
	require.Len(t, recs, 1)
	assert.Equal(t, "coingecko", recs[0].Source)
}

func TestAggregatorNoOverlappingCycles(t *testing.T) {
	// A fetch slower than the tick period must cause skipped ticks, never a
	// second concurrent cycle.
	src := &stubSource{name: "jupiter", delay: 120 * time.Millisecond, quotes: map[string]domain.RawQuote{
		"SOL/USDC": {Price: 150},
	}}
	repo := &memRepo{}
	pub := &capturePublisher{}
	obs := &countingObserver{}

	agg := NewAggregator(AggregatorDeps{
		Sources:      []port.Source{src},
		Resolver:     NewResolver([]string{"jupiter"}, nil),
		Repo:         repo,
		Publisher:    pub,
		Symbols:      symbols("SOL/USDC"),
		Interval:     20 * time.Millisecond,
		FetchTimeout: time.Second,
		Observer:     obs,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_ = agg.Run(ctx)
	time.Sleep(150 * time.Millisecond) // let the in-flight cycle drain

	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	assert.LessOrEqual(t, calls, 3, "cycles must not overlap")
	assert.Greater(t, obs.skips(), 0, "ticks during a running cycle are skipped")
}

type countingObserver struct {
	mu      sync.Mutex
	skipped int
}

func (c *countingObserver) CycleDone(int, int, time.Duration) {}
func (c *countingObserver) CycleSkipped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped++
}
func (c *countingObserver) SourceFetch(string, int, bool) {}

func (c *countingObserver) skips() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skipped
}
