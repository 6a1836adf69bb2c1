package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hydra/internal/application/port"
	"hydra/internal/domain"

	"github.com/rs/zerolog/log"
)

// CycleObserver receives operational counters from the aggregation loop.
type CycleObserver interface {
	CycleDone(attempted, resolved int, elapsed time.Duration)
	CycleSkipped()
	SourceFetch(source string, symbols int, ok bool)
}

type noopObserver struct{}

func (noopObserver) CycleDone(int, int, time.Duration) {}
func (noopObserver) CycleSkipped()                     {}
func (noopObserver) SourceFetch(string, int, bool)     {}

// AggregatorDeps wires the aggregation loop.
type AggregatorDeps struct {
	Sources      []port.Source
	Resolver     *Resolver
	Repo         port.PriceRepository
	Publisher    port.Publisher
	Symbols      []domain.TrackedSymbol
	Interval     time.Duration
	FetchTimeout time.Duration
	Observer     CycleObserver
}

// Aggregator runs the fixed-cadence cycle: fetch all sources concurrently,
// resolve every tracked symbol, persist each record, hand it to fan-out.
// At most one cycle is active at a time; a tick arriving while the previous
// cycle still runs is skipped.
type Aggregator struct {
	deps    AggregatorDeps
	running atomic.Bool
}

func NewAggregator(deps AggregatorDeps) *Aggregator {
	if deps.Interval <= 0 {
		deps.Interval = 5 * time.Second
	}
	if deps.FetchTimeout <= 0 {
		deps.FetchTimeout = 10 * time.Second
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	return &Aggregator{deps: deps}
}

// Run blocks until ctx is cancelled. The first cycle starts immediately.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.deps.Interval)
	defer ticker.Stop()

	a.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *Aggregator) tick(ctx context.Context) {
	if !a.running.CompareAndSwap(false, true) {
		log.Warn().Msg("previous aggregation cycle still running, skipping tick")
		a.deps.Observer.CycleSkipped()
		return
	}
	go func() {
		defer a.running.Store(false)
		a.runCycle(ctx)
	}()
}

// RunCycleForTest executes one synchronous cycle. Only used from tests.
func (a *Aggregator) RunCycleForTest(ctx context.Context) { a.runCycle(ctx) }

func (a *Aggregator) runCycle(ctx context.Context) {
	start := time.Now()

	quotes := a.fetchAll(ctx)

	var (
		wg       sync.WaitGroup
		resolved atomic.Int64
	)
	now := time.Now()
	for _, sym := range a.deps.Symbols {
		wg.Add(1)
		go func(sym domain.TrackedSymbol) {
			defer wg.Done()
			rec, ok := a.deps.Resolver.Resolve(sym, quotes, now)
			if !ok {
				log.Debug().Str("symbol", sym.Symbol).Msg("no source produced data this cycle")
				return
			}
			resolved.Add(1)

			// Persistence failure must not block fan-out: subscribers
			// still see the freshest value.
			if err := a.deps.Repo.Append(ctx, rec); err != nil {
				log.Error().Err(err).Str("symbol", rec.Symbol).Msg("persist price record failed")
			}
			a.deps.Publisher.Publish(rec)
		}(sym)
	}
	wg.Wait()

	elapsed := time.Since(start)
	a.deps.Observer.CycleDone(len(a.deps.Symbols), int(resolved.Load()), elapsed)
	log.Debug().
		Int("attempted", len(a.deps.Symbols)).
		Int64("resolved", resolved.Load()).
		Dur("elapsed", elapsed).
		Msg("aggregation cycle done")
}

// fetchAll queries every source concurrently with a per-source timeout and
// joins the results. A failed or slow source contributes an empty result;
// it never cancels or taints its siblings.
func (a *Aggregator) fetchAll(ctx context.Context) map[string]map[string]domain.RawQuote {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		quotes = make(map[string]map[string]domain.RawQuote, len(a.deps.Sources))
	)
	for _, src := range a.deps.Sources {
		wg.Add(1)
		go func(src port.Source) {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, a.deps.FetchTimeout)
			defer cancel()

			res := src.Fetch(fctx, a.deps.Symbols)
			a.deps.Observer.SourceFetch(src.Name(), len(res), len(res) > 0)

			mu.Lock()
			quotes[src.Name()] = res
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	return quotes
}
