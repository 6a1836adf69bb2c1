package ws

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestRegistrySubscribeBothSides(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("c1", []string{"SOL/USDC", "ETH/USDC"})

	subs := r.Subscribers("SOL/USDC")
	if len(subs) != 1 || subs[0] != "c1" {
		t.Fatalf("expected [c1], got %v", subs)
	}

	syms := r.Symbols("c1")
	sort.Strings(syms)
	if len(syms) != 2 || syms[0] != "ETH/USDC" || syms[1] != "SOL/USDC" {
		t.Fatalf("expected both symbols, got %v", syms)
	}
}

func TestRegistryUnsubscribeIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("c1", []string{"SOL/USDC"})

	// Unsubscribing a never-subscribed symbol is a no-op.
	r.Unsubscribe("c1", []string{"ETH/USDC"})
	if got := r.Symbols("c1"); len(got) != 1 {
		t.Fatalf("expected SOL/USDC to survive, got %v", got)
	}

	r.Unsubscribe("c1", []string{"SOL/USDC"})
	r.Unsubscribe("c1", []string{"SOL/USDC"})
	if got := r.Symbols("c1"); got != nil {
		t.Fatalf("expected empty, got %v", got)
	}
	if got := r.Subscribers("SOL/USDC"); got != nil {
		t.Fatalf("expected pruned subscriber set, got %v", got)
	}
}

func TestRegistryDropRemovesEverywhere(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("c1", []string{"SOL/USDC", "ETH/USDC"})
	r.Subscribe("c2", []string{"SOL/USDC"})

	r.Drop("c1")
	r.Drop("c1") // idempotent

	if got := r.Subscribers("SOL/USDC"); len(got) != 1 || got[0] != "c2" {
		t.Fatalf("expected [c2], got %v", got)
	}
	if got := r.Subscribers("ETH/USDC"); got != nil {
		t.Fatalf("expected ETH/USDC pruned, got %v", got)
	}
	if got := r.Symbols("c1"); got != nil {
		t.Fatalf("expected no symbols for dropped conn, got %v", got)
	}
}

func TestRegistrySubscriberCounts(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("c1", []string{"SOL/USDC"})
	r.Subscribe("c2", []string{"SOL/USDC", "ETH/USDC"})

	counts := r.SubscriberCounts()
	if counts["SOL/USDC"] != 2 || counts["ETH/USDC"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

// The index must stay a mutual inverse of the per-connection sets under
// concurrent subscribe/unsubscribe/drop from many connections.
func TestRegistryConcurrentConsistency(t *testing.T) {
	r := NewRegistry()
	symbols := []string{"SOL/USDC", "ETH/USDC", "BTC/USDC"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			for j := 0; j < 100; j++ {
				r.Subscribe(id, symbols)
				r.Unsubscribe(id, symbols[:1])
				if j%10 == 0 {
					r.Drop(id)
				}
			}
			r.Drop(id)
		}(i)
	}
	wg.Wait()

	// Everything dropped: both directions empty.
	for _, sym := range symbols {
		if got := r.Subscribers(sym); got != nil {
			t.Fatalf("expected no subscribers for %s, got %v", sym, got)
		}
	}
	if counts := r.SubscriberCounts(); len(counts) != 0 {
		t.Fatalf("expected empty counts, got %v", counts)
	}
}

// Cross-check the invariant mid-flight: every (symbol -> conn) entry must
// have its reverse, and vice versa.
func TestRegistryBidirectionalInvariant(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("a", []string{"SOL/USDC", "ETH/USDC"})
	r.Subscribe("b", []string{"ETH/USDC"})
	r.Unsubscribe("a", []string{"SOL/USDC"})

	r.mu.RLock()
	defer r.mu.RUnlock()
	for sym, conns := range r.bySymbol {
		for id := range conns {
			if _, ok := r.byConn[id][sym]; !ok {
				t.Fatalf("forward entry %s->%s missing reverse", sym, id)
			}
		}
	}
	for id, syms := range r.byConn {
		for sym := range syms {
			if _, ok := r.bySymbol[sym][id]; !ok {
				t.Fatalf("reverse entry %s->%s missing forward", id, sym)
			}
		}
	}
}
