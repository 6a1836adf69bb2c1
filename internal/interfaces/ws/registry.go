package ws

import "sync"

// Registry is the bidirectional subscription index: symbol -> connection ids
// and connection id -> symbols. Both directions are mutated under one mutex
// so no interleaving of subscribe/unsubscribe/drop can leave the two sides
// disagreeing. Empty sets are pruned to bound memory.
type Registry struct {
	mu       sync.RWMutex
	bySymbol map[string]map[string]struct{}
	byConn   map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		bySymbol: make(map[string]map[string]struct{}),
		byConn:   make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Subscribe(connID string, symbols []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn := r.byConn[connID]
	if conn == nil {
		conn = make(map[string]struct{})
		r.byConn[connID] = conn
	}
	for _, sym := range symbols {
		conn[sym] = struct{}{}
		set := r.bySymbol[sym]
		if set == nil {
			set = make(map[string]struct{})
			r.bySymbol[sym] = set
		}
		set[connID] = struct{}{}
	}
}

// Unsubscribe removes the given symbols. Symbols the connection never
// subscribed to are a no-op.
func (r *Registry) Unsubscribe(connID string, symbols []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn := r.byConn[connID]
	for _, sym := range symbols {
		if conn != nil {
			delete(conn, sym)
		}
		if set := r.bySymbol[sym]; set != nil {
			delete(set, connID)
			if len(set) == 0 {
				delete(r.bySymbol, sym)
			}
		}
	}
	if conn != nil && len(conn) == 0 {
		delete(r.byConn, connID)
	}
}

// Drop removes the connection from every symbol set. Idempotent.
func (r *Registry) Drop(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sym := range r.byConn[connID] {
		if set := r.bySymbol[sym]; set != nil {
			delete(set, connID)
			if len(set) == 0 {
				delete(r.bySymbol, sym)
			}
		}
	}
	delete(r.byConn, connID)
}

// Subscribers returns the connection ids currently subscribed to symbol.
func (r *Registry) Subscribers(symbol string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.bySymbol[symbol]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Symbols returns the symbols a connection is subscribed to.
func (r *Registry) Symbols(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byConn[connID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	return out
}

// SubscriberCounts returns the current per-symbol subscriber counts.
func (r *Registry) SubscriberCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.bySymbol))
	for sym, set := range r.bySymbol {
		out[sym] = len(set)
	}
	return out
}
