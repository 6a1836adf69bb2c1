package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"hydra/internal/application/port"
	"hydra/internal/domain"
)

// HubConfig carries the session-manager knobs.
type HubConfig struct {
	// AuthGrace is how long an unauthenticated connection may exist.
	AuthGrace time.Duration
	// StaleAfter is the idle threshold beyond which the reaper disconnects.
	StaleAfter time.Duration
	// ReaperInterval is the reaper cadence.
	ReaperInterval time.Duration
}

func (c *HubConfig) applyDefaults() {
	if c.AuthGrace <= 0 {
		c.AuthGrace = 10 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 60 * time.Second
	}
	if c.ReaperInterval <= 0 {
		c.ReaperInterval = 30 * time.Second
	}
}

// ConnectionGauge tracks the live connection count (prometheus gauge in
// production, nil is fine).
type ConnectionGauge interface {
	Inc()
	Dec()
}

// PushCounter counts frames handed to client send buffers.
type PushCounter interface {
	Inc()
}

// Hub is the connection session manager and fan-out layer in one: it owns
// every Session, the subscription Registry, the idle reaper, and the
// Publish path that pushes resolved records to interested connections.
type Hub struct {
	cfg      HubConfig
	verifier port.Verifier
	registry *Registry
	upgrader websocket.Upgrader

	tracked map[string]struct{}

	mu       sync.RWMutex
	sessions map[string]*Session

	connGauge ConnectionGauge
	pushCount PushCounter
}

func NewHub(cfg HubConfig, verifier port.Verifier, symbols []domain.TrackedSymbol) *Hub {
	cfg.applyDefaults()

	tracked := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		tracked[sym.Symbol] = struct{}{}
	}

	return &Hub{
		cfg:      cfg,
		verifier: verifier,
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		tracked:  tracked,
		sessions: make(map[string]*Session),
	}
}

// SetMetrics attaches optional instrumentation.
func (h *Hub) SetMetrics(gauge ConnectionGauge, pushes PushCounter) {
	h.connGauge = gauge
	h.pushCount = pushes
}

// Registry exposes the subscription index to the status surface.
func (h *Hub) Registry() *Registry { return h.registry }

// HandleWS upgrades an HTTP request into a managed session.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := newSession(uuid.NewString(), conn, h)

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	if h.connGauge != nil {
		h.connGauge.Inc()
	}

	go s.writePump()
	go s.readPump()

	// Authentication deadline: no valid token within the grace period
	// closes the connection.
	time.AfterFunc(h.cfg.AuthGrace, func() {
		if !s.authed.Load() {
			s.push(marshalError("authentication timeout"))
			log.Info().Str("conn", s.id).Msg("authentication grace expired, closing")
			s.close()
		}
	})

	log.Info().Str("conn", s.id).Str("remote", conn.RemoteAddr().String()).Msg("client connected")
}

// detach removes a session from the hub and the registry. After detach
// returns the session can no longer be selected for fan-out.
func (h *Hub) detach(s *Session) {
	h.registry.Drop(s.id)

	h.mu.Lock()
	_, present := h.sessions[s.id]
	delete(h.sessions, s.id)
	h.mu.Unlock()

	if present {
		if h.connGauge != nil {
			h.connGauge.Dec()
		}
		log.Info().Str("conn", s.id).Msg("client disconnected")
	}
}

// Publish pushes a record to exactly the connections subscribed to its
// symbol at publish time. Per-recipient failures (slow buffer, racing
// disconnect) are isolated; this never blocks the aggregation cycle.
func (h *Hub) Publish(rec domain.PriceRecord) {
	ids := h.registry.Subscribers(rec.Symbol)
	if len(ids) == 0 {
		return
	}

	data, err := marshalPriceUpdate(rec)
	if err != nil {
		log.Error().Err(err).Str("symbol", rec.Symbol).Msg("marshal price update failed")
		return
	}

	h.mu.RLock()
	targets := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := h.sessions[id]; ok {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if s.push(data) && h.pushCount != nil {
			h.pushCount.Inc()
		}
	}
}

// RunReaper periodically force-disconnects sessions whose last activity
// exceeds the staleness threshold. Blocks until ctx is cancelled.
func (h *Hub) RunReaper(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case now := <-ticker.C:
			h.reap(now)
		}
	}
}

func (h *Hub) reap(now time.Time) {
	h.mu.RLock()
	stale := make([]*Session, 0)
	for _, s := range h.sessions {
		if s.idleFor(now) > h.cfg.StaleAfter {
			stale = append(stale, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range stale {
		log.Info().Str("conn", s.id).Dur("idle", s.idleFor(now)).Msg("reaping stale session")
		s.close()
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	all := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		all = append(all, s)
	}
	h.mu.RUnlock()

	for _, s := range all {
		s.close()
	}
}

// ActiveConnections returns the live session count.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) filterTracked(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		n := domain.NormalizeSymbol(sym)
		if _, ok := h.tracked[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

var _ port.Publisher = (*Hub)(nil)
