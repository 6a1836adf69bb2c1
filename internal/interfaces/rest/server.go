// Package rest exposes the read-only query surface: current prices, bounded
// history, market summary and the operational status endpoint.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"hydra/internal/application/port"
	"hydra/internal/domain"
	"hydra/internal/interfaces/ws"
)

const summaryTopN = 5

type ServerDeps struct {
	Repo    port.PriceRepository
	Hub     *ws.Hub
	Symbols []domain.TrackedSymbol

	// History window bounds (reference: 1000 points over 7 days).
	HistoryMaxPoints int
	HistoryMaxHours  int
}

type Server struct {
	deps    ServerDeps
	started time.Time
}

func NewServer(deps ServerDeps) *Server {
	if deps.HistoryMaxPoints <= 0 {
		deps.HistoryMaxPoints = 1000
	}
	if deps.HistoryMaxHours <= 0 {
		deps.HistoryMaxHours = 168
	}
	return &Server{deps: deps, started: time.Now()}
}

// Handler builds the full route table, websocket endpoint included.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.deps.Hub.HandleWS)
	mux.HandleFunc("GET /api/v1/prices", s.handleAllPrices)
	mux.HandleFunc("GET /api/v1/prices/{symbol...}", s.handlePrice)
	mux.HandleFunc("GET /api/v1/history/{symbol...}", s.handleHistory)
	mux.HandleFunc("GET /api/v1/market/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.Info().Str("addr", addr).Msg("http server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleAllPrices(w http.ResponseWriter, r *http.Request) {
	out := make([]domain.PriceRecord, 0, len(s.deps.Symbols))
	for _, sym := range s.deps.Symbols {
		rec, ok, err := s.deps.Repo.Latest(r.Context(), sym.Symbol)
		if err != nil {
			log.Error().Err(err).Str("symbol", sym.Symbol).Msg("latest lookup failed")
			continue
		}
		if ok {
			out = append(out, rec)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(r.PathValue("symbol"))
	if !s.isTracked(symbol) {
		writeError(w, http.StatusNotFound, "unknown symbol")
		return
	}

	rec, ok, err := s.deps.Repo.Latest(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no data yet")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(r.PathValue("symbol"))
	if !s.isTracked(symbol) {
		writeError(w, http.StatusNotFound, "unknown symbol")
		return
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid hours")
			return
		}
		hours = parsed
	}
	if hours > s.deps.HistoryMaxHours {
		hours = s.deps.HistoryMaxHours
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	recs, err := s.deps.Repo.History(r.Context(), symbol, since, s.deps.HistoryMaxPoints)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}
	if recs == nil {
		recs = []domain.PriceRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	records := make([]domain.PriceRecord, 0, len(s.deps.Symbols))
	for _, sym := range s.deps.Symbols {
		rec, ok, err := s.deps.Repo.Latest(r.Context(), sym.Symbol)
		if err != nil {
			log.Error().Err(err).Str("symbol", sym.Symbol).Msg("latest lookup failed")
			continue
		}
		if ok {
			records = append(records, rec)
		}
	}
	writeJSON(w, http.StatusOK, domain.Summarize(records, summaryTopN))
}

type statusResponse struct {
	UptimeSec         int64          `json:"uptime_sec"`
	ActiveConnections int            `json:"active_connections"`
	Subscribers       map[string]int `json:"subscribers_per_symbol"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		UptimeSec:         int64(time.Since(s.started).Seconds()),
		ActiveConnections: s.deps.Hub.ActiveConnections(),
		Subscribers:       s.deps.Hub.Registry().SubscriberCounts(),
	})
}

func (s *Server) isTracked(symbol string) bool {
	for _, sym := range s.deps.Symbols {
		if sym.Symbol == symbol {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, map[string]string{"error": reason})
}
