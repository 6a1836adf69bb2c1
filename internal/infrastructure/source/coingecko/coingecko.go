// Package coingecko adapts the CoinGecko markets API (spot prices keyed by
// coin id, with 24h analytics when the upstream has them).
package coingecko

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hydra/internal/domain"
)

const defaultTimeout = 10 * time.Second

type Source struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Source {
	return &Source{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (s *Source) Name() string { return "coingecko" }

type marketEntry struct {
	ID           string   `json:"id"`
	CurrentPrice *float64 `json:"current_price"`
	Change24h    *float64 `json:"price_change_percentage_24h"`
	Volume24h    *float64 `json:"total_volume"`
	High24h      *float64 `json:"high_24h"`
	Low24h       *float64 `json:"low_24h"`
	MarketCap    *float64 `json:"market_cap"`
}

func (s *Source) Fetch(ctx context.Context, symbols []domain.TrackedSymbol) map[string]domain.RawQuote {
	idToSymbol := make(map[string]string, len(symbols))
	ids := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym.CoingeckoID == "" {
			continue
		}
		idToSymbol[sym.CoingeckoID] = sym.Symbol
		ids = append(ids, sym.CoingeckoID)
	}
	if len(ids) == 0 {
		return map[string]domain.RawQuote{}
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(ids, ","))
	u := s.baseURL + "/coins/markets?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return map[string]domain.RawQuote{}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("coingecko fetch failed")
		return map[string]domain.RawQuote{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("coingecko returned non-200")
		return map[string]domain.RawQuote{}
	}

	var entries []marketEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		log.Warn().Err(err).Msg("coingecko payload malformed")
		return map[string]domain.RawQuote{}
	}

	out := make(map[string]domain.RawQuote, len(entries))
	for _, e := range entries {
		symbol, ok := idToSymbol[e.ID]
		if !ok || e.CurrentPrice == nil {
			continue
		}
		quote := domain.RawQuote{
			Price:     *e.CurrentPrice,
			Change24h: e.Change24h,
			Volume24h: e.Volume24h,
			High24h:   e.High24h,
			Low24h:    e.Low24h,
			MarketCap: e.MarketCap,
		}
		if !quote.Valid() {
			continue
		}
		out[symbol] = quote
	}
	return out
}
