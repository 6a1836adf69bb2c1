// Package jupiter adapts the Jupiter price API (quotes keyed by token mint).
package jupiter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
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

func (s *Source) Name() string { return "jupiter" }

type priceResponse struct {
	Data map[string]struct {
		ID    string `json:"id"`
		Price string `json:"price"`
	} `json:"data"`
}

// Fetch quotes every symbol that has a mint mapping in one batched request.
// Any transport or payload error yields an empty result; errors never cross
// the adapter boundary.
func (s *Source) Fetch(ctx context.Context, symbols []domain.TrackedSymbol) map[string]domain.RawQuote {
	mintToSymbol := make(map[string]string, len(symbols))
	mints := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym.JupiterMint == "" {
			continue
		}
		mintToSymbol[sym.JupiterMint] = sym.Symbol
		mints = append(mints, sym.JupiterMint)
	}
	if len(mints) == 0 {
		return map[string]domain.RawQuote{}
	}

	u := s.baseURL + "?ids=" + url.QueryEscape(strings.Join(mints, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return map[string]domain.RawQuote{}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("jupiter fetch failed")
		return map[string]domain.RawQuote{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("jupiter returned non-200")
		return map[string]domain.RawQuote{}
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Warn().Err(err).Msg("jupiter payload malformed")
		return map[string]domain.RawQuote{}
	}

	out := make(map[string]domain.RawQuote, len(body.Data))
	for mint, entry := range body.Data {
		symbol, ok := mintToSymbol[mint]
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(entry.Price, 64)
		if err != nil {
			continue
		}
		// Jupiter quotes spot price only; 24h analytics stay unknown.
		q := domain.RawQuote{Price: price}
		if !q.Valid() {
			continue
		}
		out[symbol] = q
	}
	return out
}
