package domain

import "strings"

// TrackedSymbol is one configured trading pair. Provider identifiers are
// per-adapter: an empty identifier means that adapter does not cover the
// symbol. Loaded at startup and immutable afterwards.
type TrackedSymbol struct {
	Symbol      string
	JupiterMint string
	CoingeckoID string

	// Synthetic permits a bounded-random fallback quote around BasePrice
	// when no live source covers the symbol (e.g. a not-yet-listed token).
	Synthetic bool
	BasePrice float64
}

// NormalizeSymbol canonicalizes a pair identifier ("sol/usdc " -> "SOL/USDC").
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
