package domain

import "sort"

// SymbolChange pairs a symbol with its 24h change for gainer/loser ranking.
type SymbolChange struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
}

// MarketSummary aggregates the current records of all tracked symbols.
// Symbols whose 24h fields are unknown contribute to Symbols but not to the
// volume/change aggregates.
type MarketSummary struct {
	Symbols       int            `json:"symbols"`
	TotalVolume   float64        `json:"total_volume_24h"`
	AverageChange float64        `json:"average_change_24h"`
	Bullish       int            `json:"bullish"`
	Bearish       int            `json:"bearish"`
	TopGainers    []SymbolChange `json:"top_gainers"`
	TopLosers     []SymbolChange `json:"top_losers"`
}

// Summarize builds a MarketSummary from the current record per symbol.
// topN bounds the gainer/loser lists.
func Summarize(records []PriceRecord, topN int) MarketSummary {
	s := MarketSummary{Symbols: len(records)}

	changes := make([]SymbolChange, 0, len(records))
	for _, r := range records {
		if r.Volume24h != nil {
			s.TotalVolume += *r.Volume24h
		}
		if r.Change24h == nil {
			continue
		}
		c := *r.Change24h
		switch {
		case c > 0:
			s.Bullish++
		case c < 0:
			s.Bearish++
		}
		changes = append(changes, SymbolChange{Symbol: r.Symbol, Price: r.Price, Change24h: c})
	}

	if len(changes) > 0 {
		var sum float64
		for _, c := range changes {
			sum += c.Change24h
		}
		s.AverageChange = sum / float64(len(changes))
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Change24h > changes[j].Change24h })
	if topN > len(changes) {
		topN = len(changes)
	}
	s.TopGainers = append([]SymbolChange(nil), changes[:topN]...)

	losers := append([]SymbolChange(nil), changes...)
	sort.Slice(losers, func(i, j int) bool { return losers[i].Change24h < losers[j].Change24h })
	s.TopLosers = losers[:topN]

	return s
}
