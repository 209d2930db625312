// Package portfolio holds the materialized position per (owner, symbol) and
// the valuation views computed from positions and current prices.
package portfolio

// Position is the materialized average-cost state for one (owner, symbol).
// Never hard-deleted; a fully sold position stays with quantity 0 and its
// average cost reset to 0.
type Position struct {
	Owner        string  `json:"-"`
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	Kind         string  `json:"kind"`
}

// Valuation is one position priced at the last known market price.
type Valuation struct {
	Position
	Invested     float64 `json:"invested"`
	MarketValue  float64 `json:"market_value"`
	UnrealizedPL float64 `json:"unrealized_pl"`
	PctChange    float64 `json:"pct_change"`
}

// Summary aggregates valuations across the whole portfolio.
type Summary struct {
	TotalInvested float64 `json:"total_invested"`
	TotalValue    float64 `json:"total_value"`
	NetPL         float64 `json:"net_pl"`
	PctChange     float64 `json:"pct_change"`
}

// Heat-map bands, strongest to weakest. Display-only bucketing of the
// percentage change.
const (
	BandStrongGain = "strong-gain"
	BandGain       = "gain"
	BandMildGain   = "mild-gain"
	BandMildLoss   = "mild-loss"
	BandLoss       = "loss"
	BandStrongLoss = "strong-loss"
)

// HeatmapCell is one tile of the heat-map view.
type HeatmapCell struct {
	Symbol       string  `json:"symbol"`
	MarketValue  float64 `json:"market_value"`
	UnrealizedPL float64 `json:"unrealized_pl"`
	PctChange    float64 `json:"pct_change"`
	Band         string  `json:"band"`
}

// band buckets a percentage change for display.
func band(pct float64) string {
	switch {
	case pct >= 10:
		return BandStrongGain
	case pct >= 3:
		return BandGain
	case pct >= 0:
		return BandMildGain
	case pct <= -10:
		return BandStrongLoss
	case pct <= -3:
		return BandLoss
	default:
		return BandMildLoss
	}
}
