package portfolio

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/modules/pricing"
)

// Service computes valuation views and refreshes market prices.
type Service struct {
	positions *PositionRepository
	pricing   *pricing.Service
	log       zerolog.Logger
}

// NewService creates a new portfolio service.
func NewService(positions *PositionRepository, pricingSvc *pricing.Service, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		pricing:   pricingSvc,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// Valuate prices one position at its last known market price.
// Percentage change is 0 when nothing was invested - never a division error.
func Valuate(pos Position) Valuation {
	val := Valuation{
		Position:    pos,
		Invested:    pos.Quantity * pos.AvgPrice,
		MarketValue: pos.Quantity * pos.CurrentPrice,
	}
	val.UnrealizedPL = val.MarketValue - val.Invested
	if val.Invested > 0 {
		val.PctChange = val.UnrealizedPL / val.Invested * 100
	}
	return val
}

// Summarize totals a set of valuations. The portfolio percentage is
// zero-guarded the same way as the per-position one.
func Summarize(valuations []Valuation) Summary {
	var sum Summary
	for _, val := range valuations {
		sum.TotalInvested += val.Invested
		sum.TotalValue += val.MarketValue
	}
	sum.NetPL = sum.TotalValue - sum.TotalInvested
	if sum.TotalInvested > 0 {
		sum.PctChange = sum.NetPL / sum.TotalInvested * 100
	}
	return sum
}

// Valuations returns all held positions priced, plus the portfolio summary.
func (s *Service) Valuations(owner string) ([]Valuation, Summary, error) {
	positions, err := s.positions.GetHeld(owner)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("failed to load positions: %w", err)
	}

	valuations := make([]Valuation, 0, len(positions))
	for _, pos := range positions {
		valuations = append(valuations, Valuate(pos))
	}
	return valuations, Summarize(valuations), nil
}

// Heatmap returns display tiles for all held positions, largest market value
// first.
func (s *Service) Heatmap(owner string) ([]HeatmapCell, error) {
	valuations, _, err := s.Valuations(owner)
	if err != nil {
		return nil, err
	}

	cells := make([]HeatmapCell, 0, len(valuations))
	for _, val := range valuations {
		cells = append(cells, HeatmapCell{
			Symbol:       val.Symbol,
			MarketValue:  val.MarketValue,
			UnrealizedPL: val.UnrealizedPL,
			PctChange:    val.PctChange,
			Band:         band(val.PctChange),
		})
	}

	sort.Slice(cells, func(i, j int) bool {
		return cells[i].MarketValue > cells[j].MarketValue
	})
	return cells, nil
}

// RefreshPrices resolves a current price for every held symbol and stores it.
// Symbols that resolve to the 0 sentinel keep their previous price - stale
// beats zeroed-out. Returns the number of positions updated.
func (s *Service) RefreshPrices(ctx context.Context, owner string, rates pricing.Rates) (int, error) {
	positions, err := s.positions.GetHeld(owner)
	if err != nil {
		return 0, fmt.Errorf("failed to load positions: %w", err)
	}

	updated := 0
	for _, pos := range positions {
		price := s.pricing.Resolve(ctx, pos.Symbol, rates)
		if price <= 0 {
			s.log.Debug().Str("symbol", pos.Symbol).Msg("No price available, keeping last known")
			continue
		}
		if err := s.positions.UpdateCurrentPrice(owner, pos.Symbol, price); err != nil {
			return updated, err
		}
		updated++
	}

	s.log.Info().Str("owner", owner).Int("updated", updated).Msg("Prices refreshed")
	return updated, nil
}
