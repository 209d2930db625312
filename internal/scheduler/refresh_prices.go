package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/modules/portfolio"
	"github.com/ozank/portfoy/internal/modules/pricing"
)

// RefreshPricesJob re-resolves current prices for every held position of
// every owner. A failing quote source leaves the last known prices in place.
type RefreshPricesJob struct {
	positions *portfolio.PositionRepository
	folio     *portfolio.Service
	pricing   *pricing.Service
	log       zerolog.Logger
}

// NewRefreshPricesJob creates the periodic price refresh job.
func NewRefreshPricesJob(positions *portfolio.PositionRepository, folio *portfolio.Service, pricingSvc *pricing.Service, log zerolog.Logger) *RefreshPricesJob {
	return &RefreshPricesJob{
		positions: positions,
		folio:     folio,
		pricing:   pricingSvc,
		log:       log.With().Str("job", "refresh_prices").Logger(),
	}
}

// Name implements Job.
func (j *RefreshPricesJob) Name() string {
	return "refresh_prices"
}

// Run implements Job. One rate snapshot is shared across all owners so the
// derived metal prices stay consistent within a single pass.
func (j *RefreshPricesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	owners, err := j.positions.Owners()
	if err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}
	if len(owners) == 0 {
		return nil
	}

	rates := j.pricing.Snapshot(ctx, "")

	for _, owner := range owners {
		if _, err := j.folio.RefreshPrices(ctx, owner, rates); err != nil {
			// One owner's storage failure should not starve the others.
			j.log.Error().Err(err).Str("owner", owner).Msg("Refresh failed for owner")
		}
	}
	return nil
}
