package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/clientdata"
)

// PurgeCacheJob removes quote-cache entries old enough that no caller would
// accept them even as a stale fallback.
type PurgeCacheJob struct {
	cache  *clientdata.Repository
	maxAge time.Duration
	log    zerolog.Logger
}

// NewPurgeCacheJob creates the periodic cache maintenance job.
func NewPurgeCacheJob(cache *clientdata.Repository, maxAge time.Duration, log zerolog.Logger) *PurgeCacheJob {
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	return &PurgeCacheJob{
		cache:  cache,
		maxAge: maxAge,
		log:    log.With().Str("job", "purge_cache").Logger(),
	}
}

// Name implements Job.
func (j *PurgeCacheJob) Name() string {
	return "purge_cache"
}

// Run implements Job.
func (j *PurgeCacheJob) Run() error {
	deleted, err := j.cache.Purge(j.maxAge)
	if err != nil {
		return fmt.Errorf("failed to purge quote cache: %w", err)
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Quote cache purged")
	}
	return nil
}
