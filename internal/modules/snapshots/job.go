package snapshots

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/SzymonLiszewski/investfolio/pkg/date"
)

// Job is the nightly snapshot refresh. It rebuilds yesterday and today for
// every owner with ledger activity; owners with no snapshot history get a
// full backfill from their first transaction instead.
type Job struct {
	builder *Builder
	log     zerolog.Logger
}

// NewJob creates the nightly snapshot job
func NewJob(builder *Builder, log zerolog.Logger) *Job {
	return &Job{
		builder: builder,
		log:     log.With().Str("job", "daily_snapshots").Logger(),
	}
}

// Name implements scheduler.Job
func (j *Job) Name() string {
	return "daily_snapshots"
}

// Run refreshes snapshots for all owners. Per-owner failures are collected
// so one broken portfolio does not starve the rest.
func (j *Job) Run() error {
	owners, err := j.builder.ledger.Owners()
	if err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}

	failed := 0
	for _, owner := range owners {
		if err := j.refreshOwner(owner); err != nil {
			j.log.Error().Err(err).Str("owner", owner).Msg("Snapshot refresh failed")
			failed++
		}
	}

	j.log.Info().Int("owners", len(owners)).Int("failed", failed).Msg("Snapshot refresh finished")

	if failed > 0 {
		return fmt.Errorf("snapshot refresh failed for %d of %d owners", failed, len(owners))
	}
	return nil
}

func (j *Job) refreshOwner(owner string) error {
	latest, err := j.builder.repo.Latest(owner)
	if err != nil {
		return err
	}
	if latest == nil {
		return j.builder.Backfill(owner, "")
	}
	return j.builder.Build(owner, date.Today().Add(-1), date.Today(), latest.Currency)
}
