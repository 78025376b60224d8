// Package monitor drives the fetch → archive → deliver cycle.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"newswatch/monitor/internal/archive"
	"newswatch/monitor/internal/models"
)

// Fetcher produces one candidate batch from the remote source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.Record, error)
}

// Notifier receives the newly-archived subset of a run. Its failure is
// reported but never un-archives a record.
type Notifier interface {
	Send(ctx context.Context, records []models.Record) error
}

// Monitor executes polling runs against a single archive engine.
type Monitor struct {
	engine   *archive.Engine
	fetcher  Fetcher
	notifier Notifier
	interval time.Duration
	dryRun   bool
}

// New creates a Monitor. An interval of 0 means Run performs a single
// cycle; dryRun archives normally but suppresses delivery.
func New(engine *archive.Engine, fetcher Fetcher, notifier Notifier, interval time.Duration, dryRun bool) *Monitor {
	return &Monitor{
		engine:   engine,
		fetcher:  fetcher,
		notifier: notifier,
		interval: interval,
		dryRun:   dryRun,
	}
}

// RunOnce performs one full cycle and returns how many new records were
// discovered. Fetch and archive failures abort this run only; the store
// and mirror are left as the previous successful run wrote them.
func (m *Monitor) RunOnce(ctx context.Context) (int, error) {
	batch, err := m.fetcher.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch failed: %w", err)
	}
	log.Debug().Int("candidates", len(batch)).Msg("Fetched candidate batch")

	fresh, err := m.engine.Archive(ctx, batch)
	if err != nil {
		return len(fresh), fmt.Errorf("archive failed: %w", err)
	}

	if len(fresh) == 0 {
		log.Info().Msg("No new records detected")
		return 0, nil
	}
	log.Info().Int("new", len(fresh)).Msg("Identified new records")

	switch {
	case m.dryRun:
		log.Info().Msg("Dry run enabled, skipping delivery")
	case m.notifier == nil:
		log.Warn().Msg("No notifier configured, skipping delivery")
	default:
		// Delivery failure is independent of archival: the records are
		// committed and will not be re-sent on a later run.
		if err := m.notifier.Send(ctx, fresh); err != nil {
			log.Error().Err(err).Msg("Delivery failed, records remain archived")
		}
	}

	return len(fresh), nil
}

// Run executes RunOnce immediately and then on every interval tick until
// the context is cancelled. Run failures are logged and the loop
// continues; only cancellation ends it.
func (m *Monitor) Run(ctx context.Context) error {
	if m.interval <= 0 {
		_, err := m.RunOnce(ctx)
		return err
	}

	log.Info().Dur("interval", m.interval).Msg("Starting monitor loop")

	if _, err := m.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info().Msg("Run canceled, shutting down monitor loop")
			return nil
		}
		log.Error().Err(err).Msg("Run failed")
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					log.Info().Msg("Run canceled, shutting down monitor loop")
					return nil
				}
				log.Error().Err(err).Msg("Run failed")
			}
			log.Debug().
				Time("next_run", time.Now().Add(m.interval)).
				Msg("Waiting for next run")

		case <-ctx.Done():
			log.Info().Msg("Shutting down monitor loop")
			return nil
		}
	}
}
