package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"newswatch/monitor/internal/models"
)

// Mirror receives the full archive snapshot after every run. The store
// stays authoritative; a mirror failure is a warning, never a run error.
type Mirror interface {
	Enabled() bool
	Sync(records []models.Record) error
}

// Engine turns one fetched candidate batch into the subset that has
// never been seen before, with the store as ground truth.
type Engine struct {
	store  Store
	mirror Mirror
}

// NewEngine creates an Engine. mirror may be nil to disable mirroring.
func NewEngine(store Store, mirror Mirror) *Engine {
	return &Engine{store: store, mirror: mirror}
}

// Archive persists every candidate not yet held by the store and returns
// the freshly-inserted subset in candidate order. Re-running with an
// identical batch yields an empty result and leaves the store unchanged,
// which is what makes repeated polling over the same remote data safe.
//
// A single failing insert is logged and skipped; an error is returned
// only when every candidate in a non-empty batch failed, since that
// points at the backend rather than at one bad record.
func (e *Engine) Archive(ctx context.Context, batch []models.Record) ([]models.Record, error) {
	firstSeen := time.Now().UTC()

	var fresh []models.Record
	failures := 0
	for _, candidate := range batch {
		candidate.FirstSeenAt = firstSeen

		inserted, err := e.store.InsertIfAbsent(ctx, &candidate)
		if err != nil {
			failures++
			log.Warn().
				Err(err).
				Str("identity", candidate.Identity).
				Str("title", candidate.Title).
				Msg("Failed to archive candidate, will retry on a future run")
			continue
		}
		if inserted {
			fresh = append(fresh, candidate)
			log.Debug().
				Str("identity", candidate.Identity).
				Str("title", candidate.Title).
				Msg("Archived new record")
		} else {
			log.Debug().
				Str("identity", candidate.Identity).
				Msg("Duplicate identity, already archived")
		}
	}

	// The mirror is synced even on an all-duplicates run so it never
	// drifts from the store.
	e.syncMirror(ctx)

	if len(batch) > 0 && failures == len(batch) {
		return fresh, fmt.Errorf("all %d candidates failed to archive", failures)
	}

	log.Info().
		Int("candidates", len(batch)).
		Int("new", len(fresh)).
		Int("failures", failures).
		Msg("Batch archived")
	return fresh, nil
}

func (e *Engine) syncMirror(ctx context.Context) {
	if e.mirror == nil || !e.mirror.Enabled() {
		return
	}

	snapshot, err := e.store.ListAll(ctx, 0)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read archive for mirror sync")
		return
	}

	if err := e.mirror.Sync(snapshot); err != nil {
		log.Warn().Err(err).Msg("Failed to sync mirror, store remains authoritative")
	}
}
