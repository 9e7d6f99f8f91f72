// Package retention purges records older than a configurable window.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/disha-labs/insight/pkg/record"
	"github.com/disha-labs/insight/pkg/storage"
)

// Manager enforces the retention window against a store.
type Manager struct {
	store storage.Store
	log   zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a retention manager.
func New(store storage.Store, log zerolog.Logger) *Manager {
	return &Manager{store: store, log: log, now: time.Now}
}

// Cleanup drops records strictly older than retentionDays and returns how
// many were removed. Records at or after the cutoff survive and are
// regrouped into their own day partitions by the store's Rewrite; a flat
// rewrite would collapse every partition into one, because LoadAll merges
// all partitions into a single list.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}

	cutoff := m.now().UTC().AddDate(0, 0, -retentionDays)

	recs, err := m.store.LoadAll(ctx, storage.LoadOptions{})
	if err != nil {
		return 0, fmt.Errorf("load records for cleanup: %w", err)
	}

	survivors := make([]record.Record, 0, len(recs))
	for _, r := range recs {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		survivors = append(survivors, r)
	}

	removed := len(recs) - len(survivors)
	if removed == 0 {
		return 0, nil
	}

	// Rewrite before reporting success: the store writes each surviving
	// partition atomically and only then deletes emptied ones, so a crash
	// mid-cleanup leaves stale records rather than losing survivors.
	if err := m.store.Rewrite(ctx, survivors); err != nil {
		return 0, fmt.Errorf("rewrite surviving records: %w", err)
	}

	m.log.Info().
		Int("removed", removed).
		Int("surviving", len(survivors)).
		Time("cutoff", cutoff).
		Msg("retention cleanup complete")
	return removed, nil
}
