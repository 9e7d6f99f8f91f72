package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/disha-labs/insight/pkg/record"
	"github.com/disha-labs/insight/pkg/storage"
)

// Store keeps records in memory. Data is lost on restart.
// Useful for testing and development.
type Store struct {
	recs []record.Record
	mu   sync.RWMutex
}

// New creates an in-memory store.
func New() *Store {
	return &Store{recs: make([]record.Record, 0, 1024)}
}

// Append stores a record in memory.
func (s *Store) Append(ctx context.Context, rec record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

// LoadAll returns all records within the date bounds, oldest date first.
func (s *Store) LoadAll(ctx context.Context, opts storage.LoadOptions) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]record.Record, 0, len(s.recs))
	for _, r := range s.recs {
		if !opts.From.IsZero() && r.Timestamp.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && r.Timestamp.After(opts.To) {
			continue
		}
		results = append(results, r)
	}

	// Match the partition backend's ordering: by day, insertion order
	// within a day.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Date() < results[j].Date()
	})
	return results, nil
}

// Rewrite replaces the stored record set.
func (s *Store) Rewrite(ctx context.Context, recs []record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append([]record.Record(nil), recs...)
	return nil
}

// Stats returns storage statistics.
func (s *Store) Stats(ctx context.Context) (*storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.Stats{TotalRecords: len(s.recs)}
	if len(s.recs) == 0 {
		return stats, nil
	}

	oldest, newest := s.recs[0].Timestamp, s.recs[0].Timestamp
	for _, r := range s.recs {
		if r.Timestamp.Before(oldest) {
			oldest = r.Timestamp
		}
		if r.Timestamp.After(newest) {
			newest = r.Timestamp
		}
	}
	stats.OldestDate = oldest.UTC().Format("2006-01-02")
	stats.NewestDate = newest.UTC().Format("2006-01-02")
	stats.LastModified = time.Now()

	// Rough size estimate; the memory backend has no real files.
	stats.SizeBytes = int64(len(s.recs)) * 512
	return stats, nil
}

// Close is a no-op for memory storage.
func (s *Store) Close() error {
	return nil
}
