// Package badgerstore implements storage.Store on BadgerDB for
// deployments that prefer a single embedded database over a directory of
// day files. Keys sort by record timestamp, so date-bounded loads can
// stop early instead of scanning the whole keyspace.
package badgerstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/disha-labs/insight/pkg/record"
	"github.com/disha-labs/insight/pkg/storage"
)

// Config holds BadgerDB configuration.
type Config struct {
	// Path to the database directory.
	Path string

	// InMemory mode (for testing).
	InMemory bool

	// MaxMemoryMB limits BadgerDB memory usage (0 = 48 MB default).
	MaxMemoryMB int64
}

// Store implements storage.Store using BadgerDB.
type Store struct {
	db *badger.DB
}

// New opens a BadgerDB-backed record store.
func New(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	memTableSize := int64(16 * 1024 * 1024)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3
	}

	// Record payloads are small JSON blobs; bound every cache so the
	// store stays usable on modest hardware.
	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(3).
		WithBlockCacheSize(memTableSize / 2).
		WithIndexCacheSize(memTableSize / 4).
		WithMaxLevels(4).
		WithValueThreshold(1024).
		WithNumCompactors(2).
		WithValueLogFileSize(64 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Append stores one record.
func (s *Store) Append(ctx context.Context, rec record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(rec), value)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrWrite, err)
	}
	return nil
}

// LoadAll returns records within the date bounds in timestamp order.
func (s *Store) LoadAll(ctx context.Context, opts storage.LoadOptions) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []record.Record
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchSize = 100

		it := txn.NewIterator(iterOpts)
		defer it.Close()

		var count int
		for it.Rewind(); it.Valid(); it.Next() {
			count++
			if count%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			ts := keyTimestamp(it.Item().Key())
			if !opts.From.IsZero() && ts.Before(opts.From) {
				continue
			}
			if !opts.To.IsZero() && ts.After(opts.To) {
				// Keys are time-ordered, nothing later can match.
				break
			}

			err := it.Item().Value(func(val []byte) error {
				var rec record.Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				results = append(results, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Rewrite replaces the full record set by diffing against the stored
// keys: stale keys are deleted and missing records written in one batch.
// Existing data is never touched before the batch commits, so a crash or
// error mid-rewrite leaves the previous record set fully intact.
func (s *Store) Rewrite(ctx context.Context, recs []record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Encode up front so a marshal failure aborts before any mutation.
	keep := make(map[string][]byte, len(recs))
	for _, rec := range recs {
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		keep[string(makeKey(rec))] = value
	}

	var stale [][]byte
	missing := make(map[string][]byte, len(keep))
	for k, v := range keep {
		missing[k] = v
	}
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false

		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if _, ok := keep[string(key)]; ok {
				delete(missing, string(key))
				continue
			}
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("%w: batch delete: %v", storage.ErrWrite, err)
		}
	}
	for k, v := range missing {
		if err := wb.Set([]byte(k), v); err != nil {
			return fmt.Errorf("%w: batch set: %v", storage.ErrWrite, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %v", storage.ErrWrite, err)
	}
	return nil
}

// Stats iterates keys only (no value prefetch) to report counts and the
// stored date range.
func (s *Store) Stats(ctx context.Context) (*storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &storage.Stats{}
	var oldest, newest time.Time

	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false

		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			stats.TotalRecords++
			ts := keyTimestamp(it.Item().Key())
			if oldest.IsZero() || ts.Before(oldest) {
				oldest = ts
			}
			if newest.IsZero() || ts.After(newest) {
				newest = ts
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if stats.TotalRecords > 0 {
		stats.OldestDate = oldest.UTC().Format("2006-01-02")
		stats.NewestDate = newest.UTC().Format("2006-01-02")
		stats.LastModified = newest
	}
	lsm, vlog := s.db.Size()
	stats.SizeBytes = lsm + vlog
	return stats, nil
}

// Close shuts down BadgerDB cleanly.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs BadgerDB's value log garbage collection to reclaim disk
// space from deleted records.
func (s *Store) RunGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// makeKey builds a time-sortable key: [timestamp (8 bytes)][id hash (8 bytes)].
// The id hash disambiguates records sharing a timestamp.
func makeKey(rec record.Record) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[0:8], uint64(rec.Timestamp.UnixNano()))
	binary.BigEndian.PutUint64(key[8:16], xxhash.Sum64String(rec.ID))
	return key
}

// keyTimestamp extracts the record timestamp from a storage key.
func keyTimestamp(key []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(key[0:8])))
}
