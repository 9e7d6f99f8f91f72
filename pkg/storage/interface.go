package storage

import (
	"context"
	"errors"
	"time"

	"github.com/disha-labs/insight/pkg/record"
)

// ErrWrite wraps failures on the write path (append, rewrite, cleanup).
// Surfaced to admin callers, swallowed with a log on the fire-and-forget
// collect path.
var ErrWrite = errors.New("storage: write failed")

// Store defines the interface for anonymized record storage backends.
// Implementations: partition (day-partitioned JSON files, production),
// badgerstore (embedded key-value), memory (testing).
type Store interface {
	// Append persists a single record into its day partition.
	Append(ctx context.Context, rec record.Record) error

	// LoadAll returns every stored record within the optional date bounds.
	// A backend that cannot parse part of its data returns the records it
	// could read; unreadable partitions are logged and skipped.
	LoadAll(ctx context.Context, opts LoadOptions) ([]record.Record, error)

	// Rewrite replaces the entire record set, regrouping records into
	// their correct day partitions. Used by retention cleanup and import.
	Rewrite(ctx context.Context, recs []record.Record) error

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close cleanly shuts down the backend.
	Close() error
}

// LoadOptions bounds a load by record date. Zero values mean unbounded.
type LoadOptions struct {
	From time.Time
	To   time.Time
}

// Stats provides storage health and usage info.
type Stats struct {
	// Total records stored
	TotalRecords int `json:"totalEntries"`

	// Oldest and newest partition dates (YYYY-MM-DD), empty when no data
	OldestDate string `json:"oldestDate,omitempty"`
	NewestDate string `json:"newestDate,omitempty"`

	// Storage size in bytes
	SizeBytes int64 `json:"storageSizeBytes"`

	// Last time any partition was written
	LastModified time.Time `json:"lastUpdated"`
}
