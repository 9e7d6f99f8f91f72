// Package partition implements the production record store: one JSON
// file per UTC calendar day, each holding the serialized array of
// records that arrived on that day.
//
// Appends are read-modify-write against the day file, so the store
// serializes all mutations behind a single RWMutex; without it two
// overlapping appends to the same partition silently drop one record.
// Every write lands in a temp file first and is renamed into place, so a
// crash mid-write never leaves a half-written partition behind.
package partition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/disha-labs/insight/pkg/record"
	"github.com/disha-labs/insight/pkg/storage"
)

const (
	filePrefix = "records-"
	fileSuffix = ".json"
	dateFormat = "2006-01-02"

	// loadParallelism caps concurrent partition file parses.
	loadParallelism = 4
)

// Config holds partition store configuration.
type Config struct {
	// Dir is the directory holding the partition files. Created if absent.
	Dir string

	// Logger receives skip-and-log notices for unreadable partitions.
	Logger zerolog.Logger
}

// Store implements storage.Store on day-partitioned JSON files.
type Store struct {
	dir string
	log zerolog.Logger

	// Guards all file mutation. Readers take the read lock so queries
	// never observe a partition mid-rewrite.
	mu sync.RWMutex
}

// New creates the partition store, creating the data directory if needed.
// Directory creation is idempotent; failure here is fatal for the
// analytics subsystem and must abort startup.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", cfg.Dir, err)
	}
	return &Store{dir: cfg.Dir, log: cfg.Logger}, nil
}

// Append adds a record to its day partition. The partition file is read,
// extended in memory, and atomically replaced.
func (s *Store) Append(ctx context.Context, rec record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	date := rec.Date()
	recs, err := s.readPartition(s.partitionPath(date))
	switch {
	case errors.Is(err, errCorrupt):
		// A corrupt day file must not block new data for that day.
		// Preserve the broken file for inspection and start fresh.
		s.log.Error().Err(err).Str("date", date).
			Msg("partition corrupt on append, starting fresh partition")
		s.quarantine(date)
		recs = nil
	case err != nil:
		// A transient read failure is not corruption. Fail this one
		// append instead of sidelining a healthy day of records.
		return fmt.Errorf("%w: read %s: %v", storage.ErrWrite, date, err)
	}

	recs = append(recs, rec)
	if err := s.writePartition(date, recs); err != nil {
		return fmt.Errorf("%w: append to %s: %v", storage.ErrWrite, date, err)
	}
	return nil
}

// LoadAll reads every partition within the date bounds. Files are parsed
// in parallel; a file that fails to parse is logged and skipped so
// queries return best-effort results from the remaining partitions.
func (s *Store) LoadAll(ctx context.Context, opts storage.LoadOptions) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dates, err := s.partitionDates()
	if err != nil {
		return nil, err
	}
	dates = boundDates(dates, opts)

	perDate := make([][]record.Record, len(dates))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(loadParallelism)

	for i, date := range dates {
		g.Go(func() error {
			recs, err := s.readPartition(s.partitionPath(date))
			if err != nil {
				s.log.Warn().Err(err).Str("date", date).
					Msg("skipping unreadable partition")
				return nil
			}
			perDate[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []record.Record
	for _, recs := range perDate {
		all = append(all, recs...)
	}
	return all, nil
}

// Rewrite replaces the whole record set: records are regrouped by their
// own date, each group written atomically, and day files for dates no
// longer present are removed. Writes happen before deletes so a crash
// mid-rewrite can leave stale data but never lose surviving records.
func (s *Store) Rewrite(ctx context.Context, recs []record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	grouped := make(map[string][]record.Record)
	for _, rec := range recs {
		date := rec.Date()
		grouped[date] = append(grouped[date], rec)
	}

	for date, group := range grouped {
		if err := s.writePartition(date, group); err != nil {
			return fmt.Errorf("%w: rewrite %s: %v", storage.ErrWrite, date, err)
		}
	}

	existing, err := s.partitionDates()
	if err != nil {
		return err
	}
	for _, date := range existing {
		if _, keep := grouped[date]; keep {
			continue
		}
		if err := os.Remove(s.partitionPath(date)); err != nil {
			return fmt.Errorf("%w: remove empty partition %s: %v", storage.ErrWrite, date, err)
		}
	}
	return nil
}

// Stats reports record count, partition date range, on-disk size, and
// the most recent partition modification time.
func (s *Store) Stats(ctx context.Context) (*storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dates, err := s.partitionDates()
	if err != nil {
		return nil, err
	}

	stats := &storage.Stats{}
	for _, date := range dates {
		path := s.partitionPath(date)

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		stats.SizeBytes += info.Size()
		if info.ModTime().After(stats.LastModified) {
			stats.LastModified = info.ModTime()
		}

		recs, err := s.readPartition(path)
		if err != nil {
			s.log.Warn().Err(err).Str("date", date).
				Msg("skipping unreadable partition in stats")
			continue
		}
		stats.TotalRecords += len(recs)
	}

	if len(dates) > 0 {
		stats.OldestDate = dates[0]
		stats.NewestDate = dates[len(dates)-1]
	}
	return stats, nil
}

// Close is a no-op; partition files are closed after every operation.
func (s *Store) Close() error {
	return nil
}

// partitionPath returns the file path for a day's partition.
func (s *Store) partitionPath(date string) string {
	return filepath.Join(s.dir, filePrefix+date+fileSuffix)
}

// partitionDates lists the partition dates on disk in ascending order.
func (s *Store) partitionDates() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if _, err := time.Parse(dateFormat, date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// boundDates filters partition dates to the requested load window.
func boundDates(dates []string, opts storage.LoadOptions) []string {
	if opts.From.IsZero() && opts.To.IsZero() {
		return dates
	}
	var out []string
	for _, d := range dates {
		day, err := time.Parse(dateFormat, d)
		if err != nil {
			continue
		}
		if !opts.From.IsZero() && day.Before(opts.From.UTC().Truncate(24*time.Hour)) {
			continue
		}
		if !opts.To.IsZero() && day.After(opts.To.UTC()) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// errCorrupt marks a partition whose contents do not parse, as opposed
// to one that could not be read at all.
var errCorrupt = errors.New("corrupt partition")

// readPartition parses one day file. A missing file is an empty partition.
func (s *Store) readPartition(path string) ([]record.Record, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read partition: %w", err)
	}

	var recs []record.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w %s: %v", errCorrupt, filepath.Base(path), err)
	}
	return recs, nil
}

// writePartition serializes a day's records to a temp file and renames it
// into place. Rename is atomic on POSIX filesystems, so readers only ever
// see a complete partition.
func (s *Store) writePartition(date string, recs []record.Record) error {
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode partition: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, filePrefix+date+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp partition: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp partition: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp partition: %w", err)
	}

	if err := os.Rename(tmpPath, s.partitionPath(date)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace partition: %w", err)
	}
	return nil
}

// quarantine renames a corrupt partition aside so a fresh one can start.
func (s *Store) quarantine(date string) {
	path := s.partitionPath(date)
	if err := os.Rename(path, path+".corrupt"); err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("failed to quarantine corrupt partition")
	}
}
