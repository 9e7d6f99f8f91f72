// Package service is the facade the rest of the system talks to: it owns
// the anonymize-then-persist write path and the load-filter-aggregate
// read paths.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/disha-labs/insight/pkg/aggregate"
	"github.com/disha-labs/insight/pkg/anonymize"
	"github.com/disha-labs/insight/pkg/dashboard"
	"github.com/disha-labs/insight/pkg/profile"
	"github.com/disha-labs/insight/pkg/query"
	"github.com/disha-labs/insight/pkg/record"
	"github.com/disha-labs/insight/pkg/retention"
	"github.com/disha-labs/insight/pkg/storage"
)

// collectTimeout bounds a background persist so a wedged disk cannot
// accumulate goroutines forever.
const collectTimeout = 30 * time.Second

// Service exposes the analytics engine's operations.
type Service struct {
	store     storage.Store
	retention *retention.Manager
	hub       *dashboard.Hub // optional
	log       zerolog.Logger
	aggOpts   aggregate.Options

	// wg tracks in-flight background collects so Close can drain them.
	wg sync.WaitGroup
}

// Options configures the service.
type Options struct {
	// Hub, when set, receives a refreshed dashboard view after each
	// successful collect.
	Hub *dashboard.Hub

	// Aggregate selects the averaging behavior for all aggregations.
	Aggregate aggregate.Options
}

// New creates a service over a store.
func New(store storage.Store, log zerolog.Logger, opts Options) *Service {
	return &Service{
		store:     store,
		retention: retention.New(store, log),
		hub:       opts.Hub,
		log:       log,
		aggOpts:   opts.Aggregate,
	}
}

// Collect anonymizes and persists one submission event. Fire-and-forget:
// it returns immediately, never blocks the caller, and never lets a
// failure escape, since analytics must not affect submission processing.
// Errors are logged and the event is dropped.
func (s *Service) Collect(p profile.Profile, recs []profile.Recommendation, meta profile.ProcessingMeta) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Msg("analytics collect panicked, event dropped")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
		defer cancel()

		rec, err := anonymize.Anonymize(p, recs, meta)
		if err != nil {
			s.log.Warn().Err(err).Msg("anonymization failed, event dropped")
			return
		}

		if err := s.store.Append(ctx, rec); err != nil {
			s.log.Error().Err(err).Msg("analytics append failed, event dropped")
			return
		}

		s.broadcastDashboard(ctx)
	}()
}

// broadcastDashboard pushes a refreshed view to websocket clients, if any.
func (s *Service) broadcastDashboard(ctx context.Context) {
	if s.hub == nil || !s.hub.HasClients() {
		return
	}
	view, err := s.DashboardData(ctx, query.Filter{})
	if err != nil {
		s.log.Warn().Err(err).Msg("dashboard refresh for broadcast failed")
		return
	}
	s.hub.BroadcastView(view)
}

// AggregatedData loads, filters, and aggregates the current record set.
func (s *Service) AggregatedData(ctx context.Context, f query.Filter) (*aggregate.Aggregation, error) {
	recs, err := s.loadFiltered(ctx, f)
	if err != nil {
		return nil, err
	}
	return aggregate.Aggregate(recs, s.aggOpts), nil
}

// DashboardData computes the dashboard view over the filtered record set.
func (s *Service) DashboardData(ctx context.Context, f query.Filter) (*dashboard.View, error) {
	agg, err := s.AggregatedData(ctx, f)
	if err != nil {
		return nil, err
	}
	return dashboard.Build(agg), nil
}

// Stats reports storage statistics.
func (s *Service) Stats(ctx context.Context) (*storage.Stats, error) {
	return s.store.Stats(ctx)
}

// CleanupOldData purges records older than retentionDays and returns the
// removed count. Unlike Collect, failures here surface to the caller.
func (s *Service) CleanupOldData(ctx context.Context, retentionDays int) (int, error) {
	return s.retention.Cleanup(ctx, retentionDays)
}

// ExportData returns the filtered record set for a formatting step
// (JSON/CSV delivery is the exporter's job).
func (s *Service) ExportData(ctx context.Context, f query.Filter) ([]record.Record, error) {
	return s.loadFiltered(ctx, f)
}

// ImportData appends previously exported records back into the store.
func (s *Service) ImportData(ctx context.Context, recs []record.Record) error {
	for _, rec := range recs {
		if err := s.store.Append(ctx, rec); err != nil {
			return fmt.Errorf("import record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// loadFiltered is the shared read path: store load (date-bounded by the
// filter) then the pure filter engine.
func (s *Service) loadFiltered(ctx context.Context, f query.Filter) ([]record.Record, error) {
	recs, err := s.store.LoadAll(ctx, storage.LoadOptions{From: f.From, To: f.To})
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return query.Apply(recs, f), nil
}

// Flush waits for all in-flight background collects to finish. Used at
// shutdown and by tests.
func (s *Service) Flush() {
	s.wg.Wait()
}

// Close drains in-flight collects and shuts the store down.
func (s *Service) Close() error {
	s.Flush()
	return s.store.Close()
}
