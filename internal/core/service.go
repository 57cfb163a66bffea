// Package core wires the draft engine to a record store: it opens typed
// editors for each venue collection, bridges engine instrumentation onto the
// service logger, metrics and tracer, and archives committed baselines.
package core

import (
	"context"
	"time"

	"venueadmin/internal/blob"
	"venueadmin/internal/draft"
	"venueadmin/internal/venue"
	"venueadmin/pkg/domain"
)

// Editor aliases for the venue collections.
type (
	SeatEditor      = draft.Editor[domain.SeatType, domain.SeatOptionFields]
	HoursEditor     = draft.Editor[domain.Weekday, domain.OperatingHoursFields]
	ExceptionEditor = draft.Editor[domain.ExceptionDate, domain.ExceptionFields]
)

// Service opens editors against one backing store.
type Service struct {
	store       domain.RecordStore
	archive     blob.Store
	logger      Logger
	metrics     MetricsRecorder
	tracer      Tracer
	clock       Clock
	concurrency int
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.RecordStore, opts ...Option) *Service {
	svc := &Service{
		store:       store,
		logger:      noopLogger{},
		metrics:     noopMetricsRecorder{},
		tracer:      noopTracer{},
		clock:       ClockFunc(func() time.Time { return time.Now().UTC() }),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Store returns the underlying record store.
func (s *Service) Store() domain.RecordStore { return s.store }

// Archive returns the baseline archive, or nil when archiving is disabled.
func (s *Service) Archive() blob.Store { return s.archive }

// instrument times an operation and reports it to the tracer, the metrics
// recorder and the logger.
func (s *Service) instrument(ctx context.Context, operation string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	return ctx, func(err error) {
		dur := time.Since(start)
		s.metrics.Observe(ctx, operation, err == nil, dur)
		span.End(err)
		if err != nil {
			s.logger.Warn("operation failed", "operation", operation, "duration", dur, "error", err)
			return
		}
		s.logger.Debug("operation completed", "operation", operation, "duration", dur)
	}
}

// EditorOptions returns the engine options every service editor carries,
// followed by extra.
func (s *Service) EditorOptions(extra ...draft.Option) []draft.Option {
	opts := []draft.Option{
		draft.WithLogger(s.logger),
		draft.WithInstrument(s.instrument),
		draft.WithConcurrency(s.concurrency),
	}
	if s.archive != nil {
		opts = append(opts, draft.WithCommitHook(s.archiveCommit))
	}
	return append(opts, extra...)
}

// OpenEditor loads the baseline of one collection and returns an editor over
// it.
func OpenEditor[K domain.Key, F any](ctx context.Context, s *Service, schema draft.Schema[K, F], parentID string, opts ...draft.Option) (*draft.Editor[K, F], error) {
	adapter := NewRecordAdapter(s.store, schema)
	return draft.Open[K, F](ctx, schema, adapter, parentID, s.EditorOptions(opts...)...)
}

// SeatOptions opens the seat option editor of a bar.
func (s *Service) SeatOptions(ctx context.Context, barID string) (*SeatEditor, error) {
	return OpenEditor[domain.SeatType, domain.SeatOptionFields](ctx, s, venue.SeatOptions{}, barID)
}

// OperatingHours opens the weekly schedule editor of a bar.
func (s *Service) OperatingHours(ctx context.Context, barID string) (*HoursEditor, error) {
	return OpenEditor[domain.Weekday, domain.OperatingHoursFields](ctx, s, venue.OperatingHours{}, barID)
}

// Exceptions opens the exception date editor of a bar. A non-zero from
// restricts the draft to dates on or after that day; earlier dates stay
// untouched in the store.
func (s *Service) Exceptions(ctx context.Context, barID string, from time.Time) (*ExceptionEditor, error) {
	var opts []draft.Option
	if !from.IsZero() {
		opts = append(opts, draft.WithScope(venue.Upcoming(from)))
	}
	return OpenEditor[domain.ExceptionDate, domain.ExceptionFields](ctx, s, venue.Exceptions{}, barID, opts...)
}
