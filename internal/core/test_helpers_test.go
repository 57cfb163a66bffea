package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"venueadmin/internal/infra/persistence/memory"
	"venueadmin/pkg/domain"
)

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	mu      sync.Mutex
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.mu.Lock()
	c.started = append(c.started, op)
	c.mu.Unlock()
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type logEntry struct {
	level string
	msg   string
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// tickingClock advances one second per reading so archive keys stay unique.
func tickingClock(start time.Time) ClockFunc {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// silentUpdateStore acknowledges updates without echoing the stored record.
type silentUpdateStore struct {
	*memory.Store
}

func (s silentUpdateStore) Update(ctx context.Context, id string, rec domain.Record) (domain.Record, error) {
	if _, err := s.Store.Update(ctx, id, rec); err != nil {
		return domain.Record{}, err
	}
	return domain.Record{}, nil
}

// failingStore fails every write.
type failingStore struct {
	*memory.Store
}

var errWriteRefused = fmt.Errorf("write refused")

func (failingStore) Insert(context.Context, domain.Record) (domain.Record, error) {
	return domain.Record{}, errWriteRefused
}

// garblingStore applies writes but echoes records the adapter cannot read.
type garblingStore struct {
	*memory.Store
}

func (s garblingStore) Insert(ctx context.Context, rec domain.Record) (domain.Record, error) {
	stored, err := s.Store.Insert(ctx, rec)
	if err != nil {
		return domain.Record{}, err
	}
	stored.Fields = json.RawMessage(`"garbled"`)
	return stored, nil
}

func (s garblingStore) Update(ctx context.Context, id string, rec domain.Record) (domain.Record, error) {
	stored, err := s.Store.Update(ctx, id, rec)
	if err != nil {
		return domain.Record{}, err
	}
	stored.Key = "garbled"
	return stored, nil
}

// legacyRowsStore lists rows written before keys were validated on write.
type legacyRowsStore struct {
	*memory.Store
	rows []domain.Record
}

func (s legacyRowsStore) List(context.Context, domain.EntityKind, string) ([]domain.Record, error) {
	return s.rows, nil
}
