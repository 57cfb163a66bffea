package draft

import (
	"context"
	"encoding/json"
)

// Logger captures structured logging used by the editor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// InstrumentFunc wraps one engine operation (load, save, each store call) for
// tracing and metrics. The returned function is called with the outcome.
type InstrumentFunc func(ctx context.Context, operation string) (context.Context, func(error))

func noopInstrument(ctx context.Context, _ string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

// Commit describes a successful save to a CommitHook.
type Commit struct {
	Kind     string
	ParentID string
	// Baseline is the new baseline; it marshals to an archive document.
	Baseline json.Marshaler
	Summary  string
}

// CommitHook runs after a successful, non-empty save.
type CommitHook func(ctx context.Context, commit Commit)

// Option configures an Editor.
type Option func(*settings)

type settings struct {
	logger      Logger
	concurrency int
	instrument  InstrumentFunc
	scope       func(key string) bool
	onCommit    CommitHook
}

func defaultSettings() settings {
	return settings{logger: noopLogger{}, concurrency: 1, instrument: noopInstrument}
}

// WithLogger sets the editor logger.
func WithLogger(logger Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConcurrency bounds how many store calls of one commit batch run at
// once. Batches themselves always run one after another.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithInstrument installs an operation wrapper.
func WithInstrument(fn InstrumentFunc) Option {
	return func(s *settings) {
		if fn != nil {
			s.instrument = fn
		}
	}
}

// WithScope restricts the draft to baseline keys accepted by include. Keys
// outside the scope are never planned unless explicitly activated.
func WithScope(include func(key string) bool) Option {
	return func(s *settings) { s.scope = include }
}

// WithCommitHook registers a hook run after every successful commit.
func WithCommitHook(hook CommitHook) Option {
	return func(s *settings) { s.onCommit = hook }
}
