// Command venueadmin edits a bar's seat options, operating hours or exception
// dates as a local draft and saves the minimal set of store changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"venueadmin/internal/config"
	"venueadmin/internal/core"
	"venueadmin/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("venueadmin", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", ".env", "env file loaded before reading VENUEADMIN_* variables")
	bar := fs.String("bar", "", "bar id whose collection is edited")
	kind := fs.String("kind", string(domain.KindSeatOption), "collection: seat_option, operating_hours or exception_date")
	from := fs.String("from", "", "exception_date only: hide dates before YYYY-MM-DD (or \"today\")")
	tracePath := fs.String("trace", "", "append JSON trace lines to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*bar) == "" {
		_, _ = fmt.Fprintln(stderr, "-bar is required")
		return 2
	}
	entity, err := domain.ParseEntityKind(*kind)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}
	since, err := parseFrom(*from, time.Now())
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "configuration invalid: %v\n", err)
		return 2
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	svc, cleanup, err := newService(ctx, cfg, logger, *tracePath)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer cleanup()

	if err := edit(ctx, svc, entity, *bar, since, stdin, stdout); err != nil {
		logger.Error("session failed", "error", err)
		return 1
	}
	return 0
}

func parseFrom(raw string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return time.Time{}, nil
	case "today":
		return now, nil
	}
	t, err := time.Parse(domain.ExceptionDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("-from must be YYYY-MM-DD or today: %w", err)
	}
	return t, nil
}

// newService opens the configured store and archive. cleanup releases them.
func newService(ctx context.Context, cfg config.Config, logger *slog.Logger, tracePath string) (*core.Service, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}

	store, err := core.OpenRecordStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}
	archive, err := core.OpenBlobStore(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}

	tracer := core.MultiTracer{core.NewOTelTracer(nil)}
	if tracePath != "" {
		f, err := os.OpenFile(tracePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open trace file: %w", err)
		}
		closers = append(closers, f)
		tracer = append(tracer, core.NewJSONTracer(f))
	}

	svc := core.NewService(store,
		core.WithLogger(logger),
		core.WithArchive(archive),
		core.WithTracer(tracer),
		core.WithCommitConcurrency(cfg.CommitConcurrency),
	)
	return svc, cleanup, nil
}

func edit(ctx context.Context, svc *core.Service, kind domain.EntityKind, bar string, from time.Time, in io.Reader, out io.Writer) error {
	switch kind {
	case domain.KindSeatOption:
		editor, err := svc.SeatOptions(ctx, bar)
		if err != nil {
			return err
		}
		return runSession(ctx, svc, editor, in, out)
	case domain.KindOperatingHours:
		editor, err := svc.OperatingHours(ctx, bar)
		if err != nil {
			return err
		}
		return runSession(ctx, svc, editor, in, out)
	case domain.KindException:
		editor, err := svc.Exceptions(ctx, bar, from)
		if err != nil {
			return err
		}
		return runSession(ctx, svc, editor, in, out)
	default:
		return fmt.Errorf("unsupported collection %s", kind)
	}
}
