// Command venueadmin-api serves a venue record store over REST for remote
// editors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"venueadmin/internal/adapters/httpapi"
	"venueadmin/internal/config"
	"venueadmin/internal/core"
	"venueadmin/pkg/domain"
)

var exitFunc = os.Exit

const shutdownGrace = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("venueadmin-api", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", ".env", "env file loaded before reading VENUEADMIN_* variables")
	issue := fs.String("issue-token", "", "print a bearer token for the named operator and exit")
	ttl := fs.Duration("token-ttl", 24*time.Hour, "lifetime of issued tokens")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "configuration invalid: %v\n", err)
		return 2
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if *issue != "" {
		if err := issueToken(stdout, cfg, *issue, *ttl); err != nil {
			logger.Error("token not issued", "error", err)
			return 1
		}
		return 0
	}
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api failed", "error", err)
		return 1
	}
	return 0
}

func issueToken(stdout io.Writer, cfg config.Config, operator string, ttl time.Duration) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("%sJWT_SECRET must be set to issue tokens", config.Prefix)
	}
	token, _, err := httpapi.IssueToken([]byte(cfg.JWTSecret), operator, ttl, time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if core.StorageDriver(cfg.StorageDriver) == core.StorageRemote {
		return errors.New("the api cannot serve a remote store")
	}
	store, err := core.OpenRecordStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil {
				logger.Warn("store close failed", "error", cerr)
			}
		}()
	}
	if cfg.JWTSecret == "" {
		logger.Warn("api running without authentication", "hint", config.Prefix+"JWT_SECRET")
	}

	ln, err := net.Listen("tcp", cfg.APIAddr)
	if err != nil {
		return err
	}
	return serve(ctx, ln, newHandler(store, cfg, logger, prometheus.NewRegistry()), logger)
}

func newHandler(store domain.RecordStore, cfg config.Config, logger *slog.Logger, reg *prometheus.Registry) http.Handler {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithMetricsRecorder(core.NewPrometheusMetricsRecorder(reg)),
		httpapi.WithGatherer(reg),
	}
	if cfg.JWTSecret != "" {
		opts = append(opts, httpapi.WithJWTSecret([]byte(cfg.JWTSecret)))
	}
	return httpapi.NewRouter(store, opts...)
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("api listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("api stopped")
	return nil
}
