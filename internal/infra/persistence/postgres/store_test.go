package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type stubConn struct {
	execs    []string
	failPing bool
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return errors.New("connection refused")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	return driver.RowsAffected(0), nil
}

type stubConnector struct{ conn *stubConn }

func (s stubConnector) Connect(context.Context) (driver.Conn, error) { return s.conn, nil }
func (s stubConnector) Driver() driver.Driver                        { return stubDriver(s) }

type stubDriver stubConnector

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func useStub(t *testing.T, conn *stubConn) *string {
	t.Helper()
	var gotDSN string
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" {
			return nil, fmt.Errorf("unexpected driver %s", driverName)
		}
		gotDSN = dsn
		return sql.OpenDB(stubConnector{conn: conn}), nil
	})
	t.Cleanup(restore)
	return &gotDSN
}

func TestNewStoreAppliesSchema(t *testing.T) {
	conn := &stubConn{}
	dsn := useStub(t, conn)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()
	if *dsn != defaultDSN {
		t.Fatalf("expected default dsn, got %q", *dsn)
	}
	if len(conn.execs) != len(schema) || !strings.Contains(conn.execs[0], "CREATE TABLE IF NOT EXISTS venue_records") {
		t.Fatalf("expected schema statements, got %v", conn.execs)
	}
}

func TestNewStorePingFailure(t *testing.T) {
	useStub(t, &stubConn{failPing: true})
	if _, err := NewStore(context.Background(), "postgres://db/venue"); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestNewStoreOpenFailure(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("bad dsn") })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://db/venue"); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !isUniqueViolation(wrapped) {
		t.Fatalf("expected 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) || isUniqueViolation(errors.New("other")) {
		t.Fatalf("unexpected unique violation match")
	}
}
