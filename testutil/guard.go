// Package testutil holds dependency guards shared by package tests.
package testutil

import (
	"os/exec"
	"sort"
	"strings"
	"testing"
)

// Predicate reports whether an import path is forbidden.
type Predicate func(importPath string) bool

// Prefix matches path and everything below it.
func Prefix(path string) Predicate {
	return func(importPath string) bool {
		return importPath == path || strings.HasPrefix(importPath, path+"/")
	}
}

// AnyOf matches when any predicate matches.
func AnyOf(preds ...Predicate) Predicate {
	return func(importPath string) bool {
		for _, p := range preds {
			if p(importPath) {
				return true
			}
		}
		return false
	}
}

// StorageAndTransport matches the packages the draft engine must reach only
// through adapters: SQL drivers, HTTP and the infra backends.
var StorageAndTransport = AnyOf(
	Prefix("database/sql"),
	Prefix("net/http"),
	Prefix("venueadmin/internal/infra"),
	Prefix("github.com/jmoiron/sqlx"),
	Prefix("github.com/jackc/pgx/v5"),
	Prefix("modernc.org/sqlite"),
	Prefix("github.com/aws/aws-sdk-go-v2"),
)

var goListDeps = func(pattern string) ([]byte, error) {
	return exec.Command("go", "list", "-deps", pattern).CombinedOutput()
}

// Violations lists the transitive dependencies of pattern matched by forbidden.
func Violations(pattern string, forbidden Predicate) ([]string, error) {
	out, err := goListDeps(pattern)
	if err != nil {
		return nil, &listError{err: err, output: string(out)}
	}
	var viols []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && forbidden(line) {
			viols = append(viols, line)
		}
	}
	sort.Strings(viols)
	return viols, nil
}

type listError struct {
	err    error
	output string
}

func (e *listError) Error() string { return "go list: " + e.err.Error() + "\n" + e.output }

func (e *listError) Unwrap() error { return e.err }

// AssertNoTransitiveDependency fails t when pattern depends, directly or not,
// on a package matched by forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden Predicate, reason string) {
	t.Helper()
	viols, err := Violations(pattern, forbidden)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden transitive dependency (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
