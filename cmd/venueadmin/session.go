package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"venueadmin/internal/core"
	"venueadmin/internal/draft"
	"venueadmin/pkg/domain"
)

const helpText = `commands:
  list                     show every entry with its status
  activate KEY             add KEY to the collection
  deactivate KEY           remove KEY (baseline records are deleted on save)
  set KEY FIELD VALUE      edit a field; VALUE "null" clears it
  fields                   list editable fields
  validate                 run the rules without saving
  plan                     preview the store operations a save would run
  save                     validate, plan and commit
  revert [KEY]             drop local edits for KEY or for everything
  resync                   reload the baseline from the store
  history                  list archived baselines
  snapshot ARCHIVE_KEY     print an archived baseline
  quit                     leave (unsaved edits are discarded)`

// session drives one editor from line commands.
type session[K domain.Key, F any] struct {
	svc    *core.Service
	editor *draft.Editor[K, F]
	out    io.Writer
}

func runSession[K domain.Key, F any](ctx context.Context, svc *core.Service, editor *draft.Editor[K, F], in io.Reader, out io.Writer) error {
	s := &session[K, F]{svc: svc, editor: editor, out: out}
	s.printf("editing %s for %s (type help for commands)\n", editor.Kind(), editor.ParentID())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		quit, err := s.exec(ctx, line)
		if err != nil {
			s.printf("error: %v\n", err)
		}
		if quit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	if editor.IsDirty() {
		s.printf("unsaved changes discarded: %s\n", editor.Plan().Summary())
	}
	return nil
}

func (s *session[K, F]) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *session[K, F]) key(raw string) (K, error) {
	return s.editor.Schema().KeySpace().Parse(raw)
}

func (s *session[K, F]) exec(ctx context.Context, line string) (bool, error) {
	cmd, rest, _ := strings.Cut(line, " ")
	args := strings.Fields(rest)
	switch strings.ToLower(cmd) {
	case "help", "?":
		s.printf("%s\n", helpText)
	case "quit", "exit":
		return true, nil
	case "list", "status":
		return false, s.list()
	case "fields":
		s.printf("%s\n", strings.Join(s.editor.Schema().Fields().Names(), " "))
	case "activate":
		if len(args) != 1 {
			return false, errors.New("usage: activate KEY")
		}
		key, err := s.key(args[0])
		if err != nil {
			return false, err
		}
		return false, s.report(key, s.editor.Activate(key, nil))
	case "deactivate":
		if len(args) != 1 {
			return false, errors.New("usage: deactivate KEY")
		}
		key, err := s.key(args[0])
		if err != nil {
			return false, err
		}
		return false, s.report(key, s.editor.Deactivate(key))
	case "set":
		if len(args) < 3 {
			return false, errors.New("usage: set KEY FIELD VALUE")
		}
		key, err := s.key(args[0])
		if err != nil {
			return false, err
		}
		var value any = strings.Join(args[2:], " ")
		if value == "null" {
			value = nil
		}
		return false, s.report(key, s.editor.SetField(key, args[1], value))
	case "revert":
		return false, s.revert(args)
	case "validate":
		s.validate()
	case "plan":
		s.plan()
	case "save":
		s.save(ctx)
	case "resync":
		if err := s.editor.Resync(ctx); err != nil {
			return false, err
		}
		s.printf("reloaded %d record(s)\n", len(s.editor.Baseline()))
	case "history":
		return false, s.history(ctx)
	case "snapshot":
		if len(args) != 1 {
			return false, errors.New("usage: snapshot ARCHIVE_KEY")
		}
		raw, err := s.svc.ReadArchivedBaseline(ctx, args[0])
		if err != nil {
			return false, err
		}
		s.printf("%s\n", raw)
	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}

func (s *session[K, F]) report(key K, err error) error {
	if err != nil {
		return err
	}
	s.printf("%s: %s\n", key, s.editor.Status(key))
	return nil
}

func (s *session[K, F]) list() error {
	entries := s.editor.Entries()
	if len(entries) == 0 {
		s.printf("(empty)\n")
	}
	for _, e := range entries {
		status := s.editor.Status(e.Key)
		if !e.Present {
			s.printf("%-12s %s\n", e.Key, status)
			continue
		}
		raw, err := json.Marshal(e.Fields)
		if err != nil {
			return err
		}
		s.printf("%-12s %-20s %s\n", e.Key, status, raw)
	}
	if s.editor.IsDirty() {
		s.printf("pending: %s\n", s.editor.Plan().Summary())
	}
	return nil
}

func (s *session[K, F]) revert(args []string) error {
	switch len(args) {
	case 0:
		if err := s.editor.Revert(); err != nil {
			return err
		}
		s.printf("draft reverted\n")
		return nil
	case 1:
		key, err := s.key(args[0])
		if err != nil {
			return err
		}
		return s.report(key, s.editor.RevertKey(key))
	default:
		return errors.New("usage: revert [KEY]")
	}
}

func (s *session[K, F]) validate() {
	result := s.editor.Validate()
	if len(result.Violations) == 0 {
		s.printf("ok\n")
		return
	}
	for _, v := range result.Violations {
		s.printf("%s %s: %s\n", v.Severity, v.Key, v.Message)
	}
}

func (s *session[K, F]) plan() {
	plan := s.editor.Plan()
	if plan.Empty() {
		s.printf("nothing to save\n")
		return
	}
	for _, d := range plan.Deletes {
		s.printf("delete %s (%s)\n", d.Key, d.RecordID)
	}
	for _, u := range plan.Updates {
		s.printf("update %s (%s)\n", u.Key, u.RecordID)
	}
	for _, i := range plan.Inserts {
		s.printf("insert %s\n", i.Key)
	}
	s.printf("%s\n", plan.Summary())
}

func (s *session[K, F]) save(ctx context.Context) {
	out, err := s.editor.Save(ctx)
	var (
		validation domain.ValidationError
		partial    *domain.PartialCommitError
		adapter    *domain.AdapterError
	)
	switch {
	case err == nil && out.NothingToSave:
		s.printf("nothing to save\n")
	case err == nil:
		s.printf("saved: %d inserted, %d updated, %d deleted\n", len(out.Inserted), len(out.Updated), len(out.Deleted))
	case errors.As(err, &validation):
		s.printf("not saved, fix these first:\n")
		for _, v := range validation.Result.Blocking() {
			s.printf("  %s: %s\n", v.Key, v.Message)
		}
	case errors.As(err, &partial):
		s.printf("error: %v\n", partial)
		s.printf("run resync before editing further\n")
	case errors.As(err, &adapter):
		s.printf("error: %v\nnothing was applied; save again to retry\n", adapter)
	default:
		s.printf("error: %v\n", err)
	}
}

func (s *session[K, F]) history(ctx context.Context) error {
	list, err := s.svc.ArchivedBaselines(ctx, s.editor.Kind(), s.editor.ParentID())
	if errors.Is(err, core.ErrArchiveDisabled) {
		s.printf("archive disabled\n")
		return nil
	}
	if err != nil {
		return err
	}
	if len(list) == 0 {
		s.printf("no archived baselines\n")
	}
	for _, info := range list {
		s.printf("%s  %s\n", info.Key, info.Metadata["summary"])
	}
	return nil
}
