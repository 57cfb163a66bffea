package draft_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"venueadmin/internal/draft"
	"venueadmin/internal/venue"
	"venueadmin/pkg/domain"
)

type (
	seatEditor   = draft.Editor[domain.SeatType, domain.SeatOptionFields]
	seatRecord   = draft.Record[domain.SeatType, domain.SeatOptionFields]
	seatAdapter  = fakeAdapter[domain.SeatType, domain.SeatOptionFields]
	exceptionRec = draft.Record[domain.ExceptionDate, domain.ExceptionFields]
)

const parentID = "bar-1"

func ptr(v int) *int { return &v }

func tableRecord() seatRecord {
	return seatRecord{
		ID:       "r1",
		ParentID: parentID,
		Key:      domain.SeatTable,
		Fields: domain.SeatOptionFields{
			Enabled:        true,
			AvailableCount: ptr(10),
			MinPartySize:   ptr(1),
			MaxPartySize:   ptr(6),
		},
	}
}

func openSeats(t *testing.T, adapter *seatAdapter, opts ...draft.Option) *seatEditor {
	t.Helper()
	ed, err := draft.Open[domain.SeatType, domain.SeatOptionFields](context.Background(), venue.SeatOptions{}, adapter, parentID, opts...)
	if err != nil {
		t.Fatalf("open editor: %v", err)
	}
	return ed
}

func TestSaveBlockedByValidation(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	ed := openSeats(t, adapter)

	if err := ed.SetField(domain.SeatTable, "available_count", 0); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if !ed.IsDirty() {
		t.Fatalf("expected dirty draft after edit")
	}
	violations := ed.ValidateKey(domain.SeatTable)
	if len(violations) != 1 || !strings.HasPrefix(violations[0].Message, "Available count must be > 0") {
		t.Fatalf("unexpected violations: %+v", violations)
	}

	before := ed.Entry(domain.SeatTable)
	_, err := ed.Save(context.Background())
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if keys := verr.Keys(); len(keys) != 1 || keys[0] != "table" {
		t.Fatalf("unexpected offending keys %v", keys)
	}
	if calls := adapter.Calls(); len(calls) != 0 {
		t.Fatalf("expected no store calls, got %v", calls)
	}
	if ed.Phase() != draft.PhaseFailed {
		t.Fatalf("expected failed phase, got %s", ed.Phase())
	}
	if after := ed.Entry(domain.SeatTable); !reflect.DeepEqual(before, after) {
		t.Fatalf("draft changed by failed save: %+v vs %+v", before, after)
	}
}

func TestDeactivateBaselineEntryDeletesRecord(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	ed := openSeats(t, adapter)

	if err := ed.Deactivate(domain.SeatTable); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	entry := ed.Entry(domain.SeatTable)
	if !entry.MarkedForDeletion() || entry.RecordID != "r1" {
		t.Fatalf("expected table marked for deletion with r1, got %+v", entry)
	}
	if *entry.Fields.AvailableCount != 10 {
		t.Fatalf("expected fields retained on deletion")
	}
	plan := ed.Plan()
	if len(plan.Deletes) != 1 || plan.Deletes[0].RecordID != "r1" || len(plan.Updates) != 0 || len(plan.Inserts) != 0 {
		t.Fatalf("unexpected plan %+v", plan)
	}

	out, err := ed.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(out.Deleted) != 1 {
		t.Fatalf("expected one delete in outcome, got %+v", out)
	}
	if ed.Status(domain.SeatTable) != draft.StatusAbsent {
		t.Fatalf("expected table absent after commit, got %s", ed.Status(domain.SeatTable))
	}
	if len(ed.Baseline()) != 0 {
		t.Fatalf("expected empty baseline, got %+v", ed.Baseline())
	}
	if ed.IsDirty() {
		t.Fatalf("expected clean draft after commit")
	}
}

func TestActivateInsertsAndAdoptsServerID(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	ed := openSeats(t, adapter)

	if ed.Status(domain.SeatBar) != draft.StatusAbsent {
		t.Fatalf("expected bar absent")
	}
	if err := ed.Activate(domain.SeatBar, nil); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := ed.SetField(domain.SeatBar, "available_count", "8"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	plan := ed.Plan()
	if len(plan.Inserts) != 1 || plan.Len() != 1 {
		t.Fatalf("expected a single insert, got %+v", plan)
	}

	if _, err := ed.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	entry := ed.Entry(domain.SeatBar)
	if entry.Origin != draft.OriginBaseline || entry.RecordID != "srv-1" {
		t.Fatalf("expected bar from baseline with server id, got %+v", entry)
	}
	if ed.Status(domain.SeatBar) != draft.StatusUnchanged {
		t.Fatalf("expected unchanged bar after commit")
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	ed := openSeats(t, adapter)

	out, err := ed.Save(context.Background())
	if err != nil || !out.NothingToSave {
		t.Fatalf("expected nothing to save, got %+v %v", out, err)
	}
	if ed.Phase() != draft.PhaseSucceeded {
		t.Fatalf("expected succeeded phase for empty plan")
	}

	if err := ed.SetField(domain.SeatTable, "notes", "window seats"); err != nil {
		t.Fatalf("set notes: %v", err)
	}
	if _, err := ed.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	calls := len(adapter.Calls())
	out, err = ed.Save(context.Background())
	if err != nil || !out.NothingToSave {
		t.Fatalf("expected second save to be a no-op, got %+v %v", out, err)
	}
	if len(adapter.Calls()) != calls {
		t.Fatalf("second save issued store calls: %v", adapter.Calls())
	}
}

func TestRevertRestoresBaseline(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	ed := openSeats(t, adapter)
	pristine := ed.Entries()

	steps := []func() error{
		func() error { return ed.SetField(domain.SeatTable, "available_count", 3) },
		func() error { return ed.Activate(domain.SeatCounter, nil) },
		func() error { return ed.Deactivate(domain.SeatTable) },
		func() error { return ed.SetField(domain.SeatCounter, "max_party_size", 4) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if !ed.IsDirty() {
		t.Fatalf("expected dirty draft")
	}
	if err := ed.Revert(); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if ed.IsDirty() {
		t.Fatalf("expected clean draft after revert")
	}
	if got := ed.Entries(); !reflect.DeepEqual(got, pristine) {
		t.Fatalf("revert did not restore entries:\n got %+v\nwant %+v", got, pristine)
	}
}

func TestRevertKeyOnlyTouchesOneKey(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	ed := openSeats(t, adapter)
	if err := ed.SetField(domain.SeatTable, "available_count", 12); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := ed.Activate(domain.SeatBar, nil); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := ed.RevertKey(domain.SeatTable); err != nil {
		t.Fatalf("revert key: %v", err)
	}
	if ed.Status(domain.SeatTable) != draft.StatusUnchanged {
		t.Fatalf("expected table reverted")
	}
	if ed.Status(domain.SeatBar) != draft.StatusNew {
		t.Fatalf("expected bar still new")
	}
	if err := ed.RevertKey(domain.SeatBar); err != nil {
		t.Fatalf("revert key: %v", err)
	}
	if ed.Status(domain.SeatBar) != draft.StatusAbsent {
		t.Fatalf("expected bar absent after revert")
	}
}

func TestPlanIgnoresIneffectiveEdits(t *testing.T) {
	rec := tableRecord()
	rec.Fields.Notes = "patio"
	adapter := newFakeAdapter(rec)
	ed := openSeats(t, adapter)

	edits := []struct {
		path  string
		value any
	}{
		{"restrictions.minimum_spend", 2500},
		{"notes", "  patio  "},
		{"available_count", 10.0},
	}
	for _, e := range edits {
		if err := ed.SetField(domain.SeatTable, e.path, e.value); err != nil {
			t.Fatalf("set %s: %v", e.path, err)
		}
	}
	if plan := ed.Plan(); !plan.Empty() {
		t.Fatalf("expected empty plan for ineffective edits, got %+v", plan)
	}
	if ed.IsDirty() {
		t.Fatalf("expected clean draft")
	}
	if ed.Status(domain.SeatTable) != draft.StatusUnchanged {
		t.Fatalf("expected unchanged badge")
	}

	if err := ed.SetField(domain.SeatTable, "restrictions.minimum_spend_enabled", true); err != nil {
		t.Fatalf("enable gate: %v", err)
	}
	plan := ed.Plan()
	if len(plan.Updates) != 1 {
		t.Fatalf("expected update once gate is on, got %+v", plan)
	}
	spend := plan.Updates[0].Payload.Fields.Restrictions.MinimumSpend
	if spend == nil || *spend != 2500 {
		t.Fatalf("expected minimum spend in payload, got %v", spend)
	}
	if plan.Updates[0].Payload.Fields.Notes != "patio" {
		t.Fatalf("expected normalized notes in payload")
	}
}

func TestDeleteRunsBeforeReinsertOfSameSlot(t *testing.T) {
	barRec := seatRecord{ID: "r2", ParentID: parentID, Key: domain.SeatBar, Fields: domain.SeatOptionFields{Enabled: true, AvailableCount: ptr(4)}}
	adapter := newFakeAdapter(tableRecord(), barRec)
	// counter shares the bar's uniqueness slot
	adapter.slotOf = func(key domain.SeatType) string {
		if key == domain.SeatCounter {
			return string(domain.SeatBar)
		}
		return string(key)
	}
	ed := openSeats(t, adapter)

	if err := ed.Deactivate(domain.SeatBar); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := ed.Activate(domain.SeatCounter, &domain.SeatOptionFields{Enabled: true, AvailableCount: ptr(5)}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := ed.SetField(domain.SeatTable, "available_count", 11); err != nil {
		t.Fatalf("set: %v", err)
	}

	if _, err := ed.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	want := []string{"delete:bar", "update:table", "insert:counter"}
	if got := adapter.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected call order %v, want %v", got, want)
	}
}

func TestActivateRestoresBaselineOverInitialFields(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	ed := openSeats(t, adapter)

	if err := ed.Deactivate(domain.SeatTable); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := ed.Activate(domain.SeatTable, &domain.SeatOptionFields{AvailableCount: ptr(99)}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	entry := ed.Entry(domain.SeatTable)
	if entry.Origin != draft.OriginBaseline || entry.RecordID != "r1" || entry.ToDelete {
		t.Fatalf("expected baseline entry restored, got %+v", entry)
	}
	if *entry.Fields.AvailableCount != 10 {
		t.Fatalf("expected baseline fields, got %d", *entry.Fields.AvailableCount)
	}
	if !ed.Plan().Empty() {
		t.Fatalf("expected empty plan after undoing deletion")
	}
}

func TestDeactivateNewEntryReturnsToAbsent(t *testing.T) {
	ed := openSeats(t, newFakeAdapter[domain.SeatType, domain.SeatOptionFields]())
	if err := ed.Activate(domain.SeatCounter, nil); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := ed.Activate(domain.SeatCounter, &domain.SeatOptionFields{Notes: "ignored"}); err != nil {
		t.Fatalf("second activate: %v", err)
	}
	if ed.Entry(domain.SeatCounter).Fields.Notes != "" {
		t.Fatalf("activate on a present entry must be a no-op")
	}
	if err := ed.Deactivate(domain.SeatCounter); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if ed.Status(domain.SeatCounter) != draft.StatusAbsent {
		t.Fatalf("expected counter absent")
	}
	if ed.IsDirty() {
		t.Fatalf("expected clean draft")
	}
}

func TestEditErrors(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	ed := openSeats(t, adapter)

	if err := ed.SetField(domain.SeatBar, "available_count", 1); !errors.Is(err, domain.ErrAbsentEntry) {
		t.Fatalf("expected absent entry error, got %v", err)
	}
	if err := ed.SetField(domain.SeatTable, "colour", "red"); !errors.Is(err, domain.ErrUnknownField) {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if err := ed.SetField(domain.SeatTable, "available_count", "lots"); !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected invalid value error, got %v", err)
	}
	if err := ed.Activate(domain.SeatType("booth"), nil); !errors.Is(err, domain.ErrUnknownKey) {
		t.Fatalf("expected unknown key error, got %v", err)
	}
	if err := ed.Deactivate(domain.SeatTable); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := ed.SetField(domain.SeatTable, "available_count", 2); !errors.Is(err, domain.ErrMarkedForDeletion) {
		t.Fatalf("expected marked for deletion error, got %v", err)
	}
}

func TestSetFieldKeepsPartyRangeOrdered(t *testing.T) {
	ed := openSeats(t, newFakeAdapter(tableRecord()))

	if err := ed.SetField(domain.SeatTable, "min_party_size", 8); err != nil {
		t.Fatalf("set min: %v", err)
	}
	f := ed.Entry(domain.SeatTable).Fields
	if *f.MinPartySize != 8 || *f.MaxPartySize != 8 {
		t.Fatalf("expected max pulled up to 8, got %d..%d", *f.MinPartySize, *f.MaxPartySize)
	}
	if err := ed.SetField(domain.SeatTable, "max_party_size", 3); err != nil {
		t.Fatalf("set max: %v", err)
	}
	f = ed.Entry(domain.SeatTable).Fields
	if *f.MinPartySize != 3 || *f.MaxPartySize != 3 {
		t.Fatalf("expected min pulled down to 3, got %d..%d", *f.MinPartySize, *f.MaxPartySize)
	}
	if err := ed.Update(domain.SeatTable, func(f *domain.SeatOptionFields) error {
		f.MinPartySize = ptr(9)
		f.MaxPartySize = ptr(2)
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	f = ed.Entry(domain.SeatTable).Fields
	if *f.MinPartySize != 9 || *f.MaxPartySize != 9 {
		t.Fatalf("expected lower bound to win when both edited, got %d..%d", *f.MinPartySize, *f.MaxPartySize)
	}
}

func TestPartialCommitKeepsDraftAndBaseline(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	adapter.failOn["insert:bar"] = errStoreDown
	ed := openSeats(t, adapter)

	if err := ed.Deactivate(domain.SeatTable); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := ed.Activate(domain.SeatBar, &domain.SeatOptionFields{Enabled: true, AvailableCount: ptr(3)}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	_, err := ed.Save(context.Background())
	var partial *domain.PartialCommitError
	if !errors.As(err, &partial) {
		t.Fatalf("expected partial commit error, got %v", err)
	}
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error to unwrap")
	}
	if len(partial.Succeeded) != 1 || partial.Succeeded[0].Key != "table" || partial.Succeeded[0].Op != domain.OpDelete {
		t.Fatalf("unexpected succeeded ops %+v", partial.Succeeded)
	}
	if len(partial.Failed) != 1 || partial.Failed[0].Key != "bar" {
		t.Fatalf("unexpected failed ops %+v", partial.Failed)
	}
	if !strings.Contains(err.Error(), "refresh advised") {
		t.Fatalf("expected refresh advice in %q", err.Error())
	}
	entry := ed.Entry(domain.SeatTable)
	if !entry.MarkedForDeletion() || entry.RecordID != "r1" {
		t.Fatalf("draft must keep record id after failure, got %+v", entry)
	}
	if len(ed.Baseline()) != 1 {
		t.Fatalf("baseline must not change on failure")
	}
	if ed.Phase() != draft.PhaseFailed || ed.LastError() == nil {
		t.Fatalf("expected failed phase with error")
	}

	if err := ed.Resync(context.Background()); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if ed.Status(domain.SeatTable) != draft.StatusAbsent || ed.IsDirty() {
		t.Fatalf("expected resync to adopt the store state")
	}
	if ed.Phase() != draft.PhaseIdle {
		t.Fatalf("expected idle after resync")
	}
}

func TestFirstFailureIsAdapterError(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	adapter.failOn["delete:table"] = errStoreDown
	ed := openSeats(t, adapter)

	if err := ed.Deactivate(domain.SeatTable); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := ed.Activate(domain.SeatBar, &domain.SeatOptionFields{Enabled: true, AvailableCount: ptr(3)}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	_, err := ed.Save(context.Background())
	var aerr *domain.AdapterError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected adapter error, got %v", err)
	}
	if aerr.Op != domain.OpDelete || aerr.Key != "table" {
		t.Fatalf("unexpected adapter error %+v", aerr)
	}
	if got := adapter.Calls(); !reflect.DeepEqual(got, []string{"delete:table"}) {
		t.Fatalf("expected remaining operations skipped, got %v", got)
	}
	if !ed.IsDirty() {
		t.Fatalf("draft must survive a failed save")
	}
}

func TestUpdateWithoutEchoIsSynthesized(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	adapter.noEcho = true
	ed := openSeats(t, adapter)

	if err := ed.SetField(domain.SeatTable, "available_count", 14); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := ed.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(out.Synthesized) != 1 || out.Synthesized[0] != domain.SeatTable {
		t.Fatalf("expected synthesized table record, got %+v", out)
	}
	entry := ed.Entry(domain.SeatTable)
	if entry.RecordID != "r1" || *entry.Fields.AvailableCount != 14 {
		t.Fatalf("unexpected rebaselined entry %+v", entry)
	}
	if ed.IsDirty() {
		t.Fatalf("expected clean draft")
	}
}

func TestSaveIgnoresCallerCancellation(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	ed := openSeats(t, adapter)
	if err := ed.SetField(domain.SeatTable, "available_count", 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ed.Save(ctx); err != nil {
		t.Fatalf("expected commit to run despite cancelled context: %v", err)
	}
}

func TestMutationsRejectedWhileCommitting(t *testing.T) {
	adapter := newFakeAdapter[domain.SeatType, domain.SeatOptionFields]()
	adapter.gate = make(chan struct{})
	adapter.entered = make(chan struct{}, 1)
	ed := openSeats(t, adapter)
	if err := ed.Activate(domain.SeatBar, &domain.SeatOptionFields{Enabled: true, AvailableCount: ptr(2)}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	var (
		wg      sync.WaitGroup
		saveErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, saveErr = ed.Save(context.Background())
	}()
	<-adapter.entered

	if ed.Phase() != draft.PhaseCommitting {
		t.Fatalf("expected committing phase, got %s", ed.Phase())
	}
	if err := ed.Activate(domain.SeatTable, nil); !errors.Is(err, domain.ErrCommitInProgress) {
		t.Fatalf("expected commit in progress, got %v", err)
	}
	if _, err := ed.Save(context.Background()); !errors.Is(err, domain.ErrCommitInProgress) {
		t.Fatalf("expected concurrent save rejected, got %v", err)
	}
	if err := ed.Resync(context.Background()); !errors.Is(err, domain.ErrCommitInProgress) {
		t.Fatalf("expected resync rejected, got %v", err)
	}
	_ = ed.Entries()

	close(adapter.gate)
	wg.Wait()
	if saveErr != nil {
		t.Fatalf("save: %v", saveErr)
	}
	if ed.Phase() != draft.PhaseSucceeded {
		t.Fatalf("expected succeeded phase")
	}
}

func TestScopedDraftLeavesOutOfScopeRecordsAlone(t *testing.T) {
	past := exceptionRec{ID: "x1", ParentID: parentID, Key: "2026-01-01", Fields: domain.ExceptionFields{Closed: true, Reason: "new year"}}
	future := exceptionRec{ID: "x2", ParentID: parentID, Key: "2026-12-25", Fields: domain.ExceptionFields{Closed: true}}
	adapter := newFakeAdapter(past, future)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	ed, err := draft.Open[domain.ExceptionDate, domain.ExceptionFields](context.Background(), venue.Exceptions{}, adapter, parentID,
		draft.WithScope(venue.Upcoming(now)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	entries := ed.Entries()
	if len(entries) != 1 || entries[0].Key != "2026-12-25" {
		t.Fatalf("expected only upcoming exception, got %+v", entries)
	}
	if err := ed.Deactivate("2026-12-25"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := ed.Activate("2026-12-31", &domain.ExceptionFields{OpensAt: ptr(18 * 60), ClosesAt: ptr(23 * 60)}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	plan := ed.Plan()
	if len(plan.Deletes) != 1 || plan.Deletes[0].RecordID != "x2" || len(plan.Inserts) != 1 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if _, err := ed.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	keys := make([]string, 0)
	for _, e := range ed.Entries() {
		keys = append(keys, e.Key.String())
	}
	if !reflect.DeepEqual(keys, []string{"2026-12-31"}) {
		t.Fatalf("expected deleted open key removed from draft, got %v", keys)
	}
	var baselineKeys []string
	for _, rec := range ed.Baseline() {
		baselineKeys = append(baselineKeys, rec.Key.String())
	}
	if !reflect.DeepEqual(baselineKeys, []string{"2026-01-01", "2026-12-31"}) {
		t.Fatalf("expected out of scope record kept in baseline, got %v", baselineKeys)
	}
	if adapter.Len() != 2 {
		t.Fatalf("expected past exception untouched in store")
	}
}

func TestActivateRejectsMalformedOpenKey(t *testing.T) {
	adapter := newFakeAdapter[domain.ExceptionDate, domain.ExceptionFields]()
	ed, err := draft.Open[domain.ExceptionDate, domain.ExceptionFields](context.Background(), venue.Exceptions{}, adapter, parentID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ed.Activate("next friday", nil); !errors.Is(err, domain.ErrUnknownKey) {
		t.Fatalf("expected unknown key error, got %v", err)
	}
	if err := ed.SetField("next friday", "closed", true); !errors.Is(err, domain.ErrUnknownKey) {
		t.Fatalf("expected unknown key error from set, got %v", err)
	}
	if ed.IsDirty() || len(ed.Entries()) != 0 {
		t.Fatalf("rejected key must leave the draft untouched")
	}
	out, err := ed.Save(context.Background())
	if err != nil || !out.NothingToSave || adapter.Len() != 0 {
		t.Fatalf("expected nothing to save, got %+v %v", out, err)
	}
}

func TestConcurrentBatchesApplyEveryOperation(t *testing.T) {
	adapter := newFakeAdapter[domain.ExceptionDate, domain.ExceptionFields]()
	ed, err := draft.Open[domain.ExceptionDate, domain.ExceptionFields](context.Background(), venue.Exceptions{}, adapter, parentID,
		draft.WithConcurrency(3))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	dates := []domain.ExceptionDate{"2026-11-01", "2026-11-02", "2026-11-03", "2026-11-04", "2026-11-05"}
	for _, d := range dates {
		if err := ed.Activate(d, nil); err != nil {
			t.Fatalf("activate %s: %v", d, err)
		}
	}
	out, err := ed.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(out.Inserted) != len(dates) || adapter.Len() != len(dates) {
		t.Fatalf("expected %d inserts, got %d", len(dates), len(out.Inserted))
	}
	if adapter.maxInFlight > 3 {
		t.Fatalf("concurrency limit exceeded: %d", adapter.maxInFlight)
	}
	for _, d := range dates {
		if ed.Status(d) != draft.StatusUnchanged {
			t.Fatalf("expected %s rebaselined", d)
		}
	}
}

func TestCommitHookAndInstrumentation(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	var (
		mu    sync.Mutex
		ops   []string
		hooks []draft.Commit
	)
	instrument := func(ctx context.Context, op string) (context.Context, func(error)) {
		mu.Lock()
		ops = append(ops, op)
		mu.Unlock()
		return ctx, func(error) {}
	}
	hook := func(_ context.Context, c draft.Commit) { hooks = append(hooks, c) }
	ed := openSeats(t, adapter, draft.WithInstrument(instrument), draft.WithCommitHook(hook))

	if _, err := ed.Save(context.Background()); err != nil {
		t.Fatalf("empty save: %v", err)
	}
	if len(hooks) != 0 {
		t.Fatalf("hook must not run for an empty plan")
	}
	if err := ed.SetField(domain.SeatTable, "available_count", 20); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := ed.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(hooks) != 1 || hooks[0].Kind != string(domain.KindSeatOption) || hooks[0].ParentID != parentID {
		t.Fatalf("unexpected hooks %+v", hooks)
	}
	doc, err := json.Marshal(hooks[0].Baseline)
	if err != nil {
		t.Fatalf("marshal baseline: %v", err)
	}
	if !strings.Contains(string(doc), `"available_count":20`) {
		t.Fatalf("archived baseline missing update: %s", doc)
	}
	want := []string{"load_seat_option", "save_seat_option", "save_seat_option", "update_seat_option"}
	if !reflect.DeepEqual(ops, want) {
		t.Fatalf("unexpected instrumented ops %v", ops)
	}
}

func TestResyncFailureKeepsDraft(t *testing.T) {
	adapter := newFakeAdapter(tableRecord())
	ed := openSeats(t, adapter)
	if err := ed.SetField(domain.SeatTable, "available_count", 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	adapter.loadErr = errStoreDown
	if err := ed.Resync(context.Background()); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected load error, got %v", err)
	}
	if !ed.IsDirty() {
		t.Fatalf("failed resync must keep the draft")
	}
}

func TestOpenRejectsDuplicateBaselineKeys(t *testing.T) {
	dup := tableRecord()
	dup.ID = "r9"
	adapter := newFakeAdapter[domain.SeatType, domain.SeatOptionFields]()
	adapter.records["r1"] = tableRecord()
	adapter.records["r9"] = dup
	_, err := draft.Open[domain.SeatType, domain.SeatOptionFields](context.Background(), venue.SeatOptions{}, adapter, parentID)
	if err == nil || !strings.Contains(err.Error(), "share key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}
