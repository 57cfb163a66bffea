package draft

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"venueadmin/pkg/domain"
)

// Adapter is the per-kind backing store binding used by the executor.
type Adapter[K domain.Key, F any] interface {
	Insert(ctx context.Context, payload Payload[K, F]) (Record[K, F], error)
	// Update returns nil when the store acknowledged the write without echoing
	// the stored record.
	Update(ctx context.Context, recordID string, payload Payload[K, F]) (*Record[K, F], error)
	Delete(ctx context.Context, recordID string) error
	LoadAll(ctx context.Context, parentID string) ([]Record[K, F], error)
}

// Outcome summarizes a save.
type Outcome[K domain.Key, F any] struct {
	NothingToSave bool
	Inserted      []Record[K, F]
	Updated       []Record[K, F]
	Deleted       []Delete[K]
	// Synthesized lists updated keys whose record was built locally because
	// the store did not echo it.
	Synthesized []K
}

// Changes returns the number of applied operations.
func (o Outcome[K, F]) Changes() int { return len(o.Inserted) + len(o.Updated) + len(o.Deleted) }

type executor[K domain.Key, F any] struct {
	kind        domain.EntityKind
	adapter     Adapter[K, F]
	concurrency int
	instrument  InstrumentFunc
	logger      Logger
}

type task struct {
	report domain.OperationReport
	run    func(ctx context.Context) error
}

type ledger struct {
	mu        sync.Mutex
	succeeded []domain.OperationReport
	failed    []domain.OperationReport
	skipped   []domain.OperationReport
}

func (l *ledger) succeed(r domain.OperationReport) {
	l.mu.Lock()
	l.succeeded = append(l.succeeded, r)
	l.mu.Unlock()
}

func (l *ledger) fail(r domain.OperationReport, err error) {
	r.Err = err
	l.mu.Lock()
	l.failed = append(l.failed, r)
	l.mu.Unlock()
}

func (l *ledger) skip(r domain.OperationReport) {
	l.mu.Lock()
	l.skipped = append(l.skipped, r)
	l.mu.Unlock()
}

// execute applies plan in three sequential batches: deletes, then updates,
// then inserts, so a key that is deleted and re-created never collides with
// the store's uniqueness constraint. The first failure stops the commit;
// operations already applied are kept and reported.
//
// Store calls run detached from ctx cancellation: once the first call is
// issued the commit runs to its natural end.
func (x *executor[K, F]) execute(ctx context.Context, plan Plan[K, F], baseline *Baseline[K, F]) (Outcome[K, F], error) {
	ctx = context.WithoutCancel(ctx)
	var (
		mu  sync.Mutex
		out Outcome[K, F]
		l   ledger
	)

	deletes := make([]task, 0, len(plan.Deletes))
	for _, op := range plan.Deletes {
		deletes = append(deletes, task{
			report: domain.OperationReport{Op: domain.OpDelete, Key: op.Key.String(), RecordID: op.RecordID},
			run: func(ctx context.Context) error {
				if err := x.adapter.Delete(ctx, op.RecordID); err != nil {
					return err
				}
				mu.Lock()
				out.Deleted = append(out.Deleted, op)
				mu.Unlock()
				return nil
			},
		})
	}
	updates := make([]task, 0, len(plan.Updates))
	for _, op := range plan.Updates {
		updates = append(updates, task{
			report: domain.OperationReport{Op: domain.OpUpdate, Key: op.Key.String(), RecordID: op.RecordID},
			run: func(ctx context.Context) error {
				echoed, err := x.adapter.Update(ctx, op.RecordID, op.Payload)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if echoed == nil {
					prior, _ := baseline.Get(op.Key)
					out.Updated = append(out.Updated, synthesizeUpdatedRecord(prior, op))
					out.Synthesized = append(out.Synthesized, op.Key)
					return nil
				}
				out.Updated = append(out.Updated, *echoed)
				return nil
			},
		})
	}
	inserts := make([]task, 0, len(plan.Inserts))
	for _, op := range plan.Inserts {
		inserts = append(inserts, task{
			report: domain.OperationReport{Op: domain.OpInsert, Key: op.Key.String()},
			run: func(ctx context.Context) error {
				rec, err := x.adapter.Insert(ctx, op.Payload)
				if err != nil {
					return err
				}
				mu.Lock()
				out.Inserted = append(out.Inserted, rec)
				mu.Unlock()
				return nil
			},
		})
	}

	batches := [][]task{deletes, updates, inserts}
	for i, batch := range batches {
		x.runBatch(ctx, batch, &l)
		if len(l.failed) == 0 {
			continue
		}
		for _, later := range batches[i+1:] {
			for _, t := range later {
				l.skip(t.report)
			}
		}
		break
	}

	if len(l.failed) == 0 {
		return out, nil
	}
	for _, f := range l.failed {
		x.logger.Warn("commit operation failed", "kind", x.kind, "op", f.Op, "key", f.Key, "error", f.Err)
	}
	if len(l.succeeded) == 0 {
		first := l.failed[0]
		return Outcome[K, F]{}, &domain.AdapterError{Kind: x.kind, Op: first.Op, Key: first.Key, Err: first.Err}
	}
	return Outcome[K, F]{}, &domain.PartialCommitError{
		Kind:      x.kind,
		Succeeded: l.succeeded,
		Failed:    l.failed,
		Skipped:   l.skipped,
	}
}

// runBatch runs tasks with bounded parallelism. Once a task fails no further
// task of the batch is started.
func (x *executor[K, F]) runBatch(ctx context.Context, tasks []task, l *ledger) {
	var (
		aborted atomic.Bool
		g       errgroup.Group
	)
	g.SetLimit(x.concurrency)
	for _, t := range tasks {
		if aborted.Load() {
			l.skip(t.report)
			continue
		}
		g.Go(func() error {
			if aborted.Load() {
				l.skip(t.report)
				return nil
			}
			opCtx, done := x.instrument(ctx, string(t.report.Op)+"_"+string(x.kind))
			err := t.run(opCtx)
			done(err)
			if err != nil {
				aborted.Store(true)
				l.fail(t.report, err)
				return nil
			}
			l.succeed(t.report)
			return nil
		})
	}
	_ = g.Wait()
}

// synthesizeUpdatedRecord builds the post-update record locally when the
// store returned no representation. It keeps the prior id and timestamps and
// assumes the store persisted exactly the payload.
func synthesizeUpdatedRecord[K domain.Key, F any](prior Record[K, F], op Update[K, F]) Record[K, F] {
	return Record[K, F]{
		ID:        op.RecordID,
		ParentID:  op.Payload.ParentID,
		Key:       op.Key,
		Fields:    op.Payload.Fields,
		UpdatedAt: prior.UpdatedAt,
	}
}
