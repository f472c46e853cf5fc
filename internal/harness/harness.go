package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/otasync/internal/reconcile"
	"github.com/roach88/otasync/internal/record"
	"github.com/roach88/otasync/internal/store"
	"github.com/roach88/otasync/internal/testutil"
)

// maxRuns bounds the sync_runs rows read back per mirror.
const maxRuns = 1000

// Harness runs scenarios against a fresh in-memory database with a
// deterministic clock and run ids.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	runIDs *reconcile.FixedGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory database
//  2. Seed the persisted rows
//  3. Apply every run in order, checking expected counts
//  4. Read back the rows and run counts of every mirror mentioned
//  5. Evaluate assertions
//
// A returned error means the scenario could not be executed; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ids := make([]string, len(scenario.Runs))
	for i := range ids {
		ids[i] = fmt.Sprintf("run-%04d", i+1)
	}

	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		runIDs: reconcile.NewFixedGenerator(ids...),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	return h.execute(ctx, scenario)
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	for i, row := range scenario.Persisted {
		if err := h.store.Upsert(ctx, row.Record()); err != nil {
			return nil, fmt.Errorf("persisted[%d]: %w", i, err)
		}
	}

	for i, step := range scenario.Runs {
		run, err := h.applyRun(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("runs[%d]: %w", i, err)
		}
		result.Runs = append(result.Runs, run)

		if step.Expect != nil {
			got := RunExpect{Inserted: run.Inserted, Updated: run.Updated, Deleted: run.Deleted, Skipped: run.Skipped}
			if got != *step.Expect {
				result.AddError(fmt.Sprintf("runs[%d]: expected %+v, got %+v", i, *step.Expect, got))
			}
		}
	}

	for _, mirrorID := range scenario.mirrors() {
		rows, err := h.store.ListUpdates(ctx, mirrorID)
		if err != nil {
			return nil, fmt.Errorf("read mirror %d: %w", mirrorID, err)
		}
		result.Rows = append(result.Rows, rows...)

		runs, err := h.store.ListRuns(ctx, mirrorID, maxRuns)
		if err != nil {
			return nil, fmt.Errorf("read runs of mirror %d: %w", mirrorID, err)
		}
		result.RunCounts[mirrorID] = len(runs)
	}

	for i, a := range scenario.Assertions {
		if err := evaluate(a, result); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}

	return result, nil
}

// applyRun reconciles one step. Skipped archives are fed through as
// Skipped outcomes the way the collector produces them.
func (h *Harness) applyRun(ctx context.Context, step RunStep) (RunResult, error) {
	outcomes := make([]record.Outcome, 0, len(step.Current)+step.Skipped)
	for _, row := range step.Current {
		rec := row.Record()
		outcomes = append(outcomes, record.Accept(rec.Filename, rec))
	}
	for i := 0; i < step.Skipped; i++ {
		outcomes = append(outcomes, record.Skip(fmt.Sprintf("skipped-%d.zip", i), "scenario"))
	}

	rec := reconcile.New(reconcile.FromStore(h.store), reconcile.Options{
		Logger: h.logger,
		Now:    h.clock.Now,
		RunIDs: h.runIDs,
		DryRun: step.DryRun,
	})
	res, err := rec.ReconcileOutcomes(ctx, step.MirrorID, outcomes)
	if err != nil {
		return RunResult{}, err
	}

	return RunResult{
		RunID:       res.RunID,
		MirrorID:    res.MirrorID,
		Inserted:    res.Inserted,
		Updated:     res.Updated,
		Deleted:     res.Deleted,
		Skipped:     res.Skipped,
		DryRun:      res.DryRun,
		DeletedKeys: res.DeletedKeys,
	}, nil
}

// mirrors returns every mirror id the scenario mentions, ascending.
func (s *Scenario) mirrors() []int64 {
	var ids []int64
	add := func(id int64) {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	for _, row := range s.Persisted {
		add(row.MirrorID)
	}
	for _, run := range s.Runs {
		add(run.MirrorID)
	}
	for _, a := range s.Assertions {
		add(a.MirrorID)
	}
	slices.Sort(ids)
	return ids
}
