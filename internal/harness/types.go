package harness

import "github.com/roach88/otasync/internal/record"

// RunResult is what one reconciliation run reported.
type RunResult struct {
	RunID       string   `json:"run_id,omitempty"`
	MirrorID    int64    `json:"mirror_id"`
	Inserted    int      `json:"inserted"`
	Updated     int      `json:"updated"`
	Deleted     int      `json:"deleted"`
	Skipped     int      `json:"skipped"`
	DryRun      bool     `json:"dry_run,omitempty"`
	DeletedKeys []string `json:"deleted_keys,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every run expectation and assertion held.
	Pass bool `json:"pass"`

	// Runs holds one entry per run step, in order.
	Runs []RunResult `json:"runs"`

	// Rows is the final content of updates for every mirror the scenario
	// mentions, ordered by mirror then url.
	Rows []record.Record `json:"rows"`

	// RunCounts is the number of sync_runs rows per mirror.
	RunCounts map[int64]int `json:"run_counts"`

	// Errors contains validation error messages.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Runs:      []RunResult{},
		Rows:      []record.Record{},
		RunCounts: make(map[int64]int),
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// MirrorRows returns the final rows of one mirror.
func (r *Result) MirrorRows(mirrorID int64) []record.Record {
	var rows []record.Record
	for _, row := range r.Rows {
		if row.MirrorID == mirrorID {
			rows = append(rows, row)
		}
	}
	return rows
}
