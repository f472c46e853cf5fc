package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden form of a scenario execution.
type Snapshot struct {
	ScenarioName string        `json:"scenario_name"`
	Runs         []RunResult   `json:"runs"`
	Rows         []SnapshotRow `json:"rows"`
}

// SnapshotRow keeps the columns that identify a row and its content.
type SnapshotRow struct {
	MirrorID int64  `json:"mirror_id"`
	URL      string `json:"url"`
	Device   string `json:"device"`
	MD5Sum   string `json:"md5sum"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		ScenarioName: name,
		Runs:         result.Runs,
		Rows:         make([]SnapshotRow, 0, len(result.Rows)),
	}
	for _, r := range result.Rows {
		s.Rows = append(s.Rows, SnapshotRow{MirrorID: r.MirrorID, URL: r.Key, Device: r.Device, MD5Sum: r.Checksum})
	}
	return s
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario, fails t on unmet expectations and
// compares the snapshot with testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
