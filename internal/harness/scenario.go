package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/roach88/otasync/internal/record"
)

// Scenario defines a reconciliation scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Persisted rows are written before the first run.
	Persisted []Row `yaml:"persisted,omitempty"`

	// Runs are applied in order.
	Runs []RunStep `yaml:"runs"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Row is one updates row in YAML form. Columns left out get filler values
// derived from the url.
type Row struct {
	MirrorID     int64  `yaml:"mirror_id"`
	URL          string `yaml:"url"`
	Filename     string `yaml:"filename,omitempty"`
	Device       string `yaml:"device,omitempty"`
	Incremental  string `yaml:"incremental,omitempty"`
	Timestamp    string `yaml:"timestamp,omitempty"`
	MD5Sum       string `yaml:"md5sum,omitempty"`
	Channel      string `yaml:"channel,omitempty"`
	APILevel     string `yaml:"api_level,omitempty"`
	ChangelogURL string `yaml:"changes,omitempty"`
}

// Record converts the row, filling in missing columns.
func (r Row) Record() record.Record {
	rec := record.Record{
		Key:                r.URL,
		Filename:           r.Filename,
		Device:             r.Device,
		IncrementalVersion: r.Incremental,
		TimestampUTC:       r.Timestamp,
		Checksum:           r.MD5Sum,
		Channel:            r.Channel,
		APILevel:           r.APILevel,
		ChangelogURL:       r.ChangelogURL,
		MirrorID:           r.MirrorID,
	}
	if rec.Filename == "" {
		rec.Filename = path.Base(r.URL)
	}
	if rec.Device == "" {
		rec.Device = "bacon"
	}
	if rec.IncrementalVersion == "" {
		rec.IncrementalVersion = "eng.20150101"
	}
	if rec.TimestampUTC == "" {
		rec.TimestampUTC = "1420070400"
	}
	if rec.Checksum == "" {
		rec.Checksum = "d41d8cd98f00b204e9800998ecf8427e"
	}
	if rec.Channel == "" {
		rec.Channel = "nightly"
	}
	if rec.APILevel == "" {
		rec.APILevel = "22"
	}
	return rec
}

// RunStep is one reconciliation run.
type RunStep struct {
	MirrorID int64 `yaml:"mirror_id"`

	// Current is the record set the run reconciles towards. Each row's
	// mirror_id is ignored; the run's mirror_id applies.
	Current []Row `yaml:"current"`

	// Skipped is the number of archives the collector left out.
	Skipped int `yaml:"skipped,omitempty"`

	// DryRun computes the result without writing.
	DryRun bool `yaml:"dry_run,omitempty"`

	// Expect, when set, must equal the run's counts.
	Expect *RunExpect `yaml:"expect,omitempty"`
}

// RunExpect lists the counts a run must report.
type RunExpect struct {
	Inserted int `yaml:"inserted"`
	Updated  int `yaml:"updated"`
	Deleted  int `yaml:"deleted"`
	Skipped  int `yaml:"skipped"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	MirrorID int64 `yaml:"mirror_id"`

	// URL selects the row (row, absent).
	URL string `yaml:"url,omitempty"`

	// URLs is the expected url set (urls).
	URLs []string `yaml:"urls,omitempty"`

	// Expect holds column values keyed by column name (row).
	Expect map[string]string `yaml:"expect,omitempty"`

	// Count is the expected number of runs (run_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertURLs     = "urls"
	AssertRow      = "row"
	AssertAbsent   = "absent"
	AssertRunCount = "run_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos do not silently pass.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, row := range s.Persisted {
		if row.URL == "" {
			return fmt.Errorf("persisted[%d]: url is required", i)
		}
	}

	for i, run := range s.Runs {
		if run.MirrorID < 0 {
			return fmt.Errorf("runs[%d]: mirror_id must be non-negative", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertURLs:
	case AssertRow:
		if a.URL == "" {
			return fmt.Errorf("assertions[%d]: url is required for row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row", index)
		}
	case AssertAbsent:
		if a.URL == "" {
			return fmt.Errorf("assertions[%d]: url is required for absent", index)
		}
	case AssertRunCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for run_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
