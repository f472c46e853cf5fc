package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong
description: "expectations that do not hold"
persisted:
  - { mirror_id: 1, url: "https://m/a.zip" }
runs:
  - mirror_id: 1
    current: [{ url: "https://m/b.zip" }]
    expect: { inserted: 0, updated: 1, deleted: 0, skipped: 0 }
assertions:
  - type: urls
    mirror_id: 1
    urls: ["https://m/a.zip"]
  - type: row
    mirror_id: 1
    url: "https://m/b.zip"
    expect: { md5sum: "other" }
  - type: absent
    mirror_id: 1
    url: "https://m/b.zip"
  - type: run_count
    mirror_id: 1
    count: 5
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "runs[0]: expected")
	assert.Contains(t, result.Errors[1], "missing [https://m/a.zip], unexpected [https://m/b.zip]")
	assert.Contains(t, result.Errors[2], `column md5sum`)
	assert.Contains(t, result.Errors[3], "still present")
	assert.Contains(t, result.Errors[4], "expected 5 runs, got 1")
}

func TestRun_UnknownColumn(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: unknown_column
description: "row assertion on a column that does not exist"
runs:
  - mirror_id: 1
    current: [{ url: "https://m/a.zip" }]
assertions:
  - type: row
    mirror_id: 1
    url: "https://m/a.zip"
    expect: { colour: "blue" }
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `unknown column "colour"`)
}

func TestRun_InvalidRecordAbortsScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "empty_url",
		Description: "a current record without url",
		Runs:        []RunStep{{MirrorID: 1, Current: []Row{{URL: ""}}}},
		Assertions:  []Assertion{{Type: AssertURLs, MirrorID: 1}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runs[0]")
}

func TestRun_IsolatedPerScenario(t *testing.T) {
	scenario, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, first.Pass)
	assert.Equal(t, first.Runs, second.Runs, "each run starts from an empty database")
	assert.Equal(t, 1, second.Runs[0].Inserted)
}
