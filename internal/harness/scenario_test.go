package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "one insert"
runs:
  - mirror_id: 1
    current:
      - { url: "https://m/a.zip" }
assertions:
  - type: urls
    mirror_id: 1
    urls: ["https://m/a.zip"]
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Runs, 1)
	assert.Equal(t, int64(1), s.Runs[0].MirrorID)
	require.Len(t, s.Runs[0].Current, 1)
	assert.Nil(t, s.Runs[0].Expect)
	assert.Equal(t, AssertURLs, s.Assertions[0].Type)
}

func TestLoadScenario_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nrun: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: d\nruns: [{mirror_id: 1, current: []}]\nassertions: [{type: urls}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nruns: [{mirror_id: 1, current: []}]\nassertions: [{type: urls}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no runs",
			yaml:    "name: x\ndescription: d\nassertions: [{type: urls}]\n",
			wantErr: "runs list is required",
		},
		{
			name:    "no assertions",
			yaml:    "name: x\ndescription: d\nruns: [{mirror_id: 1, current: []}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "negative mirror",
			yaml:    "name: x\ndescription: d\nruns: [{mirror_id: -1, current: []}]\nassertions: [{type: urls}]\n",
			wantErr: "mirror_id must be non-negative",
		},
		{
			name:    "persisted without url",
			yaml:    "name: x\ndescription: d\npersisted: [{mirror_id: 1}]\nruns: [{mirror_id: 1, current: []}]\nassertions: [{type: urls}]\n",
			wantErr: "persisted[0]: url is required",
		},
		{
			name:    "row without expect",
			yaml:    "name: x\ndescription: d\nruns: [{mirror_id: 1, current: []}]\nassertions: [{type: row, url: u}]\n",
			wantErr: "expect is required for row",
		},
		{
			name:    "absent without url",
			yaml:    "name: x\ndescription: d\nruns: [{mirror_id: 1, current: []}]\nassertions: [{type: absent}]\n",
			wantErr: "url is required for absent",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\ndescription: d\nruns: [{mirror_id: 1, current: []}]\nassertions: [{type: trace_order}]\n",
			wantErr: `unknown assertion type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRow_RecordFillsDefaults(t *testing.T) {
	rec := Row{MirrorID: 4, URL: "https://m/nightly/a.zip", MD5Sum: "abc"}.Record()

	assert.Equal(t, "https://m/nightly/a.zip", rec.Key)
	assert.Equal(t, "a.zip", rec.Filename)
	assert.Equal(t, "abc", rec.Checksum)
	assert.Equal(t, "bacon", rec.Device)
	assert.Equal(t, "nightly", rec.Channel)
	assert.Equal(t, int64(4), rec.MirrorID)
}
