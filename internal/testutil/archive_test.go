package testutil

import (
	"archive/zip"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProp_SortedLines(t *testing.T) {
	got := BuildProp(map[string]string{"b": "2", "a": "1"})
	assert.Contains(t, got, "a=1\nb=2\n")
	assert.Contains(t, got, "# begin build properties")
}

func TestWriteOTA_ContainsBuildProp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cm-12.1-bacon.zip")
	WriteOTA(t, path, OTAProps("bacon", "abc"))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	f, err := zr.Open(BuildPropEntry)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ro.cm.device=bacon\n")
	assert.Contains(t, string(data), "ro.odp.releasetype=NIGHTLY\n")
}
