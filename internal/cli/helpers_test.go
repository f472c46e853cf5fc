package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testMirrorID = 3

// testEnv is a mirror tree plus the configuration pointing at it.
type testEnv struct {
	BasePath   string
	DBPath     string
	ConfigPath string
}

// newTestEnv writes a config.ini for a mirror rooted in a temp dir,
// scanning /nightly and /snapshots, backed by a SQLite file.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		BasePath:   filepath.Join(dir, "mirror"),
		DBPath:     filepath.Join(dir, "updates.db"),
		ConfigPath: filepath.Join(dir, "config.ini"),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(env.BasePath, "nightly"), 0o755))
	env.writeConfig(t, env.DBPath)
	return env
}

func (e testEnv) writeConfig(t *testing.T, dbPath string) {
	t.Helper()
	ini := fmt.Sprintf(`[general]
mirror_id = %d
base_url = https://mirror.example.org
base_path = %s
scan_dirs = /nightly:/snapshots

[database]
driver = sqlite3
db = %s
`, testMirrorID, e.BasePath, dbPath)
	require.NoError(t, os.WriteFile(e.ConfigPath, []byte(ini), 0o644))
}

// archive returns the path of name below the nightly directory.
func (e testEnv) archive(name string) string {
	return filepath.Join(e.BasePath, "nightly", name)
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
