package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/otasync/internal/record"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a record with every column populated.
func createTestRecord(mirrorID int64, name string) record.Record {
	return record.Record{
		Key:                fmt.Sprintf("https://mirror.example.org/nightly/%s", name),
		Filename:           name,
		Device:             "bacon",
		IncrementalVersion: "eng.build.20150101",
		TimestampUTC:       "1420070400",
		Checksum:           "d41d8cd98f00b204e9800998ecf8427e",
		Channel:            "nightly",
		APILevel:           "22",
		ChangelogURL:       fmt.Sprintf("https://mirror.example.org/nightly/changelogs/%s.changelog", name),
		MirrorID:           mirrorID,
	}
}
