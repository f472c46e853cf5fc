package collector

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/otasync/internal/checksum"
	"github.com/roach88/otasync/internal/config"
	"github.com/roach88/otasync/internal/record"
	"github.com/roach88/otasync/internal/testutil"
)

func testConfig(base string, dirs ...string) *config.Config {
	return &config.Config{
		MirrorID: 4,
		BaseURL:  "https://mirror.example.org/",
		BasePath: base,
		ScanDirs: dirs,
		Checksum: checksum.MD5,
	}
}

func fileMD5(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func TestCollect_SkipsArchiveWithoutReleaseType(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "nightly", "bacon")

	testutil.WriteOTA(t, filepath.Join(dir, "cm-a.zip"), testutil.OTAProps("bacon", "a"))

	noChannel := testutil.OTAProps("bacon", "b")
	delete(noChannel, PropReleaseType)
	testutil.WriteOTA(t, filepath.Join(dir, "cm-b.zip"), noChannel)

	testutil.WriteOTA(t, filepath.Join(dir, "cm-c.zip"), testutil.OTAProps("bacon", "c"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not an archive"), 0o644))

	outcomes, stats, err := New(testConfig(base, "/nightly"), nil).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, outcomes, 3)
	assert.Equal(t, record.Accepted, outcomes[0].Kind)
	assert.Equal(t, record.Skipped, outcomes[1].Kind)
	assert.Contains(t, outcomes[1].Reason, PropReleaseType)
	assert.Equal(t, record.Accepted, outcomes[2].Kind, "a skip must not stop extraction of later archives")

	records, skipped := record.Split(outcomes)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []string{
		"https://mirror.example.org/nightly/bacon/cm-a.zip",
		"https://mirror.example.org/nightly/bacon/cm-c.zip",
	}, record.Keys(records))

	assert.Equal(t, Stats{
		Archives:    3,
		Accepted:    2,
		Skipped:     1,
		HashedBytes: stats.HashedBytes,
	}, stats)
	assert.Positive(t, stats.HashedBytes)
}

func TestExtract_RecordFields(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "nightly", "cm-12.1-20150101-NIGHTLY-bacon.zip")
	props := testutil.OTAProps("bacon", "eng.build.0101")
	props[PropReleaseType] = " Nightly "
	testutil.WriteOTA(t, archive, props)

	c := New(testConfig(base, "/nightly"), nil)
	outcome, sum, err := c.Extractor().Extract(archive)
	require.NoError(t, err)
	require.Equal(t, record.Accepted, outcome.Kind)

	assert.Equal(t, record.Record{
		Key:                "https://mirror.example.org/nightly/cm-12.1-20150101-NIGHTLY-bacon.zip",
		Filename:           "cm-12.1-20150101-NIGHTLY-bacon.zip",
		Device:             "bacon",
		IncrementalVersion: "eng.build.0101",
		TimestampUTC:       "1420070400",
		Checksum:           fileMD5(t, archive),
		Channel:            "nightly",
		APILevel:           "22",
		ChangelogURL:       "https://mirror.example.org/nightly/changelogs/cm-12.1-20150101-NIGHTLY-bacon.changelog",
		MirrorID:           4,
	}, outcome.Record)
	assert.False(t, sum.FromSidecar)
}

func TestExtract_KeyIsDeterministic(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "nightly", "a.zip")
	testutil.WriteOTA(t, archive, testutil.OTAProps("bacon", "a"))

	c := New(testConfig(base, "/nightly"), nil)
	first, _, err := c.Extractor().Extract(archive)
	require.NoError(t, err)
	second, _, err := c.Extractor().Extract(archive)
	require.NoError(t, err)

	assert.Equal(t, first.Record, second.Record)
}

func TestExtract_UsesSidecar(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "nightly", "a.zip")
	testutil.WriteOTA(t, archive, testutil.OTAProps("bacon", "a"))
	require.NoError(t, os.WriteFile(archive+".md5sum", []byte("cafebabecafebabecafebabecafebabe  a.zip\n"), 0o644))

	outcomes, stats, err := New(testConfig(base, "/nightly"), nil).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "cafebabecafebabecafebabecafebabe", outcomes[0].Record.Checksum)
	assert.Equal(t, 1, stats.Sidecars)
	assert.Zero(t, stats.HashedBytes)
}

func TestExtract_MissingRequiredProperty(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "nightly", "a.zip")
	props := testutil.OTAProps("bacon", "a")
	delete(props, PropDevice)
	testutil.WriteOTA(t, archive, props)

	_, _, err := New(testConfig(base, "/nightly"), nil).Collect(context.Background())
	require.Error(t, err)

	var extractErr *ExtractError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, archive, extractErr.Path)
	assert.ErrorIs(t, err, ErrMissingProperty)
	assert.Contains(t, err.Error(), PropDevice)
}

func TestExtract_MissingBuildProp(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "nightly", "a.zip")
	testutil.WriteZip(t, archive, map[string]string{"boot.img": "x"})

	_, _, err := New(testConfig(base, "/nightly"), nil).Extractor().Extract(archive)
	var extractErr *ExtractError
	require.ErrorAs(t, err, &extractErr)
	assert.Contains(t, err.Error(), BuildPropEntry)
}

func TestExtract_NotAZip(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "nightly", "broken.zip")
	require.NoError(t, os.MkdirAll(filepath.Dir(archive), 0o755))
	require.NoError(t, os.WriteFile(archive, []byte("definitely not a zip"), 0o644))

	_, _, err := New(testConfig(base, "/nightly"), nil).Extractor().Extract(archive)
	var extractErr *ExtractError
	assert.ErrorAs(t, err, &extractErr)
}

func TestExtract_EmptyReleaseTypeIsPublished(t *testing.T) {
	base := t.TempDir()
	archive := filepath.Join(base, "nightly", "cm-e.zip")
	props := testutil.OTAProps("bacon", "e")
	props[PropReleaseType] = ""
	testutil.WriteOTA(t, archive, props)

	outcome, _, err := New(testConfig(base, "/nightly"), nil).Extractor().Extract(archive)
	require.NoError(t, err)

	assert.Equal(t, record.Accepted, outcome.Kind)
	assert.Equal(t, "", outcome.Record.Channel)
	assert.Equal(t, "https://mirror.example.org/nightly/cm-e.zip", outcome.Record.Key)
}

func TestScan_OrderAndMissingDirs(t *testing.T) {
	base := t.TempDir()
	testutil.WriteOTA(t, filepath.Join(base, "snapshots", "z.zip"), testutil.OTAProps("d", "z"))
	testutil.WriteOTA(t, filepath.Join(base, "nightly", "b", "b.zip"), testutil.OTAProps("d", "b"))
	testutil.WriteOTA(t, filepath.Join(base, "nightly", "a.zip"), testutil.OTAProps("d", "a"))

	files, err := New(testConfig(base, "/snapshots", "/missing", "/nightly"), nil).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(base, "snapshots", "z.zip"),
		filepath.Join(base, "nightly", "a.zip"),
		filepath.Join(base, "nightly", "b", "b.zip"),
	}, files)
}

func TestScan_SymlinkCannotEscapeBase(t *testing.T) {
	outside := t.TempDir()
	testutil.WriteOTA(t, filepath.Join(outside, "secret.zip"), testutil.OTAProps("d", "s"))

	base := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(base, "escape")))

	files, err := New(testConfig(base, "/escape"), nil).Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCollect_FollowsArchiveSymlinkInsideBase(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "builds", "cm-a.zip")
	testutil.WriteOTA(t, target, testutil.OTAProps("bacon", "eng.a"))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "nightly"), 0o755))
	link := filepath.Join(base, "nightly", "cm-a.zip")
	require.NoError(t, os.Symlink(target, link))

	outcomes, stats, err := New(testConfig(base, "/nightly"), nil).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.Equal(t, 1, stats.Archives)
	assert.Equal(t, record.Accepted, outcomes[0].Kind)
	assert.Equal(t, link, outcomes[0].Path)
	assert.Equal(t, "https://mirror.example.org/nightly/cm-a.zip", outcomes[0].Record.Key)
	assert.Equal(t, "cm-a.zip", outcomes[0].Record.Filename)
	assert.Equal(t, fileMD5(t, target), outcomes[0].Record.Checksum)
}

func TestScan_SkipsArchiveSymlinksOutsideBaseOrDangling(t *testing.T) {
	outside := t.TempDir()
	testutil.WriteOTA(t, filepath.Join(outside, "secret.zip"), testutil.OTAProps("d", "s"))

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "nightly"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.zip"), filepath.Join(base, "nightly", "out.zip")))
	require.NoError(t, os.Symlink(filepath.Join(base, "gone.zip"), filepath.Join(base, "nightly", "dangling.zip")))
	require.NoError(t, os.Symlink(filepath.Join(base, "nightly"), filepath.Join(base, "nightly", "dir.zip")))
	testutil.WriteOTA(t, filepath.Join(base, "nightly", "real.zip"), testutil.OTAProps("d", "r"))

	files, err := New(testConfig(base, "/nightly"), nil).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(base, "nightly", "real.zip")}, files)
}

func TestScan_Cancelled(t *testing.T) {
	base := t.TempDir()
	testutil.WriteOTA(t, filepath.Join(base, "nightly", "a.zip"), testutil.OTAProps("d", "a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig(base, "/nightly"), nil).Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestURLs(t *testing.T) {
	e := NewExtractor(1, "https://m/", "/srv", checksum.NewResolver(checksum.MD5), nil)

	assert.Equal(t, "https://m/a/b.zip", e.URL("a/b.zip"))
	assert.Equal(t, "https://m/a/b.zip", e.URL("/a/b.zip"))
	assert.Equal(t, "https://m/changelogs/b.changelog", e.ChangelogURL("b.zip"))
	assert.Equal(t, "https://m/a/changelogs/b.changelog", e.ChangelogURL("a/b.zip"))
}
