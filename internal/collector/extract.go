package collector

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/roach88/otasync/internal/checksum"
	"github.com/roach88/otasync/internal/record"
)

// BuildPropEntry is the archive entry holding the build properties.
const BuildPropEntry = "system/build.prop"

// ArchiveSuffix marks candidate archives.
const ArchiveSuffix = ".zip"

// changelogSuffix replaces ArchiveSuffix in changelog file names.
const changelogSuffix = ".changelog"

// maxBuildPropSize bounds how much of the build.prop entry is read.
const maxBuildPropSize = 4 << 20

// ErrMissingProperty is wrapped by ExtractError when a required property is absent.
var ErrMissingProperty = errors.New("missing required property")

// ExtractError reports an archive that could not be turned into a record.
type ExtractError struct {
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Extractor turns archive paths into outcomes.
type Extractor struct {
	mirrorID int64
	baseURL  string
	basePath string
	resolver *checksum.Resolver
	logger   *slog.Logger
}

// NewExtractor creates an Extractor publishing under baseURL the files found
// below basePath.
func NewExtractor(mirrorID int64, baseURL, basePath string, resolver *checksum.Resolver, logger *slog.Logger) *Extractor {
	return &Extractor{
		mirrorID: mirrorID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		basePath: filepath.Clean(basePath),
		resolver: resolver,
		logger:   logger,
	}
}

// Extract inspects one archive. The returned Sum is zero for skipped archives.
func (e *Extractor) Extract(archive string) (record.Outcome, checksum.Sum, error) {
	props, err := readBuildProp(archive)
	if err != nil {
		return record.Outcome{}, checksum.Sum{}, &ExtractError{Path: archive, Err: err}
	}

	// Only an absent release type skips; an empty one publishes with no channel.
	channel, ok := props[PropReleaseType]
	if !ok {
		e.logger.Debug("release type not found, skipping", "path", archive, "property", PropReleaseType)
		return record.Skip(archive, "missing "+PropReleaseType), checksum.Sum{}, nil
	}

	for _, name := range requiredProps {
		if strings.TrimSpace(props[name]) == "" {
			return record.Outcome{}, checksum.Sum{}, &ExtractError{
				Path: archive,
				Err:  fmt.Errorf("%w %s", ErrMissingProperty, name),
			}
		}
	}

	rel, err := e.relPath(archive)
	if err != nil {
		return record.Outcome{}, checksum.Sum{}, &ExtractError{Path: archive, Err: err}
	}

	sum, err := e.resolver.Resolve(archive)
	if err != nil {
		return record.Outcome{}, checksum.Sum{}, &ExtractError{Path: archive, Err: err}
	}

	r := record.Record{
		Key:                e.URL(rel),
		Filename:           filepath.Base(archive),
		Device:             strings.TrimSpace(props[PropDevice]),
		IncrementalVersion: strings.TrimSpace(props[PropIncremental]),
		TimestampUTC:       strings.TrimSpace(props[PropTimestamp]),
		Checksum:           sum.Value,
		Channel:            strings.ToLower(strings.TrimSpace(channel)),
		APILevel:           strings.TrimSpace(props[PropAPILevel]),
		ChangelogURL:       e.ChangelogURL(rel),
		MirrorID:           e.mirrorID,
	}
	return record.Accept(archive, r), sum, nil
}

// URL returns the published url of a slash separated path relative to the
// base path.
func (e *Extractor) URL(rel string) string {
	return record.NormalizeKey(e.baseURL + "/" + strings.TrimLeft(rel, "/"))
}

// ChangelogURL returns the url of the changelog published next to rel:
// <dir>/changelogs/<name>.changelog.
func (e *Extractor) ChangelogURL(rel string) string {
	dir, name := path.Split(strings.TrimLeft(rel, "/"))
	name = strings.TrimSuffix(name, ArchiveSuffix) + changelogSuffix
	return record.NormalizeKey(e.baseURL + "/" + dir + "changelogs/" + name)
}

// relPath returns archive relative to the base path, slash separated.
func (e *Extractor) relPath(archive string) (string, error) {
	rel, err := filepath.Rel(e.basePath, archive)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside of base path %s", archive, e.basePath)
	}
	return filepath.ToSlash(rel), nil
}

func readBuildProp(archive string) (map[string]string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	f, err := zr.Open(BuildPropEntry)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", BuildPropEntry, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBuildPropSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", BuildPropEntry, err)
	}

	return parseProperties(data)
}
