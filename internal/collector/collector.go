package collector

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/otasync/internal/checksum"
	"github.com/roach88/otasync/internal/config"
	"github.com/roach88/otasync/internal/record"
)

// Stats summarises a collection pass.
type Stats struct {
	Archives int `json:"archives"`
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
	// Sidecars counts checksums taken from sidecar files.
	Sidecars int `json:"sidecars"`
	// HashedBytes counts archive bytes read to compute checksums.
	HashedBytes int64 `json:"hashed_bytes"`
}

// Collector produces the current records of a mirror.
type Collector struct {
	basePath  string
	scanDirs  []string
	extractor *Extractor
	logger    *slog.Logger
}

// New creates a Collector for cfg. A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	resolver := checksum.NewResolver(cfg.Checksum)
	return &Collector{
		basePath:  cfg.BasePath,
		scanDirs:  cfg.ScanDirs,
		extractor: NewExtractor(cfg.MirrorID, cfg.BaseURL, cfg.BasePath, resolver, logger),
		logger:    logger,
	}
}

// Extractor returns the extractor used for each archive.
func (c *Collector) Extractor() *Extractor {
	return c.extractor
}

// Collect scans and extracts every archive. It stops at the first
// ExtractError; skipped archives do not stop it.
func (c *Collector) Collect(ctx context.Context) ([]record.Outcome, Stats, error) {
	var stats Stats

	archives, err := c.Scan(ctx)
	if err != nil {
		return nil, stats, err
	}
	stats.Archives = len(archives)

	outcomes := make([]record.Outcome, 0, len(archives))
	for _, archive := range archives {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		outcome, sum, err := c.extractor.Extract(archive)
		if err != nil {
			return nil, stats, err
		}

		switch outcome.Kind {
		case record.Skipped:
			stats.Skipped++
		case record.Accepted:
			stats.Accepted++
			if sum.FromSidecar {
				stats.Sidecars++
			}
			stats.HashedBytes += sum.Hashed
			c.logger.Debug("extracted", "filename", outcome.Record.Filename, "url", outcome.Record.Key)
		}
		outcomes = append(outcomes, outcome)
	}

	c.logger.Info("collection complete",
		"archives", stats.Archives,
		"accepted", stats.Accepted,
		"skipped", stats.Skipped,
	)
	return outcomes, stats, nil
}
