package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Scan returns the candidate archives below every scan directory, in scan
// directory order and lexical order within each directory. A scan directory
// that does not exist is logged and skipped.
func (c *Collector) Scan(ctx context.Context) ([]string, error) {
	var found []string
	for _, dir := range c.scanDirs {
		root, err := securejoin.SecureJoin(c.basePath, dir)
		if err != nil {
			return nil, fmt.Errorf("resolve scan dir %q: %w", dir, err)
		}

		info, err := os.Stat(root)
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("scan directory does not exist, skipping", "dir", root)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat scan dir %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("scan dir %s is not a directory", root)
		}

		files, err := c.scanPath(ctx, root)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("scanned directory", "dir", root, "archives", len(files))
		found = append(found, files...)
	}
	return found, nil
}

// scanPath walks root collecting archives: regular files with the archive
// suffix, and symlinks with that suffix whose target is a regular file
// inside the base path. Directory symlinks are not followed.
func (c *Collector) scanPath(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !strings.HasSuffix(d.Name(), ArchiveSuffix) {
			return nil
		}
		switch {
		case d.Type().IsRegular():
			files = append(files, p)
		case d.Type()&fs.ModeSymlink != 0:
			if c.linkedArchive(p) {
				files = append(files, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// linkedArchive reports whether the symlink at link points to a regular
// file below the base path.
func (c *Collector) linkedArchive(link string) bool {
	target, err := filepath.EvalSymlinks(link)
	if err != nil {
		c.logger.Warn("dangling archive symlink, skipping", "path", link, "error", err)
		return false
	}
	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	base, err := filepath.EvalSymlinks(c.basePath)
	if err != nil {
		base = c.basePath
	}
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		c.logger.Warn("archive symlink points outside base path, skipping", "path", link, "target", target)
		return false
	}
	return true
}
