// Package collector discovers OTA archives below the mirror base path and
// turns each one into a record.Outcome.
//
// Each scan directory is joined to the base path with securejoin, so a
// symlink inside the tree can never lead the walk outside of it. Archives are
// inspected in lexical walk order and their system/build.prop resource is
// parsed as flat key=value lines.
//
// An archive without a release type is Skipped: it is not a publishable
// build. Any other problem (unreadable archive, missing build.prop, missing
// required property) is an ExtractError and aborts collection, because
// reconciling an incomplete inventory would prune rows of archives that are
// still on disk.
package collector
