// Package reconcile makes the published rows of a mirror equal to the set of
// archives found on disk.
//
// A run is one transaction:
//
//  1. Snapshot: read the urls currently published for the mirror; they seed
//     the set of stale candidates
//  2. Upsert: write every current record with an atomic conflict-resolving
//     upsert and drop its url from the stale candidates
//  3. Prune: delete every url left in the stale candidates
//  4. Log: insert a sync_runs row and commit
//
// Any failure rolls the transaction back, so the table holds either the
// previous state or the new one, never a mixture. Rows of other mirrors are
// never read or written.
package reconcile
