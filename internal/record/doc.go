// Package record provides the data model shared by the collector, the
// reconciler and the store.
//
// This package contains type definitions and small pure helpers only. It
// imports nothing internal, so every other package can depend on it.
//
// Key design constraints:
//   - Key is the published URL and the natural identifier of a Record
//   - Keys are NFC normalized so the same archive yields the same key on
//     every filesystem
//   - All JSON tags use snake_case
package record
