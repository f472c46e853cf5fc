// Package harness runs reconciliation scenarios described in YAML.
//
// A scenario seeds the updates table, applies one or more reconciliation
// runs and asserts on the rows left behind.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	persisted:
//	  - { mirror_id: 1, url: "https://m/a.zip", md5sum: "aaa" }
//	runs:
//	  - mirror_id: 1
//	    current:
//	      - { url: "https://m/a.zip", md5sum: "bbb" }
//	    skipped: 1
//	    expect: { inserted: 0, updated: 1, deleted: 0 }
//	assertions:
//	  - type: urls
//	    mirror_id: 1
//	    urls: ["https://m/a.zip"]
//	  - type: row
//	    mirror_id: 1
//	    url: "https://m/a.zip"
//	    expect: { md5sum: "bbb" }
//
// # Assertion Types
//
//   - urls: the set of urls stored for a mirror equals the listed set
//   - row: a stored row matches every listed column
//   - absent: no row exists for the url in the mirror
//   - run_count: the number of sync_runs rows of a mirror
//
// # Deterministic Testing
//
// Runs use fixed run ids (run-0001, run-0002, ...) and a deterministic
// clock against a fresh in-memory SQLite database, so the final snapshot
// can be compared with a golden file.
package harness
