// Package harness replays YAML scenarios through the record router.
//
// A scenario names a directory of CUE model files, then runs a list of
// steps (query, insert, update, delete) against a fresh set of per-user
// SQLite databases. Each step may carry expectations; after the last step,
// assertions check the final rows, links and change count.
//
// # Scenario Format
//
//	name: partner_links
//	description: "Insert partners with categories, then relink one"
//	models: ../models
//	user: alice
//	steps:
//	  - op: insert
//	    model: res.partner
//	    values: { name: A, category_ids: [1, 2] }
//	    expect: { row_id: 1 }
//	  - op: update
//	    model: res.partner
//	    row: 1
//	    values: { category_ids: [7] }
//	    expect: { count: 1 }
//	assertions:
//	  - type: links
//	    model: res.partner
//	    row: 1
//	    column: category_ids
//	    ids: [7]
//	  - type: row
//	    model: res.partner
//	    where: { name: A }
//	    expect: { name: A }
//
// # Assertion Types
//
//   - row: exactly one row matches where, and its columns match expect
//   - row_count: count rows match where
//   - links: the ordered link targets of one row's many2many column
//   - changes: count change events were published
//
// # Deterministic Testing
//
// Every run uses a testutil.DeterministicClock for _write_date stamps and a
// testutil.SequenceGenerator for change ids, so the same scenario always
// produces the same trace. Traces are compared against golden files with
// RunWithGolden.
package harness
