// Package ir holds the shared vocabulary of rowbridge: model and column
// definitions, the sealed Value types, and ValueSet.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key constraints:
//   - Every model table carries _id (INTEGER PRIMARY KEY) and _write_date
//   - many2many columns never exist in the row table
//   - Relation values are stringified with MarshalCanonical before they
//     reach the link store
package ir
