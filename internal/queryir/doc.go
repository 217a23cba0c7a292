// Package queryir provides the statement intermediate representation (IR)
// the record router and store sessions speak.
//
// The router never writes SQL text of its own. It describes each step of a
// request as a Statement, and the querysql package turns that into
// parameterized SQLite SQL:
//
//	[router] → [Statement] → [querysql] → SQL + args → [store session]
//
// STATEMENTS:
//
//   - Select: explicit column list, optional filter, ORDER BY, LIMIT
//   - Insert: one row, columns paired with values
//   - Update: ordered assignments plus optional filter
//   - Delete: optional filter
//   - CreateTable: table definition for schema creation
//
// PREDICATES:
//
//   - Equals: column = value
//   - Raw: caller-supplied selection text with positional args
//   - And: conjunction
//
// Raw carries the selection string a caller hands to query, update or
// delete. It is passed through verbatim; only its args are bound, never
// interpolated. Use Selection to turn an empty selection into no filter.
//
// SEALED INTERFACES:
//
// Statement and Predicate are sealed interfaces using the marker method
// pattern, so the SQL compiler can switch exhaustively:
//
//	switch s := stmt.(type) {
//	case Select:
//	case Insert:
//	case Update:
//	case Delete:
//	case CreateTable:
//	}
//
// Values are ir.Value; Lists are rejected at compile time since many2many
// data never lands in a row table.
package queryir
