package queryir

import "github.com/roach88/rowbridge/internal/ir"

// Statement is a single SQL statement in IR form.
//
// This is a sealed interface - only types in this package implement it.
type Statement interface {
	statementNode() // Marker method - seals interface to this package
}

// Predicate is a WHERE condition.
//
// This is a sealed interface - only types in this package implement it.
// A nil Predicate means "no filter".
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads Columns from Table.
//
//	SELECT <columns> FROM <table> [WHERE <filter>] ORDER BY <order> [LIMIT n]
//
// Columns must be explicit; there is no SELECT *. An empty OrderBy sorts by
// the row id so results are deterministic. OrderBy is caller text and is
// emitted verbatim.
type Select struct {
	Table   string
	Columns []string
	Filter  Predicate
	OrderBy string
	Limit   int // 0 = no limit
}

func (Select) statementNode() {}

// Insert writes one row.
//
//	INSERT INTO <table> (<columns>) VALUES (?, ...)
//
// Columns and Values are parallel slices.
type Insert struct {
	Table   string
	Columns []string
	Values  []ir.Value
}

func (Insert) statementNode() {}

// Assignment is one `column = value` pair of an Update.
type Assignment struct {
	Column string
	Value  ir.Value
}

// Update rewrites the rows matching Filter.
//
//	UPDATE <table> SET <col> = ?, ... [WHERE <filter>]
type Update struct {
	Table  string
	Set    []Assignment
	Filter Predicate
}

func (Update) statementNode() {}

// Delete removes the rows matching Filter.
//
//	DELETE FROM <table> [WHERE <filter>]
type Delete struct {
	Table  string
	Filter Predicate
}

func (Delete) statementNode() {}

// ColumnSpec is one column of a CreateTable.
type ColumnSpec struct {
	Name          string
	Type          string // SQLite storage class
	NotNull       bool
	PrimaryKey    bool // single-column primary key
	AutoIncrement bool // only with PrimaryKey on an INTEGER column
}

// CreateTable creates Table if it does not already exist.
// PrimaryKey names a composite key; leave it empty when a column carries
// its own PrimaryKey flag.
type CreateTable struct {
	Table      string
	Columns    []ColumnSpec
	PrimaryKey []string
}

func (CreateTable) statementNode() {}

// Equals matches rows whose Column holds Value.
//
//	<column> = ?
type Equals struct {
	Column string
	Value  ir.Value
}

func (Equals) predicateNode() {}

// Raw is caller-supplied WHERE text with positional `?` args.
type Raw struct {
	SQL  string
	Args []any
}

func (Raw) predicateNode() {}

// And is a conjunction. Empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Selection wraps a caller selection as a Predicate.
// An empty selection returns nil, meaning every row.
func Selection(sql string, args []any) Predicate {
	if sql == "" {
		return nil
	}
	return Raw{SQL: sql, Args: args}
}

// RowID matches the row with the given primary key.
func RowID(id int64) Predicate {
	return Equals{Column: ir.RowIDColumn, Value: ir.Integer(id)}
}
