package ir

import "time"

// Reserved columns present on every model table.
const (
	// RowIDColumn is the monotonically assigned integer primary key.
	RowIDColumn = "_id"

	// WriteDateColumn is stamped with the UTC time on every insert and update.
	WriteDateColumn = "_write_date"
)

// DateTimeLayout is the UTC layout used for WriteDateColumn and datetime columns.
const DateTimeLayout = "2006-01-02 15:04:05"

// FormatWriteDate renders t the way WriteDateColumn stores it.
func FormatWriteDate(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}

// RelationKind tags a column with how it relates to other models.
type RelationKind int

const (
	// RelationNone is a plain scalar column.
	RelationNone RelationKind = iota
	// RelationManyToOne is a scalar foreign key stored in the row table.
	RelationManyToOne
	// RelationManyToMany is a link-table association, never a row-table column.
	RelationManyToMany
)

// String returns the lowercase kind name.
func (k RelationKind) String() string {
	switch k {
	case RelationNone:
		return "none"
	case RelationManyToOne:
		return "many2one"
	case RelationManyToMany:
		return "many2many"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k RelationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ColumnType is the declared type of a model column.
type ColumnType string

// Supported column types.
const (
	TypeString    ColumnType = "string"
	TypeText      ColumnType = "text"
	TypeInt       ColumnType = "int"
	TypeBool      ColumnType = "bool"
	TypeReal      ColumnType = "real"
	TypeDateTime  ColumnType = "datetime"
	TypeMany2One  ColumnType = "many2one"
	TypeMany2Many ColumnType = "many2many"
)

// Relation returns the relation kind implied by the column type.
func (t ColumnType) Relation() RelationKind {
	switch t {
	case TypeMany2One:
		return RelationManyToOne
	case TypeMany2Many:
		return RelationManyToMany
	default:
		return RelationNone
	}
}

// SQLType returns the SQLite storage class for the column type.
// Many2many columns have no storage class; they live in link tables.
func (t ColumnType) SQLType() string {
	switch t {
	case TypeInt, TypeBool, TypeMany2One:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeMany2Many:
		return ""
	default:
		return "TEXT"
	}
}

// ColumnDefinition describes one field of a model.
type ColumnDefinition struct {
	Name      string       `json:"name" validate:"required,identifier"`
	Type      ColumnType   `json:"type" validate:"required,oneof=string text int bool real datetime many2one many2many"`
	Relation  RelationKind `json:"relation"`
	Ref       string       `json:"ref,omitempty" validate:"required_if=Type many2one,required_if=Type many2many"`
	LinkTable string       `json:"link_table,omitempty" validate:"required_if=Type many2many,omitempty,identifier"`
	Required  bool         `json:"required,omitempty"`
}

// ModelDefinition identifies a backing table and its ordered columns.
// Definitions are read-only reference data; Owner is filled in per lookup.
type ModelDefinition struct {
	Name    string             `json:"name" validate:"required"`
	Table   string             `json:"table" validate:"required,identifier"`
	Owner   string             `json:"owner,omitempty"`
	Columns []ColumnDefinition `json:"columns" validate:"dive"`
}

// Column returns the definition of the named column.
// The reserved _id and _write_date columns are always known.
func (m *ModelDefinition) Column(name string) (*ColumnDefinition, bool) {
	switch name {
	case RowIDColumn:
		return &ColumnDefinition{Name: RowIDColumn, Type: TypeInt}, true
	case WriteDateColumn:
		return &ColumnDefinition{Name: WriteDateColumn, Type: TypeDateTime}, true
	}
	for i := range m.Columns {
		if m.Columns[i].Name == name {
			return &m.Columns[i], true
		}
	}
	return nil, false
}

// PhysicalColumns returns every column stored in the row table, reserved
// columns included, in declaration order.
func (m *ModelDefinition) PhysicalColumns() []string {
	cols := []string{RowIDColumn}
	for _, c := range m.Columns {
		if c.Relation != RelationManyToMany {
			cols = append(cols, c.Name)
		}
	}
	return append(cols, WriteDateColumn)
}

// LinkColumns returns the many2many columns in declaration order.
func (m *ModelDefinition) LinkColumns() []ColumnDefinition {
	var cols []ColumnDefinition
	for _, c := range m.Columns {
		if c.Relation == RelationManyToMany {
			cols = append(cols, c)
		}
	}
	return cols
}

// ForOwner returns a copy of the definition bound to user.
func (m ModelDefinition) ForOwner(user string) *ModelDefinition {
	cols := make([]ColumnDefinition, len(m.Columns))
	copy(cols, m.Columns)
	m.Columns = cols
	m.Owner = user
	return &m
}
