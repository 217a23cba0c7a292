package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rowbridge/internal/ir"
)

// CompileModel parses a CUE value into a ModelDefinition.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: "res.partner": { columns: { name: "string" } }`)
//	def, err := CompileModel(v.LookupPath(cue.MakePath(cue.Str("model"), cue.Str("res.partner"))))
//
// Columns keep their declaration order. A column is either a bare type
// string or a struct with type, ref, link_table and required.
func CompileModel(v cue.Value) (*ir.ModelDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.ModelDefinition{}

	// Model name from struct label, unquoted so dotted names survive
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		sel := labels[len(labels)-1]
		if sel.LabelType() == cue.StringLabel {
			def.Name = sel.Unquoted()
		} else {
			def.Name = sel.String()
		}
	}
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Name = name
	}
	if def.Name == "" {
		return nil, &CompileError{Field: "name", Message: "model name is required", Pos: v.Pos()}
	}

	// Table defaults to the model name with dots replaced
	def.Table = strings.ReplaceAll(def.Name, ".", "_")
	if tableVal := v.LookupPath(cue.ParsePath("table")); tableVal.Exists() {
		table, err := tableVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Table = table
	}

	columns, err := parseColumns(v, def.Table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &CompileError{
			Field:   "columns",
			Message: "at least one column is required",
			Pos:     v.Pos(),
		}
	}
	def.Columns = columns

	return def, nil
}

// parseColumns extracts column definitions in declaration order.
func parseColumns(v cue.Value, table string) ([]ir.ColumnDefinition, error) {
	var columns []ir.ColumnDefinition

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return columns, nil
	}

	iter, err := colsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		col, err := parseColumn(iter.Label(), iter.Value(), table)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}

	return columns, nil
}

// parseColumn parses a single column, either `name: "string"` or
// `name: { type: "many2many", ref: "tag" }`.
func parseColumn(name string, v cue.Value, table string) (ir.ColumnDefinition, error) {
	col := ir.ColumnDefinition{Name: name}
	field := "columns." + name

	// Shorthand form
	if typeName, err := v.String(); err == nil {
		colType, err := parseColumnType(typeName, field, v)
		if err != nil {
			return col, err
		}
		if colType == ir.TypeMany2One || colType == ir.TypeMany2Many {
			return col, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("%s columns need a ref; use the struct form", colType),
				Pos:     v.Pos(),
			}
		}
		col.Type = colType
		return col, nil
	}

	if v.IncompleteKind() != cue.StructKind {
		return col, &CompileError{
			Field:   field,
			Message: "column must be a type string or a struct with a type field",
			Pos:     v.Pos(),
		}
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return col, &CompileError{Field: field + ".type", Message: "column type is required", Pos: v.Pos()}
	}
	typeName, err := typeVal.String()
	if err != nil {
		return col, formatCUEError(err)
	}
	col.Type, err = parseColumnType(typeName, field+".type", typeVal)
	if err != nil {
		return col, err
	}
	col.Relation = col.Type.Relation()

	if refVal := v.LookupPath(cue.ParsePath("ref")); refVal.Exists() {
		if col.Ref, err = refVal.String(); err != nil {
			return col, formatCUEError(err)
		}
	}
	if col.Relation != ir.RelationNone && col.Ref == "" {
		return col, &CompileError{
			Field:   field + ".ref",
			Message: fmt.Sprintf("%s columns require a ref", col.Type),
			Pos:     v.Pos(),
		}
	}

	if linkVal := v.LookupPath(cue.ParsePath("link_table")); linkVal.Exists() {
		if col.Relation != ir.RelationManyToMany {
			return col, &CompileError{
				Field:   field + ".link_table",
				Message: "link_table is only valid on many2many columns",
				Pos:     linkVal.Pos(),
			}
		}
		if col.LinkTable, err = linkVal.String(); err != nil {
			return col, formatCUEError(err)
		}
	}
	if col.Relation == ir.RelationManyToMany && col.LinkTable == "" {
		col.LinkTable = table + "_" + name + "_rel"
	}

	if reqVal := v.LookupPath(cue.ParsePath("required")); reqVal.Exists() {
		if col.Required, err = reqVal.Bool(); err != nil {
			return col, formatCUEError(err)
		}
	}

	return col, nil
}

// parseColumnType maps a type string to a column type.
func parseColumnType(name, field string, v cue.Value) (ir.ColumnType, error) {
	switch t := ir.ColumnType(name); t {
	case ir.TypeString, ir.TypeText, ir.TypeInt, ir.TypeBool, ir.TypeReal,
		ir.TypeDateTime, ir.TypeMany2One, ir.TypeMany2Many:
		return t, nil
	default:
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported column type %q", name),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
