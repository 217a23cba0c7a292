package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowbridge/internal/ir"
)

func validModel() ir.ModelDefinition {
	return ir.ModelDefinition{
		Name:  "res.partner",
		Table: "res_partner",
		Columns: []ir.ColumnDefinition{
			{Name: "name", Type: ir.TypeString},
			{Name: "parent_id", Type: ir.TypeMany2One, Relation: ir.RelationManyToOne, Ref: "res.partner"},
			{Name: "tag_ids", Type: ir.TypeMany2Many, Relation: ir.RelationManyToMany, Ref: "tag", LinkTable: "res_partner_tag_ids_rel"},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValidModel(t *testing.T) {
	assert.Empty(t, Validate(validModel()))
	m := validModel()
	assert.Empty(t, Validate(&m))
}

func TestValidateBadTableName(t *testing.T) {
	m := validModel()
	m.Table = "res partner"

	errs := Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrFieldInvalid, errs[0].Code)
	assert.Equal(t, "res.partner.table", errs[0].Field)
	assert.Contains(t, errs[0].Message, "not a valid SQL identifier")
}

func TestValidateMissingRef(t *testing.T) {
	m := validModel()
	m.Columns[1].Ref = ""

	errs := Validate(m)
	require.NotEmpty(t, errs)
	assert.Contains(t, codes(errs), ErrFieldInvalid)
	assert.Contains(t, errs[0].Field, "ref")
}

func TestValidateReservedAndDuplicateColumns(t *testing.T) {
	m := validModel()
	m.Columns = append(m.Columns,
		ir.ColumnDefinition{Name: "_id", Type: ir.TypeInt},
		ir.ColumnDefinition{Name: "name", Type: ir.TypeText},
	)

	errs := Validate(m)
	assert.Contains(t, codes(errs), ErrReservedColumn)
	assert.Contains(t, codes(errs), ErrDuplicateColumn)
}

func TestValidateRelationMismatch(t *testing.T) {
	m := validModel()
	m.Columns[0].Relation = ir.RelationManyToMany

	errs := Validate(m)
	assert.Equal(t, []string{ErrRelationMismatch}, codes(errs))
}

func TestValidateDuplicateModelsAndTables(t *testing.T) {
	a := validModel()
	b := validModel()

	c := validModel()
	c.Name = "res.partner.copy"
	c.Columns = c.Columns[:1]

	errs := Validate([]ir.ModelDefinition{a, b, c})
	assert.Contains(t, codes(errs), ErrDuplicateModel)
	assert.Contains(t, codes(errs), ErrDuplicateTable)
}

func TestValidateLinkTableCollision(t *testing.T) {
	a := validModel()
	b := ir.ModelDefinition{
		Name:    "other",
		Table:   "res_partner_tag_ids_rel",
		Columns: []ir.ColumnDefinition{{Name: "x", Type: ir.TypeInt}},
	}

	errs := Validate([]ir.ModelDefinition{a, b})
	assert.Equal(t, []string{ErrDuplicateTable}, codes(errs))
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("nope")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedType, errs[0].Code)
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "m.table", Message: "is required", Code: ErrFieldInvalid}
	assert.Equal(t, "[E101] m.table: is required", e.Error())
}
