package router

import (
	"github.com/roach88/rowbridge/internal/ir"
)

// FilterProjection reduces a requested projection to the columns that exist
// in the model's row table.
//
// many2many columns and unknown names are removed; plain and many2one
// columns are kept. The result keeps first-seen input order with duplicates
// removed. A nil result means "every physical column", both for an empty
// request and for a request that filtered down to nothing.
func FilterProjection(model *ir.ModelDefinition, requested []string) []string {
	if len(requested) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(requested))
	var out []string
	for _, name := range requested {
		if seen[name] {
			continue
		}
		col, ok := model.Column(name)
		if !ok || col.Relation == ir.RelationManyToMany {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// RelationValue is a stringified many2many value bound for a link table.
type RelationValue struct {
	Column    string
	LinkTable string
	Value     string
	// Err is set when the value could not be stringified.
	Err error
}

// Partition is a ValueSet split against a model.
type Partition struct {
	// Plain holds plain and many2one columns, destined for the row table.
	Plain *ir.ValueSet
	// Relation holds many2many columns in input order.
	Relation []RelationValue
	// Dropped lists input names the model does not know.
	Dropped []string
}

// Split partitions values against model. Plain and Relation are disjoint
// and together cover exactly the known input names.
//
// many2many values are stringified with canonical JSON; a Text value is
// taken to be stringified already and is kept verbatim.
func Split(model *ir.ModelDefinition, values *ir.ValueSet) Partition {
	p := Partition{Plain: ir.NewValueSet()}

	for _, name := range values.Keys() {
		v, _ := values.Get(name)

		col, ok := model.Column(name)
		if !ok {
			p.Dropped = append(p.Dropped, name)
			continue
		}

		if col.Relation != ir.RelationManyToMany {
			p.Plain.Set(name, v)
			continue
		}

		rv := RelationValue{Column: name, LinkTable: col.LinkTable}
		if text, isText := v.(ir.Text); isText {
			rv.Value = string(text)
		} else {
			rv.Value, rv.Err = ir.EncodeRelation(v)
		}
		p.Relation = append(p.Relation, rv)
	}

	return p
}
