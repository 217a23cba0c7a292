package ir

// ResultSet is a materialized query result. Rows hold one Value per column,
// in Columns order. It is detached from any database session.
type ResultSet struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Index returns the position of column, or -1.
func (r *ResultSet) Index(column string) int {
	if r == nil {
		return -1
	}
	for i, c := range r.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Get returns the value of column in row i.
func (r *ResultSet) Get(i int, column string) (Value, bool) {
	col := r.Index(column)
	if col < 0 || i < 0 || i >= r.Len() {
		return nil, false
	}
	return r.Rows[i][col], true
}

// Records converts the rows to column-keyed sets, preserving column order.
func (r *ResultSet) Records() []*ValueSet {
	out := make([]*ValueSet, 0, r.Len())
	for i := 0; i < r.Len(); i++ {
		vs := NewValueSet()
		for j, c := range r.Columns {
			vs.Set(c, r.Rows[i][j])
		}
		out = append(out, vs)
	}
	return out
}
