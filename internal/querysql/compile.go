// Package querysql compiles queryir statements to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/queryir"
)

// SQLCompiler compiles queryir statements to parameterized SQL for SQLite.
//
// Identifiers are always double-quoted. Values are always bound through
// `?` placeholders, never interpolated. Selects without an explicit order
// sort by row id so reads are deterministic.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a statement to SQL text and its args.
// The statement is validated first; structural defects are errors.
func (c *SQLCompiler) Compile(stmt queryir.Statement) (string, []any, error) {
	if err := queryir.Validate(stmt).Err(); err != nil {
		return "", nil, err
	}

	switch s := stmt.(type) {
	case queryir.Select:
		return c.compileSelect(s)
	case queryir.Insert:
		return c.compileInsert(s)
	case queryir.Update:
		return c.compileUpdate(s)
	case queryir.Delete:
		return c.compileDelete(s)
	case queryir.CreateTable:
		return c.compileCreateTable(s), nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func (c *SQLCompiler) compileSelect(s queryir.Select) (string, []any, error) {
	cols := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		cols[i] = QuoteIdent(col)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), QuoteIdent(s.Table))

	where, args, err := c.compileWhere(s.Filter)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(where)

	b.WriteString(" ORDER BY ")
	if s.OrderBy != "" {
		b.WriteString(s.OrderBy)
	} else {
		b.WriteString(stableOrderKey())
	}

	if s.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", s.Limit)
	}

	return b.String(), args, nil
}

func (c *SQLCompiler) compileInsert(s queryir.Insert) (string, []any, error) {
	if len(s.Columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", QuoteIdent(s.Table)), nil, nil
	}

	cols := make([]string, len(s.Columns))
	marks := make([]string, len(s.Columns))
	args := make([]any, len(s.Columns))
	for i, col := range s.Columns {
		param, err := ir.ToParam(s.Values[i])
		if err != nil {
			return "", nil, fmt.Errorf("column %q: %w", col, err)
		}
		cols[i] = QuoteIdent(col)
		marks[i] = "?"
		args[i] = param
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(s.Table),
		strings.Join(cols, ", "),
		strings.Join(marks, ", "))
	return sql, args, nil
}

func (c *SQLCompiler) compileUpdate(s queryir.Update) (string, []any, error) {
	sets := make([]string, len(s.Set))
	args := make([]any, 0, len(s.Set))
	for i, a := range s.Set {
		param, err := ir.ToParam(a.Value)
		if err != nil {
			return "", nil, fmt.Errorf("column %q: %w", a.Column, err)
		}
		sets[i] = QuoteIdent(a.Column) + " = ?"
		args = append(args, param)
	}

	where, whereArgs, err := c.compileWhere(s.Filter)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("UPDATE %s SET %s%s", QuoteIdent(s.Table), strings.Join(sets, ", "), where)
	return sql, append(args, whereArgs...), nil
}

func (c *SQLCompiler) compileDelete(s queryir.Delete) (string, []any, error) {
	where, args, err := c.compileWhere(s.Filter)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s%s", QuoteIdent(s.Table), where), args, nil
}

func (c *SQLCompiler) compileCreateTable(s queryir.CreateTable) string {
	defs := make([]string, 0, len(s.Columns)+1)
	for _, col := range s.Columns {
		def := QuoteIdent(col.Name)
		if col.Type != "" {
			def += " " + col.Type
		}
		if col.PrimaryKey {
			def += " PRIMARY KEY"
			if col.AutoIncrement {
				def += " AUTOINCREMENT"
			}
		}
		if col.NotNull {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(s.PrimaryKey) > 0 {
		keys := make([]string, len(s.PrimaryKey))
		for i, k := range s.PrimaryKey {
			keys[i] = QuoteIdent(k)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", QuoteIdent(s.Table), strings.Join(defs, ", "))
}

// compileWhere renders " WHERE <pred>" or "" for a nil filter.
func (c *SQLCompiler) compileWhere(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, args, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + sql, args, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
// Values are never interpolated.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		param, err := ir.ToParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("convert value: %w", err)
		}
		if param == nil {
			return QuoteIdent(pred.Column) + " IS NULL", nil, nil
		}
		return QuoteIdent(pred.Column) + " = ?", []any{param}, nil
	case queryir.Raw:
		// Caller text always binds tighter than a surrounding AND
		return "(" + pred.SQL + ")", pred.Args, nil
	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil // Always true (vacuous truth)
		}
		parts := make([]string, 0, len(pred.Predicates))
		var args []any
		for _, sub := range pred.Predicates {
			sql, subArgs, err := c.compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			args = append(args, subArgs...)
		}
		return strings.Join(parts, " AND "), args, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// stableOrderKey is the ORDER BY used when the caller gives none.
func stableOrderKey() string {
	return QuoteIdent(ir.RowIDColumn) + " ASC"
}

// QuoteIdent double-quotes a SQL identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
