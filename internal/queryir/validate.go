package queryir

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationResult lists the problems found in a statement.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each structural defect.
	Problems []string
}

// Err folds the problems into a single error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid statement: %s", strings.Join(r.Problems, "; "))
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks a statement for structural defects before compilation:
// missing table or columns, mismatched insert arity, placeholder counts that
// disagree with Raw args, and names that are not SQL identifiers.
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateStatement(stmt)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) identifier(kind, name string) {
	if !identifierPattern.MatchString(name) {
		v.addProblem("%s %q is not a valid identifier", kind, name)
	}
}

func (v *validator) validateStatement(stmt Statement) {
	switch s := stmt.(type) {
	case nil:
		v.addProblem("nil statement")
	case Select:
		v.identifier("table", s.Table)
		if len(s.Columns) == 0 {
			v.addProblem("select requires explicit columns")
		}
		for _, c := range s.Columns {
			v.identifier("column", c)
		}
		if s.Limit < 0 {
			v.addProblem("negative limit %d", s.Limit)
		}
		v.validatePredicate(s.Filter)
	case Insert:
		v.identifier("table", s.Table)
		if len(s.Columns) != len(s.Values) {
			v.addProblem("insert has %d columns but %d values", len(s.Columns), len(s.Values))
		}
		for _, c := range s.Columns {
			v.identifier("column", c)
		}
	case Update:
		v.identifier("table", s.Table)
		if len(s.Set) == 0 {
			v.addProblem("update requires at least one assignment")
		}
		for _, a := range s.Set {
			v.identifier("column", a.Column)
		}
		v.validatePredicate(s.Filter)
	case Delete:
		v.identifier("table", s.Table)
		v.validatePredicate(s.Filter)
	case CreateTable:
		v.identifier("table", s.Table)
		if len(s.Columns) == 0 {
			v.addProblem("create table requires columns")
		}
		for _, c := range s.Columns {
			v.identifier("column", c.Name)
			if c.AutoIncrement && !c.PrimaryKey {
				v.addProblem("column %q: autoincrement requires primary key", c.Name)
			}
		}
		for _, name := range s.PrimaryKey {
			v.identifier("primary key column", name)
		}
	default:
		v.addProblem("unsupported statement type %T", stmt)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.identifier("column", pred.Column)
	case Raw:
		if n := CountPlaceholders(pred.SQL); n != len(pred.Args) {
			v.addProblem("selection has %d placeholders but %d args", n, len(pred.Args))
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unsupported predicate type %T", p)
	}
}

// CountPlaceholders counts `?` markers outside quoted strings and identifiers.
func CountPlaceholders(sql string) int {
	n := 0
	var quote rune
	for _, r := range sql {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '?':
			n++
		}
	}
	return n
}
