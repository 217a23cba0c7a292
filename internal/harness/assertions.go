package harness

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/router"
)

// validIdentifier matches column names usable in a where map.
// Only allows alphanumeric and underscore, must start with letter or underscore.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.Type == EventCall {
				fmt.Fprintf(&buf, "  [%d] %s %s %v\n", event.Seq, event.Op, event.Locator, event.Values)
			}
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the final state.
// Returns a slice of error messages for failed assertions.
func (h *Harness) EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRow:
			err = h.assertRow(ctx, assertion, result.Trace)
		case AssertRowCount:
			err = h.assertRowCount(ctx, assertion, result.Trace)
		case AssertLinks:
			err = h.assertLinks(ctx, assertion, result.Trace)
		case AssertChanges:
			err = h.assertChanges(assertion, result.Trace)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

// queryWhere reads every physical column of the rows matching where.
func (h *Harness) queryWhere(ctx context.Context, a Assertion) (*ir.ResultSet, error) {
	sel, err := buildSelection(a.Where)
	if err != nil {
		return nil, err
	}
	return h.router.Query(ctx, h.locator(a.Model, a.User), router.QueryOptions{Selection: sel})
}

// assertRow checks that exactly one row matches and that it holds the
// expected values (subset semantics).
func (h *Harness) assertRow(ctx context.Context, a Assertion, trace []TraceEvent) error {
	rs, err := h.queryWhere(ctx, a)
	if err != nil {
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("query %s", a.Model),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	whereDesc := formatWhereClause(a.Where)
	switch rs.Len() {
	case 0:
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("row in %s where %s", a.Model, whereDesc),
			Actual:   "row not found",
			Trace:    trace,
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("exactly one row in %s where %s", a.Model, whereDesc),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", rs.Len()),
			Trace:    trace,
		}
	}

	if msg := matchRecord(rs.Records()[0], a.Expect); msg != "" {
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("row in %s where %s to match %v", a.Model, whereDesc, a.Expect),
			Actual:   msg,
			Trace:    trace,
		}
	}
	return nil
}

func (h *Harness) assertRowCount(ctx context.Context, a Assertion, trace []TraceEvent) error {
	rs, err := h.queryWhere(ctx, a)
	if err != nil {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("query %s", a.Model),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if rs.Len() != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows in %s where %s", a.Count, a.Model, formatWhereClause(a.Where)),
			Actual:   fmt.Sprintf("%d rows", rs.Len()),
			Trace:    trace,
		}
	}
	return nil
}

func (h *Harness) assertLinks(ctx context.Context, a Assertion, trace []TraceEvent) error {
	loc := h.locator(a.Model, a.User).WithRowID(a.Row)
	ids, err := h.router.Links(ctx, loc, a.Column)
	if err != nil {
		return &AssertionError{
			Type:     AssertLinks,
			Expected: fmt.Sprintf("links of %s/%d %s", a.Model, a.Row, a.Column),
			Actual:   fmt.Sprintf("links error: %v", err),
		}
	}

	want := a.IDs
	if want == nil {
		want = []int64{}
	}
	if !slices.Equal(ids, want) {
		return &AssertionError{
			Type:     AssertLinks,
			Expected: fmt.Sprintf("%s/%d %s = %v", a.Model, a.Row, a.Column, want),
			Actual:   fmt.Sprintf("%v", ids),
			Trace:    trace,
		}
	}
	return nil
}

func (h *Harness) assertChanges(a Assertion, trace []TraceEvent) error {
	if h.changes != a.Count {
		return &AssertionError{
			Type:     AssertChanges,
			Expected: fmt.Sprintf("%d change events", a.Count),
			Actual:   fmt.Sprintf("%d change events", h.changes),
			Trace:    trace,
		}
	}
	return nil
}

// buildSelection constructs a parameterized selection from a where map.
// Keys are sorted for determinism; a nil value matches NULL.
func buildSelection(where map[string]any) (router.Selection, error) {
	if len(where) == 0 {
		return router.Selection{}, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, key := range keys {
		// Identifiers can't be parameterized
		if !validIdentifier.MatchString(key) {
			return router.Selection{}, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}

		v, err := ir.FromAny(where[key])
		if err != nil {
			return router.Selection{}, fmt.Errorf("where %q: %w", key, err)
		}
		if _, isNull := v.(ir.Null); isNull {
			clauses = append(clauses, fmt.Sprintf("%q IS NULL", key))
			continue
		}
		param, err := ir.ToParam(v)
		if err != nil {
			return router.Selection{}, fmt.Errorf("where %q: %w", key, err)
		}
		clauses = append(clauses, fmt.Sprintf("%q = ?", key))
		args = append(args, param)
	}

	return router.Selection{Where: strings.Join(clauses, " AND "), Args: args}, nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// matchRecord checks that record holds every expected value (subset match).
// Returns an empty string on success, otherwise a description of the first
// mismatch in sorted key order.
func matchRecord(record *ir.ValueSet, expect map[string]any) string {
	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		actual, ok := record.Get(key)
		if !ok {
			return fmt.Sprintf("field %q not present in columns %v", key, record.Keys())
		}
		want, err := ir.FromAny(expect[key])
		if err != nil {
			return fmt.Sprintf("field %q: %v", key, err)
		}
		if !ir.Equal(want, actual) {
			return fmt.Sprintf("field %q = %v, want %v", key, ir.Native(actual), expect[key])
		}
	}
	return ""
}
