package router

import (
	"context"
	"fmt"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/locator"
	"github.com/roach88/rowbridge/internal/notify"
	"github.com/roach88/rowbridge/internal/queryir"
	"github.com/roach88/rowbridge/internal/store"
)

// Query reads rows for loc.
//
// A collection locator applies opts.Selection and opts.SortOrder. A
// single-row locator reads only that row and ignores both. A locator that
// matches neither shape returns an empty result without touching the store.
func (r *RecordRouter) Query(ctx context.Context, loc locator.Locator, opts QueryOptions) (*ir.ResultSet, error) {
	res, err := r.resolve(loc)
	if err != nil {
		return nil, err
	}

	columns := FilterProjection(res.model, opts.Columns)
	if columns == nil {
		columns = res.model.PhysicalColumns()
	}

	q := queryir.Select{Table: res.model.Table, Columns: columns}
	switch res.route {
	case locator.Collection:
		q.Filter = opts.Selection.predicate()
		q.OrderBy = opts.SortOrder
	case locator.SingleRow:
		q.Filter = queryir.RowID(res.rowID)
	case locator.NoMatch:
		return &ir.ResultSet{Columns: columns, Rows: [][]ir.Value{}}, nil
	default:
		return nil, unknownRoute(res)
	}

	sess, release, err := r.open(ctx, loc.User, store.ReadOnly)
	if err != nil {
		return nil, err
	}
	defer release()

	rs, err := sess.Read(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", loc, err)
	}
	return rs, nil
}

// Insert writes one row on a collection locator and returns the new row's
// locator. Many2many values are written to link tables after the row exists.
//
// A single-row locator is rejected before any write. A no-match locator is
// a successful no-op that still publishes a change.
func (r *RecordRouter) Insert(ctx context.Context, loc locator.Locator, values *ir.ValueSet) (InsertResult, error) {
	res, err := r.resolve(loc)
	if err != nil {
		return InsertResult{}, err
	}

	switch res.route {
	case locator.Collection:
	case locator.SingleRow:
		return InsertResult{}, &Error{
			Code:    ErrCodeUnsupportedOperation,
			Message: "insert requires a collection locator",
			Locator: loc.String(),
		}
	case locator.NoMatch:
		r.publish(ctx, notify.OpInsert, loc)
		return InsertResult{}, nil
	default:
		return InsertResult{}, unknownRoute(res)
	}

	part := Split(res.model, values)
	r.logDropped(loc, part)
	part.Plain.Set(ir.WriteDateColumn, r.writeDate())

	sess, release, err := r.open(ctx, loc.User, store.ReadWrite)
	if err != nil {
		return InsertResult{}, err
	}
	defer release()

	stmt := queryir.Insert{Table: res.model.Table}
	for _, name := range part.Plain.Keys() {
		v, _ := part.Plain.Get(name)
		stmt.Columns = append(stmt.Columns, name)
		stmt.Values = append(stmt.Values, v)
	}

	id, err := sess.Insert(ctx, stmt)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert %s: %w", loc, err)
	}

	warnings, err := r.replaceLinks(ctx, sess, id, part.Relation)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert %s: %w", loc, err)
	}

	r.publish(ctx, notify.OpInsert, loc)
	return InsertResult{
		Locator:  loc.Collection().WithRowID(id),
		RowID:    id,
		Warnings: warnings,
	}, nil
}

// Update rewrites plain columns of the matching rows and replaces the
// links of one matching row.
//
// On a collection locator the links go to the lowest _id matching the
// selection, resolved before the plain update runs. On a single-row locator
// the selection is ignored and the links go to that row. The count is the
// number of rows the plain update changed.
func (r *RecordRouter) Update(ctx context.Context, loc locator.Locator, values *ir.ValueSet, sel Selection) (WriteResult, error) {
	res, err := r.resolve(loc)
	if err != nil {
		return WriteResult{}, err
	}

	var filter queryir.Predicate
	switch res.route {
	case locator.Collection:
		filter = sel.predicate()
	case locator.SingleRow:
		filter = queryir.RowID(res.rowID)
	case locator.NoMatch:
		r.publish(ctx, notify.OpUpdate, loc)
		return WriteResult{}, nil
	default:
		return WriteResult{}, unknownRoute(res)
	}

	part := Split(res.model, values)
	r.logDropped(loc, part)
	part.Plain.Set(ir.WriteDateColumn, r.writeDate())

	sess, release, err := r.open(ctx, loc.User, store.ReadWrite)
	if err != nil {
		return WriteResult{}, err
	}
	defer release()

	var (
		owner    int64
		hasOwner bool
	)
	if len(part.Relation) > 0 {
		owner, hasOwner, err = sess.SelectRowID(ctx, res.model.Table, filter)
		if err != nil {
			return WriteResult{}, fmt.Errorf("update %s: %w", loc, err)
		}
	}

	stmt := queryir.Update{Table: res.model.Table, Filter: filter}
	for _, name := range part.Plain.Keys() {
		v, _ := part.Plain.Get(name)
		stmt.Set = append(stmt.Set, queryir.Assignment{Column: name, Value: v})
	}

	count, err := sess.Update(ctx, stmt)
	if err != nil {
		return WriteResult{}, fmt.Errorf("update %s: %w", loc, err)
	}

	result := WriteResult{Count: count}
	if len(part.Relation) > 0 {
		switch {
		case !hasOwner:
			result.Warnings = append(result.Warnings, Warning{
				Code:    WarnRelationRowNotFound,
				Message: "no row matched; relation values skipped",
			})
			r.logger.Warn("relation row not found", "locator", loc.String())
		default:
			if count > 1 {
				result.Warnings = append(result.Warnings, Warning{
					Code:    WarnAmbiguousRelationRow,
					Message: fmt.Sprintf("%d rows matched; links written to _id %d only", count, owner),
				})
				r.logger.Warn("ambiguous relation row", "locator", loc.String(), "matched", count, "owner", owner)
			}
			warnings, err := r.replaceLinks(ctx, sess, owner, part.Relation)
			if err != nil {
				return WriteResult{}, fmt.Errorf("update %s: %w", loc, err)
			}
			result.Warnings = append(result.Warnings, warnings...)
		}
	}

	r.publish(ctx, notify.OpUpdate, loc)
	return result, nil
}

// Delete removes the matching rows and returns how many were removed.
// Link rows are left for the owning schema to clean up.
func (r *RecordRouter) Delete(ctx context.Context, loc locator.Locator, sel Selection) (WriteResult, error) {
	res, err := r.resolve(loc)
	if err != nil {
		return WriteResult{}, err
	}

	var filter queryir.Predicate
	switch res.route {
	case locator.Collection:
		filter = sel.predicate()
	case locator.SingleRow:
		filter = queryir.RowID(res.rowID)
	case locator.NoMatch:
		r.publish(ctx, notify.OpDelete, loc)
		return WriteResult{}, nil
	default:
		return WriteResult{}, unknownRoute(res)
	}

	sess, release, err := r.open(ctx, loc.User, store.ReadWrite)
	if err != nil {
		return WriteResult{}, err
	}
	defer release()

	count, err := sess.Delete(ctx, queryir.Delete{Table: res.model.Table, Filter: filter})
	if err != nil {
		return WriteResult{}, fmt.Errorf("delete %s: %w", loc, err)
	}

	r.publish(ctx, notify.OpDelete, loc)
	return WriteResult{Count: count}, nil
}

func (r *RecordRouter) logDropped(loc locator.Locator, part Partition) {
	if len(part.Dropped) == 0 {
		return
	}
	r.logger.Debug("unknown columns dropped", "locator", loc.String(), "columns", part.Dropped)
}
