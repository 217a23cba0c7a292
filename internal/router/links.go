package router

import (
	"context"
	"fmt"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/locator"
	"github.com/roach88/rowbridge/internal/store"
)

// replaceLinks writes each relation value as the complete link set of owner.
//
// A value that does not decode to a list of ids produces a warning and its
// column is skipped; the remaining columns are still written. Store errors
// are returned as-is.
func (r *RecordRouter) replaceLinks(ctx context.Context, links LinkStore, owner int64, values []RelationValue) ([]Warning, error) {
	var warnings []Warning
	for _, rv := range values {
		ids, err := decodeRelation(rv)
		if err != nil {
			w := Warning{Code: WarnMalformedRelationValue, Column: rv.Column, Message: err.Error()}
			warnings = append(warnings, w)
			r.logger.Warn("malformed relation value", "column", rv.Column, "owner", owner, "error", err)
			continue
		}

		if err := links.ReplaceLinks(ctx, rv.LinkTable, owner, ids); err != nil {
			return warnings, fmt.Errorf("links %s: %w", rv.Column, err)
		}
		r.logger.Debug("links replaced", "column", rv.Column, "owner", owner, "count", len(ids))
	}
	return warnings, nil
}

func decodeRelation(rv RelationValue) ([]int64, error) {
	if rv.Err != nil {
		return nil, rv.Err
	}
	return ir.DecodeIDs(rv.Value)
}

// Links returns the ordered target ids of column for the row loc addresses.
// loc must be a single-row locator and column a many2many column.
func (r *RecordRouter) Links(ctx context.Context, loc locator.Locator, column string) ([]int64, error) {
	res, err := r.resolve(loc)
	if err != nil {
		return nil, err
	}
	if res.route != locator.SingleRow {
		return nil, &Error{
			Code:    ErrCodeUnsupportedOperation,
			Message: "links require a single-row locator",
			Locator: loc.String(),
		}
	}

	col, ok := res.model.Column(column)
	if !ok || col.Relation != ir.RelationManyToMany {
		return nil, &Error{
			Code:    ErrCodeUnsupportedOperation,
			Message: fmt.Sprintf("%q is not a many2many column of %s", column, res.model.Name),
			Locator: loc.String(),
		}
	}

	sess, release, err := r.open(ctx, loc.User, store.ReadOnly)
	if err != nil {
		return nil, err
	}
	defer release()

	ids, err := sess.Links(ctx, col.LinkTable, res.rowID)
	if err != nil {
		return nil, fmt.Errorf("links %s: %w", loc, err)
	}
	return ids, nil
}
