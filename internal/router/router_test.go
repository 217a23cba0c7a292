package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/locator"
	"github.com/roach88/rowbridge/internal/notify"
	"github.com/roach88/rowbridge/internal/queryir"
	"github.com/roach88/rowbridge/internal/store"
)

func TestUnknownModelIsInvalidLocator(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)

	unknown := locator.Build(testAuthority, "res.nothing", "alice")
	noUser := locator.Build(testAuthority, "res.partner", "")

	for _, loc := range []locator.Locator{unknown, noUser} {
		_, err := f.router.Query(ctx, loc, QueryOptions{})
		assert.True(t, IsInvalidLocator(err), "query: %v", err)

		_, err = f.router.Insert(ctx, loc, ir.NewValueSet())
		assert.True(t, IsInvalidLocator(err), "insert: %v", err)

		_, err = f.router.Update(ctx, loc, ir.NewValueSet(), Selection{})
		assert.True(t, IsInvalidLocator(err), "update: %v", err)

		_, err = f.router.Delete(ctx, loc, Selection{})
		assert.True(t, IsInvalidLocator(err), "delete: %v", err)

		_, err = f.router.Links(ctx, loc.WithRowID(1), "category_ids")
		assert.True(t, IsInvalidLocator(err), "links: %v", err)
	}

	assert.Empty(t, f.opener.opens)
	assert.Zero(t, f.session.storeCalls())
	assert.Empty(t, f.recorder.Changes())
}

func TestQueryCollection(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)

	_, err := f.router.Query(ctx, partnerLocator(), QueryOptions{
		Columns:   []string{"name", "category_ids", "email"},
		Selection: Selection{Where: "active = ?", Args: []any{true}},
		SortOrder: "name DESC",
	})
	require.NoError(t, err)

	require.Len(t, f.session.reads, 1)
	assert.Equal(t, queryir.Select{
		Table:   "res_partner",
		Columns: []string{"name", "email"},
		Filter:  queryir.Raw{SQL: "active = ?", Args: []any{true}},
		OrderBy: "name DESC",
	}, f.session.reads[0])
	assert.Equal(t, []store.Mode{store.ReadOnly}, f.opener.opens)
	assert.Equal(t, 1, f.session.released)
}

func TestQueryDefaultsToPhysicalColumns(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)

	_, err := f.router.Query(ctx, partnerLocator(), QueryOptions{Columns: []string{"tag_ids"}})
	require.NoError(t, err)

	require.Len(t, f.session.reads, 1)
	assert.Equal(t, []string{"_id", "name", "email", "active", "parent_id", "_write_date"}, f.session.reads[0].Columns)
	assert.Nil(t, f.session.reads[0].Filter)
}

func TestQuerySingleRowIgnoresSelection(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)

	_, err := f.router.Query(ctx, partnerLocator().WithRowID(5), QueryOptions{
		Columns:   []string{"name"},
		Selection: Selection{Where: "_id = ?", Args: []any{999}},
		SortOrder: "name DESC",
	})
	require.NoError(t, err)

	require.Len(t, f.session.reads, 1)
	assert.Equal(t, queryir.RowID(5), f.session.reads[0].Filter)
	assert.Empty(t, f.session.reads[0].OrderBy)
}

func TestInsertCollection(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.session.nextID = 12

	res, err := f.router.Insert(ctx, partnerLocator(), ir.NewValueSet().
		Set("name", ir.Text("A")).
		Set("category_ids", ir.IDs(1, 2)))
	require.NoError(t, err)

	assert.Equal(t, int64(12), res.RowID)
	assert.Equal(t, "res.partner/12", res.Locator.Path)
	assert.Equal(t, partnerLocator().User, res.Locator.User)
	assert.Empty(t, res.Warnings)

	require.Len(t, f.session.inserts, 1)
	assert.Equal(t, queryir.Insert{
		Table:   "res_partner",
		Columns: []string{"name", "_write_date"},
		Values:  []ir.Value{ir.Text("A"), ir.Text(testWriteDate)},
	}, f.session.inserts[0])

	assert.Equal(t, []linkCall{{Table: "res_partner_category_ids_rel", Owner: 12, Targets: []int64{1, 2}}}, f.session.links)
	assert.Equal(t, []store.Mode{store.ReadWrite}, f.opener.opens)
	assert.Equal(t, 1, f.session.released)

	changes := f.recorder.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, notify.OpInsert, changes[0].Op)
	assert.Equal(t, partnerLocator().String(), changes[0].Locator)
	assert.Equal(t, "change-0001", changes[0].ID)
}

func TestInsertSingleRowUnsupported(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)

	_, err := f.router.Insert(ctx, partnerLocator().WithRowID(5), ir.NewValueSet().Set("name", ir.Text("A")))
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))

	assert.Empty(t, f.opener.opens)
	assert.Zero(t, f.session.storeCalls())
	assert.Empty(t, f.recorder.Changes())
}

func TestInsertMalformedRelationValue(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.session.nextID = 3

	res, err := f.router.Insert(ctx, partnerLocator(), ir.NewValueSet().
		Set("name", ir.Text("A")).
		Set("category_ids", ir.Text("not json")).
		Set("tag_ids", ir.IDs(4)))
	require.NoError(t, err)

	require.Len(t, f.session.inserts, 1)
	assert.Contains(t, f.session.inserts[0].Columns, ir.WriteDateColumn)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnMalformedRelationValue, res.Warnings[0].Code)
	assert.Equal(t, "category_ids", res.Warnings[0].Column)

	assert.Equal(t, []linkCall{{Table: "res_partner_tag_ids_rel", Owner: 3, Targets: []int64{4}}}, f.session.links)
	assert.Len(t, f.recorder.Changes(), 1)
}

func TestInsertLinkStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.session.linkErr = errLinkStore

	_, err := f.router.Insert(ctx, partnerLocator(), ir.NewValueSet().Set("category_ids", ir.IDs(1)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errLinkStore))
	assert.Equal(t, 1, f.session.released)
	assert.Empty(t, f.recorder.Changes())
}

func TestUpdateCollectionRelationOnly(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.session.rowID, f.session.rowIDFound = 3, true

	sel := Selection{Where: "_id = ?", Args: []any{3}}
	res, err := f.router.Update(ctx, partnerLocator(), ir.NewValueSet().Set("category_ids", ir.IDs(7)), sel)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Count)
	assert.Empty(t, res.Warnings)

	want := queryir.Raw{SQL: "_id = ?", Args: []any{3}}
	assert.Equal(t, []queryir.Predicate{want}, f.session.rowIDs)

	require.Len(t, f.session.updates, 1)
	assert.Equal(t, queryir.Update{
		Table:  "res_partner",
		Set:    []queryir.Assignment{{Column: ir.WriteDateColumn, Value: ir.Text(testWriteDate)}},
		Filter: want,
	}, f.session.updates[0])

	assert.Equal(t, []linkCall{{Table: "res_partner_category_ids_rel", Owner: 3, Targets: []int64{7}}}, f.session.links)

	changes := f.recorder.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, notify.OpUpdate, changes[0].Op)
}

func TestUpdateSingleRowIgnoresSelection(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.session.rowID, f.session.rowIDFound = 5, true

	_, err := f.router.Update(ctx, partnerLocator().WithRowID(5),
		ir.NewValueSet().Set("name", ir.Text("B")).Set("tag_ids", ir.IDs(1)),
		Selection{Where: "_id = ?", Args: []any{999}})
	require.NoError(t, err)

	assert.Equal(t, []queryir.Predicate{queryir.RowID(5)}, f.session.rowIDs)
	require.Len(t, f.session.updates, 1)
	assert.Equal(t, queryir.RowID(5), f.session.updates[0].Filter)
	assert.Equal(t, []queryir.Assignment{
		{Column: "name", Value: ir.Text("B")},
		{Column: ir.WriteDateColumn, Value: ir.Text(testWriteDate)},
	}, f.session.updates[0].Set)
	assert.Equal(t, []linkCall{{Table: "res_partner_tag_ids_rel", Owner: 5, Targets: []int64{1}}}, f.session.links)
}

func TestUpdateWithoutRelationsSkipsRowLookup(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.session.affected = 4

	res, err := f.router.Update(ctx, partnerLocator(), ir.NewValueSet().Set("active", ir.Boolean(false)), Selection{})
	require.NoError(t, err)

	assert.Equal(t, int64(4), res.Count)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, f.session.rowIDs)
	assert.Empty(t, f.session.links)
	require.Len(t, f.session.updates, 1)
	assert.Nil(t, f.session.updates[0].Filter)
}

func TestUpdateRelationRowNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.session.affected = 0

	res, err := f.router.Update(ctx, partnerLocator(), ir.NewValueSet().Set("category_ids", ir.IDs(7)),
		Selection{Where: "name = ?", Args: []any{"nobody"}})
	require.NoError(t, err)

	assert.Zero(t, res.Count)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnRelationRowNotFound, res.Warnings[0].Code)
	assert.Empty(t, f.session.links)
	assert.Len(t, f.recorder.Changes(), 1)
}

func TestUpdateAmbiguousRelationRow(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.session.rowID, f.session.rowIDFound = 2, true
	f.session.affected = 3

	res, err := f.router.Update(ctx, partnerLocator(), ir.NewValueSet().Set("category_ids", ir.IDs(7, 8)), Selection{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.Count)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnAmbiguousRelationRow, res.Warnings[0].Code)
	assert.Equal(t, []linkCall{{Table: "res_partner_category_ids_rel", Owner: 2, Targets: []int64{7, 8}}}, f.session.links)
}

func TestDeleteSingleRowIgnoresSelection(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)

	res, err := f.router.Delete(ctx, partnerLocator().WithRowID(5), Selection{Where: "_id = ?", Args: []any{999}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)

	assert.Equal(t, []queryir.Delete{{Table: "res_partner", Filter: queryir.RowID(5)}}, f.session.deletes)
	assert.Empty(t, f.session.links)

	changes := f.recorder.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, notify.OpDelete, changes[0].Op)
	assert.Equal(t, partnerLocator().WithRowID(5).String(), changes[0].Locator)
}

func TestDeleteCollection(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.session.affected = 2

	res, err := f.router.Delete(ctx, partnerLocator(), Selection{Where: "active = ?", Args: []any{false}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Count)
	assert.Equal(t, []queryir.Delete{{Table: "res_partner", Filter: queryir.Raw{SQL: "active = ?", Args: []any{false}}}}, f.session.deletes)
}

func TestNoMatchPerformsNoStoreCalls(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	loc := noMatchLocator()
	values := ir.NewValueSet().Set("name", ir.Text("A")).Set("category_ids", ir.IDs(1))

	rs, err := f.router.Query(ctx, loc, QueryOptions{Columns: []string{"name"}})
	require.NoError(t, err)
	assert.Zero(t, rs.Len())
	assert.Equal(t, []string{"name"}, rs.Columns)

	ins, err := f.router.Insert(ctx, loc, values)
	require.NoError(t, err)
	assert.Equal(t, InsertResult{}, ins)

	upd, err := f.router.Update(ctx, loc, values, Selection{})
	require.NoError(t, err)
	assert.Equal(t, WriteResult{}, upd)

	del, err := f.router.Delete(ctx, loc, Selection{})
	require.NoError(t, err)
	assert.Equal(t, WriteResult{}, del)

	assert.Empty(t, f.opener.opens)
	assert.Zero(t, f.session.storeCalls())

	// Writes on a no-match route still notify
	var ops []notify.Op
	for _, c := range f.recorder.Changes() {
		ops = append(ops, c.Op)
		assert.Equal(t, loc.String(), c.Locator)
	}
	assert.Equal(t, []notify.Op{notify.OpInsert, notify.OpUpdate, notify.OpDelete}, ops)
}

func TestOpenFailurePropagates(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.opener.err = errors.New("disk full")

	_, err := f.router.Delete(ctx, partnerLocator(), Selection{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, IsInvalidLocator(err))
	assert.Empty(t, f.recorder.Changes())
}

func TestUnknownRouteUnsupported(t *testing.T) {
	f := newFakeRouter(t)
	res := resolution{loc: partnerLocator(), route: locator.RouteKind(42)}

	err := unknownRoute(res)
	assert.True(t, IsUnsupported(err))
	assert.Contains(t, err.Error(), "route(42)")
	assert.Empty(t, f.opener.opens)
}

func TestLinks(t *testing.T) {
	ctx := context.Background()
	f := newFakeRouter(t)
	f.session.storedLinks = map[string][]int64{"res_partner_category_ids_rel": {4, 2}}

	ids, err := f.router.Links(ctx, partnerLocator().WithRowID(1), "category_ids")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2}, ids)
	assert.Equal(t, []store.Mode{store.ReadOnly}, f.opener.opens)

	_, err = f.router.Links(ctx, partnerLocator(), "category_ids")
	assert.True(t, IsUnsupported(err))

	_, err = f.router.Links(ctx, partnerLocator().WithRowID(1), "name")
	assert.True(t, IsUnsupported(err))
}

func TestType(t *testing.T) {
	f := newFakeRouter(t)
	loc := partnerLocator().WithRowID(7)
	assert.Equal(t, loc.String(), f.router.Type(loc))
}

func TestRouterWithoutNotifier(t *testing.T) {
	ctx := context.Background()
	sess := &fakeSession{nextID: 1}
	r := New(newStaticModels(testPartnerModel()), &fakeOpener{session: sess})

	_, err := r.Insert(ctx, partnerLocator(), ir.NewValueSet().Set("name", ir.Text("A")))
	require.NoError(t, err)
	assert.Len(t, sess.inserts, 1)
}
