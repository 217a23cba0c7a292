package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/locator"
	"github.com/roach88/rowbridge/internal/notify"
	"github.com/roach88/rowbridge/internal/queryir"
	"github.com/roach88/rowbridge/internal/store"
	"github.com/roach88/rowbridge/internal/testutil"
)

const testAuthority = "com.example.provider"

func testPartnerModel() ir.ModelDefinition {
	return ir.ModelDefinition{
		Name:  "res.partner",
		Table: "res_partner",
		Columns: []ir.ColumnDefinition{
			{Name: "name", Type: ir.TypeString},
			{Name: "email", Type: ir.TypeString},
			{Name: "active", Type: ir.TypeBool},
			{Name: "parent_id", Type: ir.TypeMany2One, Relation: ir.RelationManyToOne, Ref: "res.partner"},
			{Name: "category_ids", Type: ir.TypeMany2Many, Relation: ir.RelationManyToMany, Ref: "res.partner.category", LinkTable: "res_partner_category_ids_rel"},
			{Name: "tag_ids", Type: ir.TypeMany2Many, Relation: ir.RelationManyToMany, Ref: "res.partner.tag", LinkTable: "res_partner_tag_ids_rel"},
		},
	}
}

func testCategoryModel() ir.ModelDefinition {
	return ir.ModelDefinition{
		Name:    "res.partner.category",
		Table:   "res_partner_category",
		Columns: []ir.ColumnDefinition{{Name: "name", Type: ir.TypeString}},
	}
}

// staticModels is a ModelRegistry over fixed definitions. Every non-empty
// user sees every model.
type staticModels map[string]ir.ModelDefinition

func newStaticModels(defs ...ir.ModelDefinition) staticModels {
	m := make(staticModels, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return m
}

func (m staticModels) Lookup(model, user string) (*ir.ModelDefinition, bool) {
	def, ok := m[model]
	if !ok || user == "" {
		return nil, false
	}
	return def.ForOwner(user), true
}

type linkCall struct {
	Table   string
	Owner   int64
	Targets []int64
}

// fakeSession records every store call.
type fakeSession struct {
	mu sync.Mutex

	reads    []queryir.Select
	inserts  []queryir.Insert
	updates  []queryir.Update
	deletes  []queryir.Delete
	rowIDs   []queryir.Predicate
	links    []linkCall
	released int

	readResult  *ir.ResultSet
	nextID      int64
	affected    int64
	rowID       int64
	rowIDFound  bool
	linkErr     error
	storedLinks map[string][]int64
}

func (s *fakeSession) Read(_ context.Context, q queryir.Select) (*ir.ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, q)
	if s.readResult != nil {
		return s.readResult, nil
	}
	return &ir.ResultSet{Columns: q.Columns, Rows: [][]ir.Value{}}, nil
}

func (s *fakeSession) Insert(_ context.Context, stmt queryir.Insert) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts = append(s.inserts, stmt)
	return s.nextID, nil
}

func (s *fakeSession) Update(_ context.Context, stmt queryir.Update) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, stmt)
	return s.affected, nil
}

func (s *fakeSession) Delete(_ context.Context, stmt queryir.Delete) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, stmt)
	return s.affected, nil
}

func (s *fakeSession) SelectRowID(_ context.Context, _ string, filter queryir.Predicate) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowIDs = append(s.rowIDs, filter)
	return s.rowID, s.rowIDFound, nil
}

func (s *fakeSession) ReplaceLinks(_ context.Context, table string, owner int64, targets []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linkErr != nil {
		return s.linkErr
	}
	s.links = append(s.links, linkCall{Table: table, Owner: owner, Targets: targets})
	return nil
}

func (s *fakeSession) Links(_ context.Context, table string, _ int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ids, ok := s.storedLinks[table]; ok {
		return ids, nil
	}
	return []int64{}, nil
}

func (s *fakeSession) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

// storeCalls counts every row and link store call.
func (s *fakeSession) storeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reads) + len(s.inserts) + len(s.updates) + len(s.deletes) + len(s.rowIDs) + len(s.links)
}

// fakeOpener hands out one shared fakeSession.
type fakeOpener struct {
	session *fakeSession
	opens   []store.Mode
	err     error
}

func (o *fakeOpener) Open(_ context.Context, _ string, mode store.Mode) (Session, error) {
	o.opens = append(o.opens, mode)
	if o.err != nil {
		return nil, o.err
	}
	return o.session, nil
}

var errLinkStore = errors.New("link store unavailable")

// fakeRouter wires a router to a fake session, a recorder and a frozen clock.
type fakeRouter struct {
	router   *RecordRouter
	opener   *fakeOpener
	session  *fakeSession
	recorder *notify.Recorder
}

func newFakeRouter(t *testing.T) *fakeRouter {
	t.Helper()
	sess := &fakeSession{nextID: 1, affected: 1}
	opener := &fakeOpener{session: sess}
	rec := &notify.Recorder{}
	bus := notify.NewBus(
		notify.WithIDGenerator(testutil.NewSequenceGenerator("")),
		notify.WithClock(testutil.NewDeterministicClock(time.Time{}, time.Second).Now),
	)
	bus.Subscribe(rec)

	clock := testutil.NewDeterministicClock(time.Time{}, 0)
	r := New(newStaticModels(testPartnerModel(), testCategoryModel()), opener,
		WithNotifier(bus),
		WithClock(clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return &fakeRouter{router: r, opener: opener, session: sess, recorder: rec}
}

func partnerLocator() locator.Locator {
	return locator.Build(testAuthority, "res.partner", "alice")
}

// noMatchLocator addresses the partner model with a path that is neither
// the collection nor a row.
func noMatchLocator() locator.Locator {
	loc := partnerLocator()
	loc.Path = "res.partner/abc"
	return loc
}

// testWriteDate is the frozen clock's _write_date.
const testWriteDate = "2026-01-01 00:00:00"
