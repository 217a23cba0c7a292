// Package router dispatches content-provider style CRUD calls to per-user
// model tables.
//
// A RecordRouter resolves each locator to a model definition and a route
// (collection, single row, or no match), filters projections, splits
// incoming values into row-table columns and many2many link values, and
// runs the resulting statements through a scoped store session.
//
// The router keeps no per-request state: the resolved model is a local
// value threaded through each call, so one RecordRouter serves concurrent
// callers.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/locator"
	"github.com/roach88/rowbridge/internal/notify"
	"github.com/roach88/rowbridge/internal/queryir"
	"github.com/roach88/rowbridge/internal/store"
)

// ModelRegistry looks up model definitions by name and owning user.
type ModelRegistry interface {
	Lookup(model, user string) (*ir.ModelDefinition, bool)
}

// RowStore runs row-table statements.
type RowStore interface {
	Read(ctx context.Context, q queryir.Select) (*ir.ResultSet, error)
	Insert(ctx context.Context, stmt queryir.Insert) (int64, error)
	Update(ctx context.Context, stmt queryir.Update) (int64, error)
	Delete(ctx context.Context, stmt queryir.Delete) (int64, error)
	SelectRowID(ctx context.Context, table string, filter queryir.Predicate) (int64, bool, error)
}

// LinkStore replaces and reads many2many links.
type LinkStore interface {
	ReplaceLinks(ctx context.Context, linkTable string, owner int64, targets []int64) error
	Links(ctx context.Context, linkTable string, owner int64) ([]int64, error)
}

// Session is one scoped store handle. Release must be safe to call on
// every exit path.
type Session interface {
	RowStore
	LinkStore
	Release() error
}

// SessionOpener acquires sessions on a user's database.
type SessionOpener interface {
	Open(ctx context.Context, user string, mode store.Mode) (Session, error)
}

// Notifier receives a change event after every write.
type Notifier interface {
	Publish(ctx context.Context, op notify.Op, locator string) notify.Change
}

// PoolOpener adapts a store.Pool to SessionOpener.
func PoolOpener(p *store.Pool) SessionOpener {
	return poolOpener{pool: p}
}

type poolOpener struct {
	pool *store.Pool
}

func (o poolOpener) Open(ctx context.Context, user string, mode store.Mode) (Session, error) {
	sess, err := o.pool.Acquire(ctx, user, mode)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Selection is caller WHERE text with positional `?` args.
// An empty Where matches every row.
type Selection struct {
	Where string
	Args  []any
}

func (s Selection) predicate() queryir.Predicate {
	return queryir.Selection(s.Where, s.Args)
}

// QueryOptions are the optional parts of a query.
type QueryOptions struct {
	// Columns is the requested projection; nil means every physical column.
	Columns []string
	// Selection filters collection queries. Ignored for single-row locators.
	Selection Selection
	// SortOrder is an ORDER BY clause body, e.g. "name DESC".
	// Ignored for single-row locators.
	SortOrder string
}

// InsertResult is the outcome of an insert. On a no-match route it is
// the zero value.
type InsertResult struct {
	Locator  locator.Locator `json:"locator"`
	RowID    int64           `json:"row_id"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// WriteResult is the outcome of an update or delete.
type WriteResult struct {
	Count    int64     `json:"count"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// RecordRouter dispatches CRUD calls. It is safe for concurrent use.
type RecordRouter struct {
	models   ModelRegistry
	sessions SessionOpener
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a RecordRouter.
type Option func(*RecordRouter)

// WithNotifier sets the change notifier. Without one, changes are not published.
func WithNotifier(n Notifier) Option {
	return func(r *RecordRouter) { r.notifier = n }
}

// WithClock sets the source of _write_date stamps. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *RecordRouter) { r.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *RecordRouter) { r.logger = l }
}

// New creates a router over a model registry and a session source.
func New(models ModelRegistry, sessions SessionOpener, opts ...Option) *RecordRouter {
	r := &RecordRouter{
		models:   models,
		sessions: sessions,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// resolution is the per-call result of locator resolution.
type resolution struct {
	loc   locator.Locator
	model *ir.ModelDefinition
	route locator.RouteKind
	rowID int64
}

// resolve looks up the locator's model and classifies its route.
// It performs no store I/O.
func (r *RecordRouter) resolve(loc locator.Locator) (resolution, error) {
	model, ok := r.models.Lookup(loc.Model, loc.User)
	if !ok {
		return resolution{}, &Error{
			Code:    ErrCodeInvalidLocator,
			Message: fmt.Sprintf("no model %q for user %q", loc.Model, loc.User),
			Locator: loc.String(),
		}
	}

	res := resolution{loc: loc, model: model, route: locator.Classify(loc)}
	if res.route == locator.SingleRow {
		res.rowID, _ = loc.RowID()
	}
	return res, nil
}

func unknownRoute(res resolution) error {
	return &Error{
		Code:    ErrCodeUnsupportedOperation,
		Message: fmt.Sprintf("unknown route %s", res.route),
		Locator: res.loc.String(),
	}
}

// Type returns the locator's string form.
func (r *RecordRouter) Type(loc locator.Locator) string {
	return loc.String()
}

// open acquires a session and returns its release function.
func (r *RecordRouter) open(ctx context.Context, user string, mode store.Mode) (Session, func(), error) {
	sess, err := r.sessions.Open(ctx, user, mode)
	if err != nil {
		return nil, nil, fmt.Errorf("open session: %w", err)
	}
	release := func() {
		if err := sess.Release(); err != nil {
			r.logger.Warn("session release failed", "user", user, "error", err)
		}
	}
	return sess, release, nil
}

func (r *RecordRouter) publish(ctx context.Context, op notify.Op, loc locator.Locator) {
	if r.notifier == nil {
		return
	}
	change := r.notifier.Publish(ctx, op, loc.String())
	r.logger.Debug("change published", "id", change.ID, "op", op, "locator", change.Locator)
}

func (r *RecordRouter) writeDate() ir.Value {
	return ir.Text(ir.FormatWriteDate(r.now()))
}
