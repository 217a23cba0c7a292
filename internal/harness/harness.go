package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/locator"
	"github.com/roach88/rowbridge/internal/notify"
	"github.com/roach88/rowbridge/internal/registry"
	"github.com/roach88/rowbridge/internal/router"
	"github.com/roach88/rowbridge/internal/store"
	"github.com/roach88/rowbridge/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs one scenario against fresh databases with a deterministic clock
// and change ids.
type Harness struct {
	scenario *Scenario
	router   *router.RecordRouter
	recorder *notify.Recorder
	changes  int
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary database directory that is
// removed afterwards. Failed expectations and assertions are reported in
// the result; the returned error is reserved for scenarios that cannot run
// at all (bad models, bad values, unusable database).
//
// Execution flow:
// 1. Load and validate the model files
// 2. Create the model tables for every user the scenario names
// 3. Execute steps, checking expect clauses
// 4. Evaluate assertions against the final state
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	reg, err := registry.Load(scenario.Models)
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}

	dir, err := os.MkdirTemp("", "rowbridge-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pool := store.NewPool(dir)
	defer pool.Close()

	for _, user := range scenario.users() {
		if err := pool.EnsureSchema(ctx, user, reg.Definitions()); err != nil {
			return nil, fmt.Errorf("failed to create schema for %s: %w", user, err)
		}
	}

	recorder := &notify.Recorder{}
	bus := notify.NewBus(
		notify.WithIDGenerator(testutil.NewSequenceGenerator("")),
		notify.WithClock(testutil.NewDeterministicClock(testutil.DefaultStart, 0).Now),
	)
	bus.Subscribe(recorder)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	clock := testutil.NewDeterministicClock(testutil.DefaultStart, testutil.DefaultStep)

	h := &Harness{
		scenario: scenario,
		router: router.New(reg, router.PoolOpener(pool),
			router.WithNotifier(bus),
			router.WithClock(clock.Now),
			router.WithLogger(logger),
		),
		recorder: recorder,
		logger:   logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	for _, errMsg := range h.EvaluateAssertions(ctx, result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// users returns every user the scenario touches, sorted.
func (s *Scenario) users() []string {
	seen := map[string]bool{s.User: true}
	for _, step := range s.Steps {
		if step.User != "" {
			seen[step.User] = true
		}
	}
	for _, a := range s.Assertions {
		if a.User != "" {
			seen[a.User] = true
		}
	}

	users := make([]string, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// locator builds the collection locator for model, as seen by user or the
// scenario user.
func (h *Harness) locator(model, user string) locator.Locator {
	if user == "" {
		user = h.scenario.User
	}
	return locator.Build(h.scenario.Authority, model, user)
}

func (h *Harness) stepLocator(step Step) locator.Locator {
	loc := h.locator(step.Model, step.User)
	switch {
	case step.Row != nil:
		loc = loc.WithRowID(*step.Row)
	case step.Path != "":
		loc.Path = step.Path
	}
	return loc
}

// outcome is what a step produced, for expect checks.
type outcome struct {
	err      error
	rowID    int64
	count    int64
	rows     *ir.ResultSet
	warnings []router.Warning
}

// executeStep runs one router call, records it and its change events in
// the trace, and checks the step's expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	loc := h.stepLocator(step)
	sel := router.Selection{Where: step.Where, Args: step.Args}

	event := TraceEvent{
		Type:      EventCall,
		Op:        step.Op,
		Locator:   loc.String(),
		Values:    step.Values,
		Columns:   step.Columns,
		Selection: step.Where,
		Args:      step.Args,
		Sort:      step.Sort,
	}

	var out outcome
	switch step.Op {
	case OpQuery:
		out.rows, out.err = h.router.Query(ctx, loc, router.QueryOptions{
			Columns:   step.Columns,
			Selection: sel,
			SortOrder: step.Sort,
		})
		if out.err == nil {
			event.Result = out.rows.Records()
		}
	case OpInsert:
		values, err := ir.ValueSetFromMap(step.Values)
		if err != nil {
			return fmt.Errorf("values: %w", err)
		}
		var res router.InsertResult
		res, out.err = h.router.Insert(ctx, loc, values)
		out.rowID, out.warnings = res.RowID, res.Warnings
		if out.err == nil {
			event.Result = map[string]any{"row_id": res.RowID}
		}
	case OpUpdate:
		values, err := ir.ValueSetFromMap(step.Values)
		if err != nil {
			return fmt.Errorf("values: %w", err)
		}
		var res router.WriteResult
		res, out.err = h.router.Update(ctx, loc, values, sel)
		out.count, out.warnings = res.Count, res.Warnings
		if out.err == nil {
			event.Result = map[string]any{"count": res.Count}
		}
	case OpDelete:
		var res router.WriteResult
		res, out.err = h.router.Delete(ctx, loc, sel)
		out.count = res.Count
		if out.err == nil {
			event.Result = map[string]any{"count": res.Count}
		}
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	for _, w := range out.warnings {
		event.Warnings = append(event.Warnings, warningLabel(w))
	}
	if out.err != nil {
		event.Error = errorCode(out.err)
	}
	result.addEvent(event)
	h.drainChanges(result)

	for _, msg := range checkExpect(step.Expect, out) {
		result.AddError(fmt.Sprintf("steps[%d] %s %s: %s", i, step.Op, step.Model, msg))
	}

	h.logger.Info("step completed",
		"step", i,
		"op", step.Op,
		"locator", event.Locator,
		"error", event.Error,
	)
	return nil
}

// drainChanges moves recorded change events into the trace.
func (h *Harness) drainChanges(result *Result) {
	for _, c := range h.recorder.Changes() {
		result.addEvent(TraceEvent{
			Type:     EventChange,
			Op:       string(c.Op),
			Locator:  c.Locator,
			ChangeID: c.ID,
		})
		h.changes++
	}
	h.recorder.Reset()
}

// checkExpect compares an outcome with an expect clause and returns one
// message per mismatch.
func checkExpect(expect *Expect, out outcome) []string {
	var msgs []string

	if expect == nil || expect.Error == "" {
		if out.err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", out.err)}
		}
	} else {
		if out.err == nil {
			return []string{fmt.Sprintf("expected error %s, got success", expect.Error)}
		}
		if code := errorCode(out.err); code != expect.Error {
			msgs = append(msgs, fmt.Sprintf("expected error %s, got %s", expect.Error, code))
		}
		return msgs
	}

	if expect == nil {
		return nil
	}

	if expect.RowID != nil && *expect.RowID != out.rowID {
		msgs = append(msgs, fmt.Sprintf("expected row_id %d, got %d", *expect.RowID, out.rowID))
	}
	if expect.Count != nil && *expect.Count != out.count {
		msgs = append(msgs, fmt.Sprintf("expected count %d, got %d", *expect.Count, out.count))
	}

	if expect.Rows != nil {
		if out.rows.Len() != len(expect.Rows) {
			msgs = append(msgs, fmt.Sprintf("expected %d rows, got %d", len(expect.Rows), out.rows.Len()))
		} else {
			records := out.rows.Records()
			for i, want := range expect.Rows {
				if msg := matchRecord(records[i], want); msg != "" {
					msgs = append(msgs, fmt.Sprintf("rows[%d]: %s", i, msg))
				}
			}
		}
	}

	if expect.Warnings != nil {
		got := make([]string, len(out.warnings))
		for i, w := range out.warnings {
			got[i] = string(w.Code)
		}
		if !slices.Equal(got, expect.Warnings) {
			msgs = append(msgs, fmt.Sprintf("expected warnings %v, got %v", expect.Warnings, got))
		}
	}

	return msgs
}

// errorCode returns the router error code of err, or its message.
func errorCode(err error) string {
	var re *router.Error
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return err.Error()
}

func warningLabel(w router.Warning) string {
	if w.Column == "" {
		return string(w.Code)
	}
	return string(w.Code) + " " + w.Column
}
