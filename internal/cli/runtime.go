package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/locator"
	"github.com/roach88/rowbridge/internal/notify"
	"github.com/roach88/rowbridge/internal/registry"
	"github.com/roach88/rowbridge/internal/router"
	"github.com/roach88/rowbridge/internal/store"
)

// runtime is the model registry, database pool and router one command uses.
type runtime struct {
	registry *registry.Registry
	pool     *store.Pool
	router   *router.RecordRouter
}

// openRuntime loads the models and opens the database pool.
// The caller must close the runtime.
func openRuntime(opts *RootOptions) (*runtime, error) {
	reg, err := registry.Load(opts.Models)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load models", err)
	}

	logger := opts.Logger()
	bus := notify.NewBus()
	bus.Subscribe(notify.ObserverFunc(func(ctx context.Context, change notify.Change) {
		logger.DebugContext(ctx, "change", "id", change.ID, "op", change.Op, "locator", change.Locator)
	}))

	pool := store.NewPool(opts.DBDir)
	return &runtime{
		registry: reg,
		pool:     pool,
		router: router.New(reg, router.PoolOpener(pool),
			router.WithNotifier(bus),
			router.WithLogger(logger)),
	}, nil
}

func (r *runtime) Close() error {
	return r.pool.Close()
}

// resolveTarget turns a command argument into a locator.
//
// A full locator ("content://...") is parsed as-is. Otherwise the argument
// is "<model>" or "<model>/<row>" and is built with the global authority
// and user.
func resolveTarget(opts *RootOptions, target string) (locator.Locator, error) {
	if strings.Contains(target, "://") {
		loc, err := locator.Parse(target)
		if err != nil {
			return locator.Locator{}, WrapExitError(ExitCommandError, "invalid locator", err)
		}
		return loc, nil
	}

	if opts.User == "" {
		return locator.Locator{}, NewExitError(ExitCommandError, "--user (or "+EnvUser+") is required")
	}

	model, rest, hasRest := strings.Cut(target, "/")
	if model == "" {
		return locator.Locator{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid target %q", target))
	}
	loc := locator.Build(opts.Authority, model, opts.User)
	if hasRest {
		loc.Path = model + "/" + rest
	}
	return loc, nil
}

// parseArgs converts --arg values into SQL parameters. Each value is read
// as a JSON scalar when it parses as one, else as a plain string.
func parseArgs(raw []string) ([]any, error) {
	args := make([]any, 0, len(raw))
	for i, s := range raw {
		v, err := ir.UnmarshalValue([]byte(s))
		if err != nil {
			v = ir.Text(s)
		}
		param, err := ir.ToParam(v)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --arg %d", i+1), err)
		}
		args = append(args, param)
	}
	return args, nil
}

// parseValues decodes a JSON object of column values, keeping key order.
func parseValues(raw string) (*ir.ValueSet, error) {
	values := ir.NewValueSet()
	if raw == "" {
		return values, nil
	}
	if err := values.UnmarshalJSON([]byte(raw)); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --values", err)
	}
	return values, nil
}

// routerExitError maps router failures to exit codes.
func routerExitError(op string, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	code := ExitFailure
	if router.IsInvalidLocator(err) || router.IsUnsupported(err) {
		code = ExitCommandError
	}
	return WrapExitError(code, op+" failed", err)
}

// errorCode returns the code reported in JSON error output.
func errorCode(err error) string {
	var re *router.Error
	if errors.As(err, &re) {
		return string(re.Code)
	}
	var le *registry.LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return registry.ErrCodeGeneric
}

// reportError writes err through the formatter and returns it as an
// ExitError so main only sets the exit code.
func reportError(f *OutputFormatter, err error) error {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = WrapExitError(ExitFailure, "command failed", err)
	}
	_ = f.Error(errorCode(err), err.Error(), nil)
	return exitErr
}
