package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rowbridge/internal/store"
)

// InitResult describes an initialized database.
type InitResult struct {
	User          string   `json:"user"`
	Path          string   `json:"path"`
	Tables        []string `json:"tables"`
	SchemaVersion int      `json:"schema_version"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create model tables in a user's database",
		Long: `Create the row table and link tables of every model in --user's
database under --db-dir. Existing tables are left untouched, so init
can be re-run after adding models.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), rootOpts, cmd)
		},
	}

	return cmd
}

func runInit(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.User == "" {
		return reportError(formatter, NewExitError(ExitCommandError, "--user (or "+EnvUser+") is required"))
	}

	rt, err := openRuntime(opts)
	if err != nil {
		return reportError(formatter, err)
	}
	defer rt.Close()

	defs := rt.registry.Definitions()
	if err := rt.pool.EnsureSchema(ctx, opts.User, defs); err != nil {
		return reportError(formatter, WrapExitError(ExitFailure, "failed to create schema", err))
	}

	st, err := rt.pool.Store(opts.User)
	if err != nil {
		return reportError(formatter, WrapExitError(ExitFailure, "failed to open database", err))
	}
	version, err := st.SchemaVersion(ctx)
	if err != nil {
		return reportError(formatter, WrapExitError(ExitFailure, "failed to read schema version", err))
	}

	result := InitResult{User: opts.User, Path: st.Path(), SchemaVersion: version}
	for _, def := range defs {
		for _, stmt := range store.TableStatements(def) {
			result.Tables = append(result.Tables, stmt.Table)
		}
	}

	formatter.VerboseLog("Initialized %d table(s) in %s", len(result.Tables), result.Path)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s: %d table(s), schema version %d\n", result.Path, len(result.Tables), result.SchemaVersion)
	return nil
}
