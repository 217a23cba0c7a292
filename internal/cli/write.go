package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rowbridge/internal/router"
)

// WriteOptions holds flags shared by insert, update and delete.
type WriteOptions struct {
	Values string
	Where  string
	Args   []string
}

// WriteOutput is the JSON payload of a write command.
type WriteOutput struct {
	Op       string   `json:"op"`
	Locator  string   `json:"locator"`
	RowID    *int64   `json:"row_id,omitempty"`
	Count    *int64   `json:"count,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{}

	cmd := &cobra.Command{
		Use:   "insert <target>",
		Short: "Insert a row into a model collection",
		Long: `Insert one row. Many2many columns take a JSON list of row ids and
are written to the model's link tables.

Example:
  rowbridge insert res.partner --user alice --values '{"name":"A","tag_ids":[1,2]}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(cmd.Context(), rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Values, "values", "", "Column values as a JSON object (required)")
	_ = cmd.MarkFlagRequired("values")

	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{}

	cmd := &cobra.Command{
		Use:   "update <target>",
		Short: "Update rows of a model",
		Long: `Update a single row, or every row of a collection matching --where.
Many2many values replace the links of the updated row.

Example:
  rowbridge update res.partner/5 --user alice --values '{"tag_ids":[3]}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Values, "values", "", "Column values as a JSON object (required)")
	cmd.Flags().StringVar(&opts.Where, "where", "", "Selection clause with ? placeholders")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "Selection argument (repeatable)")
	_ = cmd.MarkFlagRequired("values")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{}

	cmd := &cobra.Command{
		Use:   "delete <target>",
		Short: "Delete rows of a model",
		Long: `Delete a single row, or every row of a collection matching --where.
Without --where every row of the collection is deleted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Where, "where", "", "Selection clause with ? placeholders")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "Selection argument (repeatable)")

	return cmd
}

func runInsert(ctx context.Context, rootOpts *RootOptions, opts *WriteOptions, target string, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	loc, err := resolveTarget(rootOpts, target)
	if err != nil {
		return reportError(formatter, err)
	}
	values, err := parseValues(opts.Values)
	if err != nil {
		return reportError(formatter, err)
	}

	rt, err := openRuntime(rootOpts)
	if err != nil {
		return reportError(formatter, err)
	}
	defer rt.Close()

	res, err := rt.router.Insert(ctx, loc, values)
	if err != nil {
		return reportError(formatter, routerExitError("insert", err))
	}

	out := WriteOutput{Op: "insert", Locator: loc.String(), Warnings: warningStrings(res.Warnings)}
	if id, ok := res.Locator.RowID(); ok {
		out.Locator = res.Locator.String()
		out.RowID = &id
	}
	return writeOutput(formatter, out)
}

func runUpdate(ctx context.Context, rootOpts *RootOptions, opts *WriteOptions, target string, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	loc, err := resolveTarget(rootOpts, target)
	if err != nil {
		return reportError(formatter, err)
	}
	values, err := parseValues(opts.Values)
	if err != nil {
		return reportError(formatter, err)
	}
	args, err := parseArgs(opts.Args)
	if err != nil {
		return reportError(formatter, err)
	}

	rt, err := openRuntime(rootOpts)
	if err != nil {
		return reportError(formatter, err)
	}
	defer rt.Close()

	res, err := rt.router.Update(ctx, loc, values, router.Selection{Where: opts.Where, Args: args})
	if err != nil {
		return reportError(formatter, routerExitError("update", err))
	}

	count := res.Count
	return writeOutput(formatter, WriteOutput{Op: "update", Locator: loc.String(), Count: &count, Warnings: warningStrings(res.Warnings)})
}

func runDelete(ctx context.Context, rootOpts *RootOptions, opts *WriteOptions, target string, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	loc, err := resolveTarget(rootOpts, target)
	if err != nil {
		return reportError(formatter, err)
	}
	args, err := parseArgs(opts.Args)
	if err != nil {
		return reportError(formatter, err)
	}

	rt, err := openRuntime(rootOpts)
	if err != nil {
		return reportError(formatter, err)
	}
	defer rt.Close()

	res, err := rt.router.Delete(ctx, loc, router.Selection{Where: opts.Where, Args: args})
	if err != nil {
		return reportError(formatter, routerExitError("delete", err))
	}

	count := res.Count
	return writeOutput(formatter, WriteOutput{Op: "delete", Locator: loc.String(), Count: &count})
}

func warningStrings(warnings []router.Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.String()
	}
	return out
}

func writeOutput(f *OutputFormatter, out WriteOutput) error {
	for _, w := range out.Warnings {
		f.VerboseLog("warning: %s", w)
	}
	if f.Format == "json" {
		return f.Success(out)
	}

	switch {
	case out.RowID != nil:
		fmt.Fprintf(f.Writer, "✓ inserted %s\n", out.Locator)
	case out.Count != nil:
		fmt.Fprintf(f.Writer, "✓ %s: %d row(s)\n", out.Op, *out.Count)
	default:
		fmt.Fprintf(f.Writer, "✓ %s: no rows\n", out.Op)
	}
	for _, w := range out.Warnings {
		fmt.Fprintf(f.Writer, "  warning: %s\n", w)
	}
	return nil
}
