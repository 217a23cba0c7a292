package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/locator"
	"github.com/roach88/rowbridge/internal/router"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	Columns []string
	Where   string
	Args    []string
	Sort    string
	Links   bool
}

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	Locator string         `json:"locator"`
	Columns []string       `json:"columns"`
	Rows    []*ir.ValueSet `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <target>",
		Short: "Read rows through the router",
		Long: `Query a model collection or a single row.

The target is a full locator, or "<model>" / "<model>/<row-id>" built
with --authority and --user. Selection and sort are ignored for a
single row.

Examples:
  rowbridge query res.partner --user alice --where "active = ?" --arg 1
  rowbridge query res.partner/5 --user alice --links
  rowbridge query "content://com.example.provider/res.partner?key_model=res.partner&key_username=alice" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "Columns to return (default: all stored columns)")
	cmd.Flags().StringVar(&opts.Where, "where", "", "Selection clause with ? placeholders")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "Selection argument (repeatable)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Sort order, e.g. \"name DESC\"")
	cmd.Flags().BoolVar(&opts.Links, "links", false, "Include many2many link targets for each row")

	return cmd
}

func runQuery(ctx context.Context, rootOpts *RootOptions, opts *QueryOptions, target string, cmd *cobra.Command) error {
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

	rs, err := rt.router.Query(ctx, loc, router.QueryOptions{
		Columns:   opts.Columns,
		Selection: router.Selection{Where: opts.Where, Args: args},
		SortOrder: opts.Sort,
	})
	if err != nil {
		return reportError(formatter, routerExitError("query", err))
	}

	result := QueryResult{Locator: loc.String(), Columns: rs.Columns, Rows: rs.Records()}
	if opts.Links {
		if err := attachLinks(ctx, rt, loc, &result); err != nil {
			return reportError(formatter, err)
		}
	}

	formatter.VerboseLog("Query returned %d row(s)", len(result.Rows))

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return writeTable(formatter, result)
}

// attachLinks adds every many2many column of the model to each row.
func attachLinks(ctx context.Context, rt *runtime, loc locator.Locator, result *QueryResult) error {
	model, ok := rt.registry.Lookup(loc.Model, loc.User)
	if !ok {
		return nil
	}
	linkCols := model.LinkColumns()
	if len(linkCols) == 0 || len(result.Rows) == 0 {
		return nil
	}

	if !slices.Contains(result.Columns, ir.RowIDColumn) {
		return NewExitError(ExitCommandError, "--links needs the "+ir.RowIDColumn+" column")
	}

	for _, row := range result.Rows {
		v, _ := row.Get(ir.RowIDColumn)
		id, ok := v.(ir.Integer)
		if !ok {
			continue
		}
		rowLoc := loc.Collection().WithRowID(int64(id))
		for _, col := range linkCols {
			ids, err := rt.router.Links(ctx, rowLoc, col.Name)
			if err != nil {
				return routerExitError("links", err)
			}
			row.Set(col.Name, ir.IDs(ids...))
		}
	}
	for _, col := range linkCols {
		result.Columns = append(result.Columns, col.Name)
	}
	return nil
}

// writeTable renders rows as aligned text columns.
func writeTable(f *OutputFormatter, result QueryResult) error {
	if len(result.Rows) == 0 {
		fmt.Fprintln(f.Writer, "(no rows)")
		return nil
	}

	w := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			v, _ := row.Get(col)
			cells[i] = formatCell(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func formatCell(v ir.Value) string {
	switch val := v.(type) {
	case nil, ir.Null:
		return "NULL"
	case ir.Text:
		return string(val)
	case ir.List:
		b, err := json.Marshal(ir.Native(val))
		if err != nil {
			return fmt.Sprint(ir.Native(val))
		}
		return string(b)
	default:
		return fmt.Sprint(ir.Native(val))
	}
}
