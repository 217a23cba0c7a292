package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/rowbridge/internal/locator"
)

// URIResult describes a built locator.
type URIResult struct {
	Locator string `json:"locator"`
	Route   string `json:"route"`
}

// NewURICommand creates the uri command.
func NewURICommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uri <model> [row-id]",
		Short: "Build a locator for a model or one of its rows",
		Long: `Print the content locator for a model collection, or for a single row
when a row id is given. Uses --authority and --user.

Examples:
  rowbridge uri res.partner --user alice
  rowbridge uri res.partner 5 --user alice`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runURI(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runURI(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loc := locator.Build(opts.Authority, args[0], opts.User)
	if len(args) == 2 {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || id < 0 {
			return reportError(formatter, NewExitError(ExitCommandError, fmt.Sprintf("invalid row id %q", args[1])))
		}
		loc = loc.WithRowID(id)
	}

	result := URIResult{Locator: loc.String(), Route: locator.Classify(loc).String()}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, result.Locator)
	return nil
}
