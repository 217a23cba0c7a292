package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowbridge/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	Filter string // scenario filter (glob pattern on the file name)
	Trace  bool   // print the trace of each scenario
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{}

	cmd := &cobra.Command{
		Use:   "scenario <path>",
		Short: "Run scenario files against a scratch database",
		Long: `Run one scenario file, or every .yaml/.yml file under a directory.

Each scenario gets a fresh temporary database, a frozen clock and
deterministic change ids, so runs are repeatable.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  rowbridge scenario ./testdata/scenarios
  rowbridge scenario ./testdata/scenarios --filter "partner_*"
  rowbridge scenario ./testdata/scenarios/partner_links.yaml --trace`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print the trace of each scenario")

	return cmd
}

func runScenarios(rootOpts *RootOptions, opts *ScenarioOptions, path string, cmd *cobra.Command) error {
	formatter := rootOpts.formatter(cmd)

	files, err := harness.FindScenarios(path)
	if err != nil {
		return reportError(formatter, WrapExitError(ExitCommandError, "failed to find scenarios", err))
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return reportError(formatter, err)
	}

	if len(files) == 0 {
		if formatter.Format == "json" {
			return formatter.Success(harness.SuiteResult{})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	if opts.Trace && formatter.Format != "json" {
		for _, file := range files {
			printTrace(formatter, file)
		}
	}

	suite := harness.RunFiles(files)

	if formatter.Format == "json" {
		if err := formatter.Success(suite); err != nil {
			return err
		}
	} else {
		outputSuiteText(formatter, files, suite)
	}

	if suite.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
	}
	return nil
}

// filterScenarios keeps the files whose base name without extension matches pattern.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var out []string
	for _, file := range files {
		base := filepath.Base(file)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
		if matched {
			out = append(out, file)
		}
	}
	return out, nil
}

// printTrace runs a scenario and writes its trace. Load and run failures are
// left for the suite summary.
func printTrace(f *OutputFormatter, file string) {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return
	}
	result, err := harness.Run(scenario)
	if err != nil {
		return
	}
	data, err := harness.MarshalTrace(scenario.Name, result.Trace)
	if err != nil {
		return
	}
	f.Writer.Write(data)
}

func outputSuiteText(f *OutputFormatter, files []string, suite *harness.SuiteResult) {
	failed := make(map[string]harness.ScenarioFailure, len(suite.Failures))
	for _, fail := range suite.Failures {
		failed[fail.Path] = fail
	}

	for _, file := range files {
		fail, ok := failed[file]
		if !ok {
			fmt.Fprintf(f.Writer, "✓ %s\n", filepath.Base(file))
			continue
		}
		fmt.Fprintf(f.Writer, "✗ %s\n", filepath.Base(file))
		for _, e := range fail.Errors {
			fmt.Fprintf(f.Writer, "  %s\n", e)
		}
	}

	fmt.Fprintf(f.Writer, "\n%d passed, %d failed, %d total\n", suite.Passed, suite.Failed, suite.Total)
}
