package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowbridge/internal/ir"
	"github.com/roach88/rowbridge/internal/registry"
)

// ModelsResult holds the loaded models, or the errors that stopped them.
type ModelsResult struct {
	Valid  bool                 `json:"valid"`
	Files  int                  `json:"files"`
	Models []ir.ModelDefinition `json:"models,omitempty"`
	Errors []ModelError         `json:"errors,omitempty"`

	// Fingerprints maps model name to the hash of its table layout.
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

// ModelError is one load or validation error.
type ModelError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

func newModelError(err error) ModelError {
	var loadErr *registry.LoadError
	if !errors.As(err, &loadErr) {
		return ModelError{Code: registry.ErrCodeGeneric, Message: err.Error()}
	}
	me := ModelError{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		me.Line = loadErr.Pos.Line()
	}
	return me
}

// NewModelsCommand creates the models command.
func NewModelsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Validate and list model definitions",
		Long: `Load every CUE model file in --models, validate the definitions, and
list each model with its table and columns.

All errors are collected rather than stopping at the first one.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(rootOpts, cmd)
		},
	}

	return cmd
}

func runModels(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := registry.LoadModels(opts.Models, registry.LoadModeCollectAll)

	// Directory not found, no files, etc.
	if loadResult == nil && len(loadErrors) > 0 {
		return reportError(formatter, WrapExitError(ExitCommandError, "failed to load models", loadErrors[0]))
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, opts.Models)

	result := ModelsResult{Valid: len(loadErrors) == 0, Files: loadResult.FileCount, Models: loadResult.Models}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, newModelError(err))
	}

	if !result.Valid {
		return outputModelErrors(formatter, result)
	}

	result.Fingerprints = make(map[string]string, len(result.Models))
	for _, def := range result.Models {
		hash, err := ir.ModelHash(def)
		if err != nil {
			return reportError(formatter, WrapExitError(ExitFailure, "failed to fingerprint "+def.Name, err))
		}
		result.Fingerprints[def.Name] = hash
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, def := range result.Models {
		fmt.Fprintf(formatter.Writer, "%s (table %s) %s\n", def.Name, def.Table, result.Fingerprints[def.Name][:12])
		for _, col := range def.Columns {
			line := fmt.Sprintf("  %-16s %s", col.Name, col.Type)
			if col.Ref != "" {
				line += " -> " + col.Ref
			}
			if col.LinkTable != "" {
				line += " via " + col.LinkTable
			}
			if col.Required {
				line += " required"
			}
			fmt.Fprintln(formatter.Writer, strings.TrimRight(line, " "))
		}
	}
	return nil
}

// outputModelErrors outputs every load and validation error.
func outputModelErrors(formatter *OutputFormatter, result ModelsResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.Errors[0].Code,
				Message: result.Errors[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range result.Errors {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}
	return failure
}
