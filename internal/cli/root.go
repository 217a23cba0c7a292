package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rowbridge/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	DBDir     string
	Models    string
	Authority string
	User      string

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rowbridge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "rowbridge",
		Version: ir.Version,
		Short: "rowbridge - locator-addressed records over per-user SQLite",
		Long: `Route content locators to CRUD on per-user SQLite model tables.

Models are declared in CUE. many2many columns are stored in link tables
and written after the owning row.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBDir, "db-dir", GetEnv(EnvDBDir, DefaultDBDir), "directory holding one database per user (env "+EnvDBDir+")")
	cmd.PersistentFlags().StringVar(&opts.Models, "models", GetEnv(EnvModels, DefaultModels), "directory of CUE model files (env "+EnvModels+")")
	cmd.PersistentFlags().StringVar(&opts.Authority, "authority", GetEnv(EnvAuthority, DefaultAuthority), "locator authority (env "+EnvAuthority+")")
	cmd.PersistentFlags().StringVar(&opts.User, "user", GetEnv(EnvUser, ""), "user whose database is addressed (env "+EnvUser+")")

	// Add subcommands
	cmd.AddCommand(NewURICommand(opts))
	cmd.AddCommand(NewModelsCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Logger returns the logger configured by the root command, or the default
// logger when the command runs without the root's pre-run hook.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
