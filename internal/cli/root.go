package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/ftsq"
	"github.com/roach88/ftsq/internal/arbiter"
	"github.com/roach88/ftsq/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Settings is resolved from flags, FTSQ_* variables and ftsq.yaml
	// before any subcommand runs.
	Settings config.Settings
	Logger   *slog.Logger

	viper *viper.Viper
	arb   *arbiter.Arbiter
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ftsq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{viper: viper.New()}

	cmd := &cobra.Command{
		Use:   "ftsq",
		Short: "ftsq - typed full-text search over SQLite",
		Long: `Create, fill and query SQLite FTS5 indexes.

Settings come from flags, FTSQ_* environment variables (FTSQ_DB,
FTSQ_WRITER_TIMEOUT, ...) and an optional ftsq.yaml, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, config.KeyVerbose, "v", false, "verbose output")
	flags.StringVar(&opts.Format, config.KeyFormat, "text", "output format (json|text)")
	flags.String(config.KeyDB, "ftsq.db", "path to the SQLite database")
	flags.String(config.KeyIndex, ftsq.DefaultIndexName, "index name")
	flags.String(config.KeyDefinition, "", "index definition file (.yaml, .json or .cue)")
	flags.Duration(config.KeyWriterTimeout, arbiter.DefaultTimeout, "how long a write waits for the index")
	flags.Int(config.KeyCapacity, arbiter.DefaultCapacity, "maximum number of indexes written by this process")
	flags.String(config.KeyConfig, "", "config file (default ./ftsq.yaml)")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewAutocompleteCommand(opts))
	cmd.AddCommand(NewSuggestCommand(opts))
	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewOptimizeCommand(opts))

	return cmd
}

// resolve loads the settings and configures logging.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if err := config.Bind(o.viper, cmd.Flags()); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	s, err := config.Load(o.viper)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if !isValidFormat(s.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", s.Format, ValidFormats))
	}
	o.Settings = s
	o.Format = s.Format
	o.Verbose = s.Verbose
	o.Logger = newLogger(cmd.ErrOrStderr(), s.Verbose)
	o.arb = arbiter.New(
		arbiter.WithCapacity(s.Capacity),
		arbiter.WithTimeout(s.WriterTimeout),
		arbiter.WithLogger(o.Logger),
	)
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// openIndex opens the configured index. The schema comes from --def when
// given, otherwise from the database registry, otherwise fallback.
func (o *RootOptions) openIndex(ctx context.Context, writeable bool, fallback *ftsq.Schema) (*ftsq.Index, error) {
	s := o.Settings
	if !writeable {
		if _, err := os.Stat(s.DB); err != nil {
			return nil, WrapExitError(ExitCommandError, "database not found", err)
		}
	}

	sch, err := o.schema(ctx, fallback)
	if err != nil {
		return nil, err
	}

	opts := []ftsq.Option{
		ftsq.WithArbiter(o.arb),
		ftsq.WithWriterTimeout(s.WriterTimeout),
		ftsq.WithLogger(o.Logger),
	}
	if writeable {
		opts = append(opts, ftsq.WithWriteable())
	}
	return ftsq.Open(ctx, s.DB, sch, opts...)
}

func (o *RootOptions) schema(ctx context.Context, fallback *ftsq.Schema) (*ftsq.Schema, error) {
	s := o.Settings
	if s.Definition != "" {
		def, err := config.LoadDefinition(s.Definition)
		if err != nil {
			return nil, err
		}
		return def.Schema()
	}
	if _, err := os.Stat(s.DB); err == nil {
		sch, ok, err := ftsq.RegisteredSchema(ctx, s.DB, s.Index, ftsq.WithLogger(o.Logger))
		if err != nil {
			return nil, err
		}
		if ok {
			return sch, nil
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return ftsq.DefaultSchema(s.Index), nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
