package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// InitResult is the JSON payload of init.
type InitResult struct {
	Index     string    `json:"index"`
	Managed   bool      `json:"managed"`
	CreatedAt time.Time `json:"created_at"`
	Fields    []string  `json:"fields"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an index",
		Long: `Create the index described by --def (or the default {text} index named
by --index). An existing table of the same name is wrapped rather than
replaced. Running init again is harmless.

Example:
  ftsq init --db movies.db --def movies.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	idx, err := opts.openIndex(cmd.Context(), true, nil)
	if err != nil {
		return formatter.Fail(err)
	}
	defer idx.Close()

	stats, err := idx.Stats(cmd.Context())
	if err != nil {
		return formatter.Fail(err)
	}
	result := InitResult{
		Index:     idx.Name(),
		Managed:   idx.Managed(),
		CreatedAt: stats.CreatedAt,
	}
	for _, f := range idx.Schema().UserFields() {
		result.Fields = append(result.Fields, f.Name)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	mode := "managed"
	if !result.Managed {
		mode = "wrapped"
	}
	fmt.Fprintf(formatter.Writer, "✓ Index %s ready (%s, %d fields)\n", result.Index, mode, len(result.Fields))
	return nil
}
