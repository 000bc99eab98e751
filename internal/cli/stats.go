package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// StatsResult is the JSON payload of stats.
type StatsResult struct {
	Index     string    `json:"index"`
	Path      string    `json:"path"`
	Managed   bool      `json:"managed"`
	CreatedAt time.Time `json:"created_at"`
	Documents int64     `json:"documents"`
	Terms     int64     `json:"terms"`
	SizeBytes int64     `json:"size_bytes"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Describe an index",
		Long: `Print the document and term counts of an index and the size of its
database file.

Example:
  ftsq stats --db movies.db --index movie`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	idx, err := opts.openIndex(cmd.Context(), false, nil)
	if err != nil {
		return formatter.Fail(err)
	}
	defer idx.Close()

	stats, err := idx.Stats(cmd.Context())
	if err != nil {
		return formatter.Fail(err)
	}
	result := StatsResult{
		Index:     stats.Name,
		Path:      stats.Path,
		Managed:   stats.Managed,
		CreatedAt: stats.CreatedAt,
		Documents: stats.Documents,
		Terms:     stats.Terms,
	}
	if fi, err := os.Stat(stats.Path); err == nil {
		result.SizeBytes = fi.Size()
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "Index:     %s\n", result.Index)
	fmt.Fprintf(w, "Database:  %s (%s)\n", result.Path, humanize.Bytes(uint64(result.SizeBytes)))
	fmt.Fprintf(w, "Managed:   %t\n", result.Managed)
	if !result.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:   %s\n", humanize.Time(result.CreatedAt))
	}
	fmt.Fprintf(w, "Documents: %s\n", humanize.Comma(result.Documents))
	fmt.Fprintf(w, "Terms:     %s\n", humanize.Comma(result.Terms))
	return nil
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Merge the full-text index segments",
		Long: `Merge the b-tree segments of the full-text index. Worth running after a
large build; searches are correct either way. With --rebuild the full-text
index is first recreated from the document table.

Example:
  ftsq optimize --db movies.db --index movie`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(rootOpts, rebuild, cmd)
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "recreate the full-text index first")
	return cmd
}

func runOptimize(opts *RootOptions, rebuild bool, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(opts.Settings.DB); err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "database not found", err))
	}
	idx, err := opts.openIndex(cmd.Context(), true, nil)
	if err != nil {
		return formatter.Fail(err)
	}
	defer idx.Close()

	start := time.Now()
	if rebuild {
		formatter.VerboseLog("rebuilding %s", idx.Name())
		if err := idx.Rebuild(cmd.Context()); err != nil {
			return formatter.Fail(err)
		}
	}
	if err := idx.Optimize(cmd.Context()); err != nil {
		return formatter.Fail(err)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"index": idx.Name(), "status": "optimized"})
	}
	fmt.Fprintf(formatter.Writer, "✓ Optimized %s in %s\n", idx.Name(), time.Since(start).Round(time.Millisecond))
	return nil
}
