package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ftsq"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Extensions []string
	Workers    int
}

// BuildResult is the JSON payload of build.
type BuildResult struct {
	Index     string        `json:"index"`
	Root      string        `json:"root"`
	Documents int           `json:"documents"`
	Duration  time.Duration `json:"duration_ns"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <dir>",
		Short: "Index the files of a directory",
		Long: `Index every file below dir as a {filename, text} document. Files already
indexed are updated in place, so build can be run again after edits.

Example:
  ftsq build ./notes --db notes.db --index notes --ext md,txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Extensions, "ext", nil, "file extensions to read (default all)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent file reads (default GOMAXPROCS)")

	return cmd
}

func runBuild(opts *BuildOptions, root string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	fallback, err := ftsq.FileSystemSchema(opts.Settings.Index)
	if err != nil {
		return formatter.Fail(err)
	}
	idx, err := opts.openIndex(ctx, true, fallback)
	if err != nil {
		return formatter.Fail(err)
	}
	defer idx.Close()

	fs := &ftsq.FileSystem{
		Root:       root,
		Extensions: opts.Extensions,
		Workers:    opts.Workers,
		Logger:     opts.Logger,
	}

	start := time.Now()
	n, err := idx.Build(ctx, fs)
	if err != nil {
		return formatter.Fail(err)
	}
	result := BuildResult{Index: idx.Name(), Root: root, Documents: n, Duration: time.Since(start)}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Indexed %d files into %s (%s)\n", n, result.Index, result.Duration.Round(time.Millisecond))
	return nil
}
