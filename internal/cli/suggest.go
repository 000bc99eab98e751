package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ftsq"
)

// SuggestOptions holds flags for the suggest command.
type SuggestOptions struct {
	*RootOptions
	Correct bool
	Limit   int
	Build   bool
}

// CorrectResult is the JSON payload of suggest --correct.
type CorrectResult struct {
	Text      string `json:"text"`
	Corrected string `json:"corrected"`
}

// NewSuggestCommand creates the suggest command.
func NewSuggestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SuggestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "suggest <text>",
		Short: "Suggest spellings for unknown words",
		Long: `List candidate spellings for the words of text that the index does not
know. The candidate table is built from the index vocabulary with --build
(or automatically the first time).

Example:
  ftsq suggest --db movies.db "alein spcae"
  ftsq suggest --db movies.db --correct "alein spcae"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Correct, "correct", false, "print the text with every unknown word replaced")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 3, "candidates per word")
	cmd.Flags().BoolVar(&opts.Build, "build", false, "rebuild the candidate table first")

	return cmd
}

func runSuggest(opts *SuggestOptions, text string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	idx, err := opts.openIndex(ctx, true, nil)
	if err != nil {
		return formatter.Fail(err)
	}
	defer idx.Close()

	checker := idx.Spell()
	built, err := checker.Built(ctx)
	if err != nil {
		return formatter.Fail(err)
	}
	if opts.Build || !built {
		formatter.VerboseLog("building candidate table for %s", idx.Name())
		if err := checker.Build(ctx); err != nil {
			return formatter.Fail(err)
		}
	}

	if opts.Correct {
		corrected, err := checker.Correct(ctx, text)
		if err != nil {
			return formatter.Fail(err)
		}
		if formatter.Format == "json" {
			return formatter.Success(CorrectResult{Text: text, Corrected: corrected})
		}
		fmt.Fprintln(formatter.Writer, corrected)
		return nil
	}

	suggestions, err := checker.Suggest(ctx, text, opts.Limit)
	if err != nil {
		return formatter.Fail(err)
	}
	if formatter.Format == "json" {
		if suggestions == nil {
			suggestions = []ftsq.Suggestion{}
		}
		return formatter.Success(suggestions)
	}
	if len(suggestions) == 0 {
		fmt.Fprintln(formatter.Writer, "No suggestions")
		return nil
	}
	for _, s := range suggestions {
		terms := make([]string, len(s.Candidates))
		for i, c := range s.Candidates {
			terms[i] = c.Term
		}
		fmt.Fprintf(formatter.Writer, "%s: %s\n", s.Original, strings.Join(terms, ", "))
	}
	return nil
}
