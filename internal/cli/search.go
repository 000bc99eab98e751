package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ftsq"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Values        []string
	Order         []string
	Slice         string
	Highlight     string
	Snippet       string
	SnippetTokens int
	MarkStart     string
	MarkEnd       string
	Count         bool
}

// CountResult is the JSON payload of search --count.
type CountResult struct {
	Count int64 `json:"count"`
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search [field[__lookup]=value ...]",
		Short: "Search the index",
		Long: `Search the index. Every argument is a lookup; all of them must hold.
Without arguments every document is returned, best rank first.

Lookups:
  text=fox                    full-text match of the words
  text__allow_prefix=fo*      prefix match
  text__allow_boolean="a OR b"
  year__gte=2000              comparison on an attribute
  released__year=2016         date part

Example:
  ftsq search --db movies.db plot=space year__gte=2000 --order -year --values title,year`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Values, "values", nil, "fields to return (default all)")
	cmd.Flags().StringSliceVar(&opts.Order, "order", nil, "sort keys, '-' prefix for descending (default rank)")
	cmd.Flags().StringVar(&opts.Slice, "slice", "", "result window start:stop (default 0:10)")
	cmd.Flags().StringVar(&opts.Highlight, "highlight", "", "full-text field to highlight")
	cmd.Flags().StringVar(&opts.Snippet, "snippet", "", "full-text field to shorten to a snippet")
	cmd.Flags().IntVar(&opts.SnippetTokens, "snippet-tokens", 16, "tokens per snippet")
	cmd.Flags().StringVar(&opts.MarkStart, "mark-start", "*", "marker before a matched term")
	cmd.Flags().StringVar(&opts.MarkEnd, "mark-end", "*", "marker after a matched term")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the number of matches only")

	return cmd
}

func runSearch(opts *SearchOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	idx, err := opts.openIndex(ctx, false, nil)
	if err != nil {
		return formatter.Fail(err)
	}
	defer idx.Close()

	kw, err := parseLookups(idx.Schema(), args)
	if err != nil {
		return formatter.Fail(err)
	}

	var q *ftsq.Query
	if len(kw) == 0 {
		q = idx.Search()
	} else {
		q = idx.Search(kw)
	}
	q = opts.decorate(q)

	if opts.Count {
		n, err := q.Count(ctx)
		if err != nil {
			return formatter.Fail(err)
		}
		if formatter.Format == "json" {
			return formatter.Success(CountResult{Count: n})
		}
		fmt.Fprintln(formatter.Writer, n)
		return nil
	}

	if sql, params, err := q.SQL(); err == nil {
		formatter.VerboseLog("sql: %s %v", sql, params)
	}
	docs, err := q.All(ctx)
	if err != nil {
		return formatter.Fail(err)
	}
	return formatter.Documents(docs)
}

// decorate applies the presentation flags shared by search and
// autocomplete.
func (o *SearchOptions) decorate(q *ftsq.Query) *ftsq.Query {
	if len(o.Values) > 0 {
		q = q.Values(o.Values...)
	}
	if len(o.Order) > 0 {
		q = q.OrderBy(o.Order...)
	}
	if o.Highlight != "" {
		q = q.Highlight(o.Highlight, o.MarkStart, o.MarkEnd)
	}
	if o.Snippet != "" {
		q = q.Snippet(o.Snippet, o.MarkStart, o.MarkEnd, "...", o.SnippetTokens)
	}
	if o.Slice != "" {
		q = q.ParseSlice(o.Slice)
	}
	return q
}

// NewAutocompleteCommand creates the autocomplete command.
func NewAutocompleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "autocomplete <field> <text>",
		Short: "Complete typed text",
		Long: `Find documents whose field contains the typed words, the last one
treated as a prefix. Documents starting with the text rank first.

Example:
  ftsq autocomplete --db movies.db title "ali"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutocomplete(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Values, "values", nil, "fields to return (default all)")
	cmd.Flags().StringVar(&opts.Slice, "slice", "", "result window start:stop (default 0:10)")
	cmd.Flags().StringVar(&opts.Highlight, "highlight", "", "full-text field to highlight")
	cmd.Flags().StringVar(&opts.MarkStart, "mark-start", "*", "marker before a matched term")
	cmd.Flags().StringVar(&opts.MarkEnd, "mark-end", "*", "marker after a matched term")

	return cmd
}

func runAutocomplete(opts *SearchOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	idx, err := opts.openIndex(ctx, false, nil)
	if err != nil {
		return formatter.Fail(err)
	}
	defer idx.Close()

	docs, err := opts.decorate(idx.Autocomplete(ftsq.Lookups{args[0]: args[1]})).All(ctx)
	if err != nil {
		return formatter.Fail(err)
	}
	return formatter.Documents(docs)
}
