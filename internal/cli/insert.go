package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ftsq"
)

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	*RootOptions
	Upsert bool
	Stdin  bool
}

// InsertResult is the JSON payload of insert.
type InsertResult struct {
	IDs []int64 `json:"ids"`
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "insert [field=value ...]",
		Short: "Insert documents",
		Long: `Insert one document given as field=value arguments, or many documents
read from stdin as a stream of JSON objects. All documents of one call are
written in a single transaction.

Example:
  ftsq insert --db movies.db title=Alien year=1979 plot="A crew meets a creature"
  cat movies.jsonl | ftsq insert --db movies.db --stdin --upsert`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Upsert, "upsert", false, "update the document with the same unique field value")
	cmd.Flags().BoolVar(&opts.Stdin, "stdin", false, "read JSON documents from stdin")

	return cmd
}

func runInsert(opts *InsertOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	if opts.Stdin == (len(args) > 0) {
		return formatter.Fail(NewExitError(ExitCommandError, "give either field=value arguments or --stdin"))
	}

	idx, err := opts.openIndex(ctx, true, nil)
	if err != nil {
		return formatter.Fail(err)
	}
	defer idx.Close()

	var docs []ftsq.Lookups
	if opts.Stdin {
		docs, err = decodeDocuments(cmd.InOrStdin())
	} else {
		var doc ftsq.Lookups
		doc, err = parseLookups(idx.Schema(), args)
		docs = []ftsq.Lookups{doc}
	}
	if err != nil {
		return formatter.Fail(err)
	}

	var result InsertResult
	err = idx.Write(ctx, func(w *ftsq.Writer) error {
		for _, doc := range docs {
			write := w.Insert
			if opts.Upsert {
				write = w.InsertOrUpdate
			}
			id, err := write(ctx, doc)
			if err != nil {
				return err
			}
			result.IDs = append(result.IDs, id)
		}
		return nil
	})
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, id := range result.IDs {
		fmt.Fprintln(formatter.Writer, id)
	}
	return nil
}

func decodeDocuments(r io.Reader) ([]ftsq.Lookups, error) {
	dec := json.NewDecoder(r)
	var docs []ftsq.Lookups
	for {
		var doc ftsq.Lookups
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid JSON document #%d", len(docs)+1), err)
		}
		docs = append(docs, doc)
	}
}
