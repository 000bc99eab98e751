package ftsq

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ftsq/internal/arbiter"
	"github.com/roach88/ftsq/internal/schema"
)

// exampleTexts are the documents of the package examples.
var exampleTexts = []string{
	"The fox jumped over the fence. Now he is beyond the fence.",
	"England is in Europe.",
	"Paris is the captial of france.",
}

// openTestIndex opens a writeable index in a fresh database file with its
// own arbiter.
func openTestIndex(t *testing.T, s *schema.Schema, opts ...Option) *Index {
	t.Helper()
	return openTestIndexAt(t, filepath.Join(t.TempDir(), "ftsq.db"), s, opts...)
}

func openTestIndexAt(t *testing.T, path string, s *schema.Schema, opts ...Option) *Index {
	t.Helper()
	base := []Option{WithWriteable(), WithArbiter(arbiter.New()), WithWriterTimeout(5 * time.Second)}
	idx, err := Open(context.Background(), path, s, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

// exampleIndex holds the three example documents in the default schema.
func exampleIndex(t *testing.T) *Index {
	t.Helper()
	idx := openTestIndex(t, nil)
	for _, text := range exampleTexts {
		_, err := idx.Insert(context.Background(), Lookups{"text": text})
		require.NoError(t, err)
	}
	return idx
}

func movieSchema() *schema.Schema {
	return schema.MustNew("movie", []schema.Field{
		schema.Text("title").Searchable().Unique(),
		schema.Text("plot").Searchable(),
		schema.Int("year").Indexed(),
		schema.Date("released"),
	})
}

// movieIndex holds a few movies.
func movieIndex(t *testing.T) *Index {
	t.Helper()
	idx := openTestIndex(t, movieSchema())
	movies := []Lookups{
		{"title": "Alien", "plot": "A crew meets a deadly creature in space", "year": 1979, "released": "1979-05-25"},
		{"title": "Aliens", "plot": "The creature returns and the marines fight", "year": 1986, "released": "1986-07-18"},
		{"title": "Arrival", "plot": "A linguist talks to visitors from space", "year": 2016, "released": time.Date(2016, 11, 11, 0, 0, 0, 0, time.UTC)},
		{"title": "Gravity", "plot": "Two astronauts are stranded in space", "year": 2013, "released": "2013-10-04"},
	}
	err := idx.Write(context.Background(), func(w *Writer) error {
		for _, m := range movies {
			if _, err := w.Insert(context.Background(), m); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return idx
}

func count(t *testing.T, q *Query) int64 {
	t.Helper()
	n, err := q.Count(context.Background())
	require.NoError(t, err)
	return n
}

func titles(t *testing.T, q *Query) []string {
	t.Helper()
	docs, err := q.All(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.String("title"))
	}
	return out
}
