// Package spell suggests corrections for query words that are not in an
// index's vocabulary.
//
// Candidates are looked up through a bigram table built from the index
// vocabulary and ranked by Levenshtein distance, then by how many
// documents contain them.
package spell

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/roach88/ftsq/internal/arbiter"
	"github.com/roach88/ftsq/internal/errs"
	"github.com/roach88/ftsq/internal/schema"
	"github.com/roach88/ftsq/internal/store"
)

// DefaultMaxDistance is the largest edit distance a candidate may have.
const DefaultMaxDistance = 2

// Candidate is one replacement for an unknown word.
type Candidate struct {
	Term     string
	Distance int
	Docs     int64
}

// Suggestion lists the candidates for one unknown token of the input.
type Suggestion struct {
	// Original is the token as typed; Start and End are its byte span.
	Original   string
	Start, End int
	Candidates []Candidate
}

// Checker builds and queries the bigram table of one index.
type Checker struct {
	st          *store.Store
	arb         *arbiter.Arbiter
	schema      *schema.Schema
	timeout     time.Duration
	maxDistance int
	logger      *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithMaxDistance overrides DefaultMaxDistance.
func WithMaxDistance(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxDistance = n
		}
	}
}

// WithWriterTimeout bounds the wait for the index writer during Build.
func WithWriterTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Checker for the index described by s.
func New(st *store.Store, arb *arbiter.Arbiter, s *schema.Schema, opts ...Option) *Checker {
	c := &Checker{
		st:          st,
		arb:         arb,
		schema:      s,
		timeout:     arbiter.DefaultTimeout,
		maxDistance: DefaultMaxDistance,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build rewrites the bigram table from the current vocabulary in one
// writer session.
func (c *Checker) Build(ctx context.Context) error {
	table := store.BigramTable(c.schema)
	start := time.Now()
	var terms int

	err := c.st.WithWriter(ctx, c.arb, c.schema.Name(), c.timeout, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (bigram TEXT NOT NULL, term TEXT NOT NULL, PRIMARY KEY (bigram, term)) WITHOUT ROWID",
			table)); err != nil {
			return errs.Database(c.schema.Name(), err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errs.Database(c.schema.Name(), err)
		}

		vocab, err := store.Vocabulary(ctx, tx, c.schema)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT OR IGNORE INTO %s (bigram, term) VALUES (?, ?)", table))
		if err != nil {
			return errs.Database(c.schema.Name(), err)
		}
		defer stmt.Close()

		for _, t := range vocab {
			for _, bg := range Bigrams(t.Term) {
				if _, err := stmt.ExecContext(ctx, bg, t.Term); err != nil {
					return errs.Database(c.schema.Name(), err)
				}
			}
		}
		terms = len(vocab)
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("spell index built", "index", c.schema.Name(), "terms", terms, "duration", time.Since(start))
	return nil
}

// Built reports whether the bigram table exists.
func (c *Checker) Built(ctx context.Context) (bool, error) {
	var n int
	err := c.st.DB().QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		store.BigramTable(c.schema)).Scan(&n)
	if err != nil {
		return false, errs.Database(c.schema.Name(), err)
	}
	return n > 0, nil
}

// Suggest returns, for each token of text missing from the vocabulary, up
// to n candidates in rank order. Known tokens and tokens without any
// candidate are omitted. Suggesting before Build is a SchemaError.
func (c *Checker) Suggest(ctx context.Context, text string, n int) ([]Suggestion, error) {
	if n <= 0 {
		n = 1
	}
	built, err := c.Built(ctx)
	if err != nil {
		return nil, err
	}
	if !built {
		return nil, errs.Schema("spell index of %q is not built; call Build first", c.schema.Name())
	}
	db := c.st.DB()

	var out []Suggestion
	for _, tok := range c.schema.Tokenizer().Tokenize(text) {
		_, known, err := store.LookupTerm(ctx, db, c.schema, tok.Text)
		if err != nil {
			return nil, err
		}
		if known {
			continue
		}

		cands, err := c.candidates(ctx, tok.Text)
		if err != nil {
			return nil, err
		}
		if len(cands) == 0 {
			continue
		}
		if len(cands) > n {
			cands = cands[:n]
		}
		out = append(out, Suggestion{
			Original:   text[tok.Start:tok.End],
			Start:      tok.Start,
			End:        tok.End,
			Candidates: cands,
		})
	}
	return out, nil
}

// Correct replaces every unknown token of text with its best candidate.
// Everything between tokens is kept as typed.
func (c *Checker) Correct(ctx context.Context, text string) (string, error) {
	suggestions, err := c.Suggest(ctx, text, 1)
	if err != nil {
		return "", err
	}
	if len(suggestions) == 0 {
		return text, nil
	}

	var b strings.Builder
	last := 0
	for _, s := range suggestions {
		b.WriteString(text[last:s.Start])
		b.WriteString(s.Candidates[0].Term)
		last = s.End
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

func (c *Checker) candidates(ctx context.Context, word string) ([]Candidate, error) {
	bigrams := Bigrams(word)
	args := make([]any, len(bigrams))
	for i, bg := range bigrams {
		args[i] = bg
	}

	rows, err := c.st.DB().QueryContext(ctx, fmt.Sprintf(
		"SELECT b.term, v.doc FROM %s AS b JOIN %s AS v ON v.term = b.term WHERE b.bigram IN (%s) GROUP BY b.term",
		store.BigramTable(c.schema), c.schema.VocabTable(), strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")),
		args...)
	if err != nil {
		return nil, errs.Database(c.schema.Name(), err)
	}
	defer rows.Close()

	wordLen := len([]rune(word))
	var out []Candidate
	for rows.Next() {
		var cand Candidate
		if err := rows.Scan(&cand.Term, &cand.Docs); err != nil {
			return nil, errs.Database(c.schema.Name(), err)
		}
		// Length difference is a lower bound on the distance.
		if abs(len([]rune(cand.Term))-wordLen) > c.maxDistance {
			continue
		}
		cand.Distance = Levenshtein(word, cand.Term)
		if cand.Distance > c.maxDistance {
			continue
		}
		out = append(out, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database(c.schema.Name(), err)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Docs != b.Docs {
			return a.Docs > b.Docs
		}
		return a.Term < b.Term
	})
	return out, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
