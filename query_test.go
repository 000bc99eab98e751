package ftsq

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ftsq/internal/schema"
)

func TestSearch_ExampleDocuments(t *testing.T) {
	idx := exampleIndex(t)

	testCases := []struct {
		name   string
		lookup Lookups
		want   int64
	}{
		{name: "every document contains is", lookup: Lookups{"text": "is"}, want: 3},
		{name: "prefix disabled by default", lookup: Lookups{"text": "fran*"}, want: 0},
		{name: "prefix enabled", lookup: Lookups{"text__allow_prefix": "fran*"}, want: 1},
		{name: "boolean AND", lookup: Lookups{"text__allow_boolean": "france AND paris"}, want: 1},
		{name: "boolean OR", lookup: Lookups{"text__allow_boolean": "france OR paris"}, want: 1},
		{name: "boolean OR across documents", lookup: Lookups{"text__allow_boolean": "england OR paris"}, want: 2},
		{name: "grouping", lookup: Lookups{"text__allow_boolean": "(england OR paris) AND europe"}, want: 1},
		{name: "AND is literal without modifier", lookup: Lookups{"text": "france AND paris"}, want: 0},
		{name: "negation", lookup: Lookups{"text__allow_negation": "is NOT europe"}, want: 2},
		{name: "NOT is literal without modifier", lookup: Lookups{"text": "is NOT europe"}, want: 0},
		{name: "initial token", lookup: Lookups{"text__allow_initial_token": "^england"}, want: 1},
		{name: "initial token not at start", lookup: Lookups{"text__allow_initial_token": "^europe"}, want: 0},
		{name: "caret is literal without modifier", lookup: Lookups{"text": "^europe"}, want: 1},
		{name: "terms are ANDed", lookup: Lookups{"text": "fence fox"}, want: 1},
		{name: "phrase", lookup: Lookups{"text": `"fox jumped"`}, want: 1},
		{name: "phrase out of order", lookup: Lookups{"text": `"jumped fox"`}, want: 0},
		{name: "case folded", lookup: Lookups{"text": "PARIS"}, want: 1},
		{name: "unterminated quote", lookup: Lookups{"text": `"england`}, want: 1},
		{name: "separators", lookup: Lookups{"text": "europe-"}, want: 1},
		{name: "column filter syntax is literal", lookup: Lookups{"text": "text:europe"}, want: 0},
		{name: "only operators", lookup: Lookups{"text": "AND OR"}, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, count(t, idx.Search(tc.lookup)))
		})
	}
}

func TestSearch_NoArguments(t *testing.T) {
	idx := exampleIndex(t)

	docs, err := idx.Search().All(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"id", "text", "rank"}, docs[0].Keys())
	_, ok := docs[0].Get("rank")
	assert.True(t, ok)
}

func TestSearch_Errors(t *testing.T) {
	idx := movieIndex(t)

	testCases := []struct {
		name  string
		query *Query
		check func(error) bool
	}{
		{name: "unknown field", query: idx.Search(Lookups{"director": "Scott"}), check: IsFieldError},
		{name: "unknown lookup", query: idx.Search(Lookups{"year__between": 1}), check: IsFieldError},
		{name: "comparison on full-text field", query: idx.Search(Lookups{"title__gte": "A"}), check: IsFieldError},
		{name: "modifier on attribute", query: idx.Search(Lookups{"year__allow_prefix": 19}), check: IsFieldError},
		{name: "hour on date", query: idx.Search(Lookups{"released__hour": 1}), check: IsFieldError},
		{name: "two comparisons", query: idx.Search(Lookups{"year__gt__lt": 1}), check: IsFieldError},
		{name: "rank filter", query: idx.Search(Lookups{"rank": 1}), check: IsFieldError},
		{name: "mixed Q and keywords", query: idx.Search(Lookups{"title": "alien"}, Q(Lookups{"year": 1979})), check: IsQueryError},
		{name: "Q with two lookups", query: idx.Search(Q(Lookups{"title": "alien", "year": 1979})), check: IsQueryError},
		{name: "Q with no lookup", query: idx.Search(Q(Lookups{})), check: IsQueryError},
		{name: "Q with unknown field", query: idx.Search(Q(Lookups{"director": "Scott"})), check: IsFieldError},
		{name: "values unknown field", query: idx.Search().Values("director"), check: IsFieldError},
		{name: "order unknown field", query: idx.Search().OrderBy("-director"), check: IsFieldError},
		{name: "highlight attribute", query: idx.Search().Highlight("year", "[", "]"), check: IsQueryError},
		{name: "snippet too long", query: idx.Search().Snippet("plot", "[", "]", "...", 64), check: IsQueryError},
		{name: "snippet empty", query: idx.Search().Snippet("plot", "[", "]", "...", 0), check: IsQueryError},
		{name: "negative slice", query: idx.Search().Slice(-1, 2), check: IsQueryError},
		{name: "reversed slice", query: idx.Search().Slice(3, 2), check: IsQueryError},
		{name: "open slice", query: idx.Search().ParseSlice("1:"), check: IsQueryError},
		{name: "text slice", query: idx.Search().ParseSlice("a:b"), check: IsQueryError},
		{name: "no colon", query: idx.Search().ParseSlice("3"), check: IsQueryError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := tc.query.SQL()
			require.Error(t, err)
			assert.True(t, tc.check(err), "unexpected error: %v", err)

			_, err = tc.query.Count(context.Background())
			assert.True(t, tc.check(err))
			_, err = tc.query.All(context.Background())
			assert.True(t, tc.check(err))
		})
	}
}

func TestSearch_FirstErrorWins(t *testing.T) {
	idx := movieIndex(t)

	q := idx.Search(Lookups{"director": "Scott"}).Slice(-1, 0).Values("title")
	assert.True(t, IsFieldError(q.Err()))
}

func TestSearch_Attributes(t *testing.T) {
	idx := movieIndex(t)

	testCases := []struct {
		name string
		args []SearchArg
		want []string
	}{
		{name: "gte", args: []SearchArg{Lookups{"year__gte": 2000}}, want: []string{"Arrival", "Gravity"}},
		{name: "lt", args: []SearchArg{Lookups{"year__lt": 1980}}, want: []string{"Alien"}},
		{name: "eq", args: []SearchArg{Lookups{"year": 2013}}, want: []string{"Gravity"}},
		{name: "range", args: []SearchArg{Lookups{"year__gt": 1979, "year__lte": 2013}}, want: []string{"Aliens", "Gravity"}},
		{name: "full text and attribute", args: []SearchArg{Lookups{"plot": "space", "year__lt": 2000}}, want: []string{"Alien"}},
		{name: "prefix", args: []SearchArg{Lookups{"title__allow_prefix": "alien*"}}, want: []string{"Alien", "Aliens"}},
		{name: "two full-text fields", args: []SearchArg{Lookups{"title": "alien", "plot": "space"}}, want: []string{"Alien"}},
		{name: "date year", args: []SearchArg{Lookups{"released__year": 1986}}, want: []string{"Aliens"}},
		{name: "date month", args: []SearchArg{Lookups{"released__month": 11}}, want: []string{"Arrival"}},
		{name: "date comparison", args: []SearchArg{Lookups{"released__gte": "2000-01-01"}}, want: []string{"Arrival", "Gravity"}},
		{name: "date part comparison", args: []SearchArg{Lookups{"released__year__lt": 1980}}, want: []string{"Alien"}},
		{
			name: "Q OR across domains",
			args: []SearchArg{Q(Lookups{"title": "alien"}).Or(Q(Lookups{"year__gte": 2010}))},
			want: []string{"Alien", "Arrival", "Gravity"},
		},
		{
			name: "Q OR attribute first",
			args: []SearchArg{Q(Lookups{"year__gte": 2010}).Or(Q(Lookups{"title": "alien"}))},
			want: []string{"Alien", "Arrival", "Gravity"},
		},
		{
			name: "Q AND across domains",
			args: []SearchArg{Q(Lookups{"plot": "space"}).And(Q(Lookups{"year__gte": 2014}))},
			want: []string{"Arrival"},
		},
		{
			name: "Q OR within full text",
			args: []SearchArg{Q(Lookups{"title": "gravity"}).Or(Q(Lookups{"plot": "marines"}))},
			want: []string{"Aliens", "Gravity"},
		},
		{
			name: "Q OR within attributes",
			args: []SearchArg{Q(Lookups{"year": 1979}).Or(Q(Lookups{"year": 2016}))},
			want: []string{"Alien", "Arrival"},
		},
		{
			name: "several Q arguments are ANDed",
			args: []SearchArg{Q(Lookups{"plot": "creature"}), Q(Lookups{"year__gt": 1980})},
			want: []string{"Aliens"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := titles(t, idx.Search(tc.args...).OrderBy("id"))
			assert.Equal(t, tc.want, got)
			assert.Equal(t, int64(len(tc.want)), count(t, idx.Search(tc.args...)))
		})
	}
}

func TestSearch_QProducts(t *testing.T) {
	idx := openTestIndex(t, schema.MustNew("product", []schema.Field{
		schema.Text("code").Searchable(),
		schema.Text("product").Searchable(),
		schema.Int("price"),
	}))
	ctx := context.Background()
	for _, p := range []Lookups{
		{"code": "A01", "product": "Apple", "price": 4},
		{"code": "A02", "product": "Peach", "price": 7},
		{"code": "A03", "product": "Orange", "price": 8},
		{"code": "B01", "product": "Grapefruit", "price": 5},
		{"code": "B02", "product": "Banana", "price": 9},
		{"code": "C01", "product": "Apple and Orange", "price": 3},
	} {
		_, err := idx.Insert(ctx, p)
		require.NoError(t, err)
	}

	testCases := []struct {
		name string
		expr *Expr
		want []string
	}{
		{
			name: "attribute range and full text or",
			expr: Q(Lookups{"price__gte": 1}).
				And(Q(Lookups{"price__lte": 5})).
				And(Q(Lookups{"product": "Apple"})).
				Or(Q(Lookups{"product": "Orange"})),
			want: []string{"A01", "C01"},
		},
		{
			name: "or on one field",
			expr: Q(Lookups{"product": "apple"}).Or(Q(Lookups{"product": "Peach"})),
			want: []string{"A01", "A02", "C01"},
		},
		{
			name: "phrase",
			expr: Q(Lookups{"product": `"apple and orange"`}),
			want: []string{"C01"},
		},
		{
			name: "words in any order",
			expr: Q(Lookups{"product": "orange and apple"}),
			want: []string{"C01"},
		},
		{
			name: "initial token",
			expr: Q(Lookups{"price__gte": 3}).And(Q(Lookups{"product__allow_initial_token": "^Orange"})),
			want: []string{"A03"},
		},
		{
			name: "full text first",
			expr: Q(Lookups{"product": "Apple"}).And(Q(Lookups{"code__allow_prefix": "A*"})).And(Q(Lookups{"price__gte": 2})),
			want: []string{"A01"},
		},
		{
			name: "attribute first",
			expr: Q(Lookups{"price__gte": 2}).And(Q(Lookups{"product": "Apple"})).And(Q(Lookups{"code__allow_prefix": "A*"})),
			want: []string{"A01"},
		},
		{
			name: "attribute between full text",
			expr: Q(Lookups{"code__allow_prefix": "A*"}).And(Q(Lookups{"price__gte": 2})).And(Q(Lookups{"product": "Apple"})),
			want: []string{"A01"},
		},
		{
			name: "or on attributes",
			expr: Q(Lookups{"price__gte": 9}).Or(Q(Lookups{"price__lte": 3})),
			want: []string{"B02", "C01"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			docs, err := idx.Search(tc.expr).OrderBy("code").All(ctx)
			require.NoError(t, err)
			got := make([]string, 0, len(docs))
			for _, d := range docs {
				got = append(got, d.String("code"))
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, int64(len(tc.want)), count(t, idx.Search(tc.expr)))
		})
	}
}

func TestSearch_Rank(t *testing.T) {
	idx := movieIndex(t)
	ctx := context.Background()

	docs, err := idx.Search(Lookups{"plot": "space"}).All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for i := 1; i < len(docs); i++ {
		assert.LessOrEqual(t, docs[i-1].Float("rank"), docs[i].Float("rank"), "best match first")
	}

	// Rows produced through the OR subquery carry no rank.
	docs, err = idx.Search(Q(Lookups{"title": "alien"}).Or(Q(Lookups{"year": 2013}))).All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		v, ok := d.Get("rank")
		assert.True(t, ok)
		assert.Nil(t, v)
	}
}

func TestQuery_ValuesAndOrder(t *testing.T) {
	idx := movieIndex(t)
	ctx := context.Background()

	docs, err := idx.Search().Values("title", "year").OrderBy("-year").All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, []string{"title", "year"}, docs[0].Keys())
	assert.Equal(t, "Arrival", docs[0].String("title"))
	assert.Equal(t, int64(2016), docs[0].Int("year"))

	// Every OrderBy call replaces the previous one.
	got := titles(t, idx.Search().OrderBy("-year").OrderBy("+title"))
	assert.Equal(t, []string{"Alien", "Aliens", "Arrival", "Gravity"}, got)

	// Ordering on a column that is not selected.
	docs, err = idx.Search().Values("title").OrderBy("year").All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, "Alien", docs[0].String("title"))
	assert.Equal(t, "Arrival", docs[3].String("title"))
}

func TestQuery_Immutable(t *testing.T) {
	idx := movieIndex(t)

	base := idx.Search(Lookups{"plot": "space"})
	_ = base.Values("title").OrderBy("-year").Slice(0, 1)

	assert.Equal(t, int64(3), count(t, base))
	docs, err := base.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	assert.Equal(t, []string{"id", "title", "plot", "year", "released", "rank"}, docs[0].Keys())
}

func TestQuery_Highlight(t *testing.T) {
	idx := movieIndex(t)

	docs, err := idx.Search(Lookups{"plot": "creature"}).
		Values("title", "plot").
		Highlight("plot", "<b>", "</b>").
		OrderBy("id").
		All(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "A crew meets a deadly <b>creature</b> in space", docs[0].String("plot"))
	assert.Equal(t, "The <b>creature</b> returns and the marines fight", docs[1].String("plot"))
	assert.Equal(t, "Alien", docs[0].String("title"), "undecorated fields are unchanged")
}

func TestQuery_HighlightNotSelected(t *testing.T) {
	idx := movieIndex(t)

	docs, err := idx.Search(Lookups{"plot": "creature"}).
		Values("title").
		Highlight("plot", "<b>", "</b>").
		All(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.False(t, docs[0].Has("plot"))
}

func TestQuery_Snippet(t *testing.T) {
	idx := movieIndex(t)

	docs, err := idx.Search(Lookups{"plot": "space"}).
		Snippet("plot", "[", "]", "...", 3).
		All(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for _, d := range docs {
		snippet := d.String("plot")
		assert.Contains(t, snippet, "[space]")
		assert.LessOrEqual(t, len(strings.Fields(snippet)), 4)
	}
}

func TestQuery_Slice(t *testing.T) {
	idx := movieIndex(t)
	ctx := context.Background()

	q := idx.Search().OrderBy("id")
	assert.Equal(t, []string{"Aliens", "Arrival"}, titles(t, q.Slice(1, 3)))
	assert.Equal(t, []string{"Arrival", "Gravity"}, titles(t, q.ParseSlice("2:10")))
	assert.Empty(t, titles(t, q.Slice(2, 2)))
	assert.Equal(t, int64(4), count(t, q.Slice(0, 1)), "count ignores the slice")

	// The default window is ten rows.
	assert.Equal(t, DefaultLimit, q.limit)

	doc, err := q.At(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Aliens", doc.String("title"))

	_, err = q.At(ctx, 4)
	assert.True(t, IsNotFound(err))

	_, err = q.At(ctx, -1)
	assert.True(t, IsQueryError(err))
}

func TestQuery_Rows(t *testing.T) {
	idx := movieIndex(t)

	var seen []string
	for doc, err := range idx.Search().OrderBy("id").Rows(context.Background()) {
		require.NoError(t, err)
		seen = append(seen, doc.String("title"))
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"Alien", "Aliens"}, seen)
}

func TestQuery_Union(t *testing.T) {
	idx := movieIndex(t)

	u := idx.Search(Lookups{"title": "gravity"}).Union(idx.Search(Lookups{"year__lt": 1980}))

	assert.ElementsMatch(t, []string{"Gravity", "Alien"}, titles(t, u))
	assert.Equal(t, int64(2), count(t, u))

	sql, _, err := u.SQL()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(sql, "UNION ALL"))
	assert.Equal(t, 1, strings.Count(sql, "ORDER BY"), "one ordering for the whole union")
	assert.Equal(t, 1, strings.Count(sql, "LIMIT"))

	// Values and ordering apply to every segment.
	docs, err := u.Values("title").OrderBy("title").All(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, []string{"title"}, docs[0].Keys())
	assert.Equal(t, "Alien", docs[0].String("title"))
	assert.Equal(t, "Gravity", docs[1].String("title"))

	assert.Equal(t, []string{"Gravity"}, titles(t, u.OrderBy("title").Slice(1, 2)))

	// Three segments.
	u3 := u.Union(idx.Search(Lookups{"plot": "linguist"}))
	assert.Equal(t, int64(3), count(t, u3))
}

func TestQuery_UnionDecorations(t *testing.T) {
	idx := movieIndex(t)

	testCases := []struct {
		name  string
		query *Query
	}{
		{
			name:  "right side",
			query: idx.Search(Lookups{"title": "gravity"}).Union(idx.Search(Lookups{"title": "arrival"}).Highlight("title", "[", "]")),
		},
		{
			name:  "left side",
			query: idx.Search(Lookups{"title": "gravity"}).Highlight("title", "[", "]").Union(idx.Search(Lookups{"title": "arrival"})),
		},
		{
			name: "both sides alike",
			query: idx.Search(Lookups{"title": "gravity"}).Highlight("title", "[", "]").
				Union(idx.Search(Lookups{"title": "arrival"}).Highlight("title", "[", "]")),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.query.Err())
			docs, err := tc.query.OrderBy("title").All(context.Background())
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, "[Arrival]", docs[0].String("title"))
			assert.Equal(t, "[Gravity]", docs[1].String("title"))
		})
	}
}

func TestQuery_UnionErrors(t *testing.T) {
	idx := movieIndex(t)
	other := openTestIndex(t, movieSchema())

	testCases := []struct {
		name  string
		query *Query
	}{
		{name: "custom values left", query: idx.Search().Values("title").Union(idx.Search())},
		{name: "custom values right", query: idx.Search().Union(idx.Search().Values("title"))},
		{name: "custom order left", query: idx.Search().OrderBy("year").Union(idx.Search())},
		{name: "custom order right", query: idx.Search().Union(idx.Search().OrderBy("year"))},
		{name: "different index", query: idx.Search().Union(other.Search())},
		{
			name:  "conflicting highlight",
			query: idx.Search().Highlight("plot", "<b>", "</b>").Union(idx.Search().Highlight("plot", "[", "]")),
		},
		{
			name:  "highlight and snippet on one field",
			query: idx.Search().Highlight("plot", "[", "]").Union(idx.Search().Snippet("plot", "[", "]", "...", 8)),
		},
		{name: "nil", query: idx.Search().Union(nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, IsQueryError(tc.query.Err()), "unexpected error: %v", tc.query.Err())
		})
	}
}

func TestQuery_SQLDeterministic(t *testing.T) {
	idx := movieIndex(t)

	build := func() *Query {
		return idx.Search(
			Q(Lookups{"plot__allow_boolean": "space OR creature"}).
				And(Q(Lookups{"year__gte": 1980})).
				Or(Q(Lookups{"released__year": 1979})),
		).Highlight("title", "[", "]").OrderBy("-year")
	}

	sql1, params1, err := build().SQL()
	require.NoError(t, err)
	sql2, params2, err := build().SQL()
	require.NoError(t, err)

	assert.Equal(t, sql1, sql2)
	assert.Equal(t, params1, params2)
	assert.NotContains(t, sql1, "creature", "values are bound, never interpolated")
	assert.Contains(t, params1, `plot : ("space" OR "creature")`)
}

func TestAutocomplete(t *testing.T) {
	idx := exampleIndex(t)

	testCases := []struct {
		name string
		text string
		want int64
	}{
		{name: "prefix of one word", text: "fr", want: 1},
		{name: "whole word", text: "england", want: 1},
		{name: "several words", text: "the fo", want: 1},
		{name: "words anywhere", text: "captial fr", want: 1},
		{name: "common prefix", text: "f", want: 2},
		{name: "no match", text: "zebra", want: 0},
		{name: "no tokens", text: " ,. ", want: 0},
		{name: "empty", text: "", want: 0},
		{name: "control syntax is literal", text: "AND OR", want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, count(t, idx.Autocomplete(Lookups{"text": tc.text})))
		})
	}
}

func TestAutocomplete_RanksInitialMatchesFirst(t *testing.T) {
	idx := openTestIndex(t, nil)
	ctx := context.Background()
	for _, text := range []string{"a fox named london", "london calling", "london"} {
		_, err := idx.Insert(ctx, Lookups{"text": text})
		require.NoError(t, err)
	}

	docs, err := idx.Autocomplete(Lookups{"text": "lond"}).All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.NotEqual(t, "a fox named london", docs[0].String("text"))
}

func TestAutocomplete_Errors(t *testing.T) {
	idx := movieIndex(t)

	assert.Equal(t, int64(4), count(t, idx.Autocomplete(nil)))
	assert.True(t, IsQueryError(idx.Autocomplete(Lookups{"title": "a", "plot": "b"}).Err()))
	assert.True(t, IsQueryError(idx.Autocomplete(Lookups{"year": "19"}).Err()))
	assert.True(t, IsFieldError(idx.Autocomplete(Lookups{"director": "sc"}).Err()))
	assert.True(t, IsFieldError(idx.Autocomplete(Lookups{"title__allow_prefix": "al"}).Err()))
}
