package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const movieDefinition = `
name: movie
fields:
  - {name: title, kind: text, searchable: true, unique: true}
  - {name: plot, kind: text, searchable: true}
  - {name: year, kind: int, indexed: true}
  - {name: released, kind: date}
`

const movieStream = `{"title": "Aliens", "plot": "The creature returns and the marines fight", "year": 1986, "released": "1986-07-18"}
{"title": "Arrival", "plot": "A linguist talks to visitors from space", "year": 2016, "released": "2016-11-11"}
{"title": "Gravity", "plot": "Two astronauts are stranded in space", "year": 2013, "released": "2013-10-04"}
`

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type documentsResponse struct {
	Status string           `json:"status"`
	Data   []map[string]any `json:"data"`
}

// movieDB initializes a movie index and fills it with four movies.
func movieDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	def := filepath.Join(dir, "movie.yaml")
	require.NoError(t, os.WriteFile(def, []byte(movieDefinition), 0o644))
	db := filepath.Join(dir, "movies.db")

	out, err := execute(t, "", "init", "--db", db, "--def", def, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Status string     `json:"status"`
		Data   InitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "movie", resp.Data.Index)
	assert.True(t, resp.Data.Managed)
	assert.Equal(t, []string{"title", "plot", "year", "released"}, resp.Data.Fields)

	out, err = execute(t, "", "insert", "--db", db, "--index", "movie",
		"title=Alien", "plot=A crew meets a deadly creature in space", "year=1979", "released=1979-05-25")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = execute(t, movieStream, "insert", "--db", db, "--index", "movie", "--stdin")
	require.NoError(t, err)
	assert.Equal(t, "2\n3\n4\n", out)
	return db
}

func searchTitles(t *testing.T, args ...string) []string {
	t.Helper()
	out, err := execute(t, "", append(args, "--format", "json")...)
	require.NoError(t, err)
	var resp documentsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	titles := make([]string, len(resp.Data))
	for i, d := range resp.Data {
		titles[i], _ = d["title"].(string)
	}
	return titles
}

func TestCommands_Search(t *testing.T) {
	db := movieDB(t)
	base := []string{"search", "--db", db, "--index", "movie"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"full text ordered by year", []string{"plot=space", "--order", "year"}, []string{"Alien", "Gravity", "Arrival"}},
		{"descending", []string{"plot=space", "--order", "-year"}, []string{"Arrival", "Gravity", "Alien"}},
		{"comparison", []string{"year__gte=2000", "--order", "title"}, []string{"Arrival", "Gravity"}},
		{"date part", []string{"released__year=1986"}, []string{"Aliens"}},
		{"prefix", []string{"title__allow_prefix=ali*", "--order", "title"}, []string{"Alien", "Aliens"}},
		{"slice", []string{"--order", "title", "--slice", "1:3"}, []string{"Aliens", "Arrival"}},
		{"no match", []string{"plot=zebra"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchTitles(t, append(append([]string{}, base...), tt.args...)...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommands_SearchValuesAndHighlight(t *testing.T) {
	db := movieDB(t)

	out, err := execute(t, "", "search", "--db", db, "--index", "movie",
		"plot=linguist", "--values", "title,plot", "--highlight", "plot", "--mark-start", "[", "--mark-end", "]", "--format", "json")
	require.NoError(t, err)
	var resp documentsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, map[string]any{
		"title": "Arrival",
		"plot":  "A [linguist] talks to visitors from space",
	}, resp.Data[0])

	out, err = execute(t, "", "search", "--db", db, "--index", "movie", "plot=linguist", "--values", "title,year")
	require.NoError(t, err)
	assert.Equal(t, "title: Arrival\nyear: 2016\n", out)
}

func TestCommands_SearchCount(t *testing.T) {
	db := movieDB(t)

	out, err := execute(t, "", "search", "--db", db, "--index", "movie", "plot=space", "--count")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = execute(t, "", "search", "--db", db, "--index", "movie", "--count", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"count":4}}`, out)
}

func TestCommands_Autocomplete(t *testing.T) {
	db := movieDB(t)

	got := searchTitles(t, "autocomplete", "--db", db, "--index", "movie", "title", "ali")
	assert.ElementsMatch(t, []string{"Alien", "Aliens"}, got)

	got = searchTitles(t, "autocomplete", "--db", db, "--index", "movie", "plot", "two astro")
	assert.Equal(t, []string{"Gravity"}, got)
}

func TestCommands_Upsert(t *testing.T) {
	db := movieDB(t)

	_, err := execute(t, "", "insert", "--db", db, "--index", "movie", "--upsert",
		"title=Alien", "plot=A crew meets a deadly creature", "year=1980", "released=1979-05-25")
	require.NoError(t, err)

	got := searchTitles(t, "search", "--db", db, "--index", "movie", "year=1980")
	assert.Equal(t, []string{"Alien"}, got)

	out, err := execute(t, "", "search", "--db", db, "--index", "movie", "--count")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)
}

func TestCommands_Stats(t *testing.T) {
	db := movieDB(t)

	out, err := execute(t, "", "stats", "--db", db, "--index", "movie")
	require.NoError(t, err)
	assert.Contains(t, out, "Index:     movie")
	assert.Contains(t, out, "Documents: 4")
	assert.Contains(t, out, "Managed:   true")

	out, err = execute(t, "", "stats", "--db", db, "--index", "movie", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data StatsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, int64(4), resp.Data.Documents)
	assert.Greater(t, resp.Data.Terms, int64(0))
	assert.Greater(t, resp.Data.SizeBytes, int64(0))
}

func TestCommands_Suggest(t *testing.T) {
	db := movieDB(t)

	out, err := execute(t, "", "suggest", "--db", db, "--index", "movie", "--correct", "deadly spcae")
	require.NoError(t, err)
	assert.Equal(t, "deadly space\n", out)

	out, err = execute(t, "", "suggest", "--db", db, "--index", "movie", "spcae")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "spcae: space"), out)

	out, err = execute(t, "", "suggest", "--db", db, "--index", "movie", "space")
	require.NoError(t, err)
	assert.Equal(t, "No suggestions\n", out)
}

func TestCommands_Optimize(t *testing.T) {
	db := movieDB(t)

	out, err := execute(t, "", "optimize", "--db", db, "--index", "movie")
	require.NoError(t, err)
	assert.Contains(t, out, "Optimized movie")

	out, err = execute(t, "", "optimize", "--db", db, "--index", "movie", "--rebuild", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"index":"movie","status":"optimized"}}`, out)

	out, err = execute(t, "", "search", "--db", db, "--index", "movie", "plot=creature", "--count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestCommands_Build(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("The quick brown fox"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("jumps over the lazy dog"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.md"), []byte("quick notes"), 0o644))
	db := filepath.Join(t.TempDir(), "notes.db")

	out, err := execute(t, "", "build", root, "--db", db, "--index", "notes", "--ext", "txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 files into notes")

	out, err = execute(t, "", "search", "--db", db, "--index", "notes", "text=quick", "--count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = execute(t, "", "build", root, "--db", db, "--index", "notes", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data BuildResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 3, resp.Data.Documents)
}

func TestCommands_Errors(t *testing.T) {
	db := movieDB(t)
	missing := filepath.Join(t.TempDir(), "missing.db")

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantCode string
	}{
		{"missing database", []string{"search", "--db", missing}, ExitCommandError, ErrCodeGeneric},
		{"stats missing database", []string{"stats", "--db", missing}, ExitCommandError, ErrCodeGeneric},
		{"unknown field", []string{"search", "--db", db, "--index", "movie", "genre=horror"}, ExitCommandError, "FIELD_ERROR"},
		{"bad lookup", []string{"search", "--db", db, "--index", "movie", "year__allow_prefix=19"}, ExitCommandError, "FIELD_ERROR"},
		{"bad slice", []string{"search", "--db", db, "--index", "movie", "--slice", "5:1"}, ExitCommandError, "QUERY_ERROR"},
		{"highlight attribute", []string{"search", "--db", db, "--index", "movie", "--highlight", "year"}, ExitCommandError, "QUERY_ERROR"},
		{"not key value", []string{"search", "--db", db, "--index", "movie", "space"}, ExitCommandError, ErrCodeGeneric},
		{"bad integer", []string{"search", "--db", db, "--index", "movie", "year=soon"}, ExitCommandError, ErrCodeGeneric},
		{"missing insert field", []string{"insert", "--db", db, "--index", "movie", "title=Solaris"}, ExitCommandError, "FIELD_ERROR"},
		{"insert without documents", []string{"insert", "--db", db, "--index", "movie"}, ExitCommandError, ErrCodeGeneric},
		{"autocomplete attribute", []string{"autocomplete", "--db", db, "--index", "movie", "year", "19"}, ExitCommandError, "QUERY_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", append(tt.args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestCommands_InvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"format", []string{"stats", "--format", "xml"}},
		{"index name", []string{"stats", "--index", "1bad"}},
		{"capacity", []string{"stats", "--capacity", "0"}},
		{"missing config file", []string{"stats", "--config", filepath.Join(t.TempDir(), "nope.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestCommands_ConfigFile(t *testing.T) {
	db := movieDB(t)
	cfg := filepath.Join(t.TempDir(), "ftsq.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("db: "+db+"\nindex: movie\nformat: json\n"), 0o644))

	out, err := execute(t, "", "search", "--config", cfg, "--count")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"count":4}}`, out)

	t.Setenv("FTSQ_FORMAT", "text")
	out, err = execute(t, "", "search", "--config", cfg, "--count")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)
}

func TestCommands_InitFromCUE(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "notes.cue")
	require.NoError(t, os.WriteFile(def, []byte(`
index: {
	name: "notes"
	fields: [
		{name: "title", kind: "text", searchable: true, unique: true},
		{name: "stars", kind: "int"},
	]
}
`), 0o644))
	db := filepath.Join(dir, "notes.db")

	out, err := execute(t, "", "init", "--db", db, "--def", def)
	require.NoError(t, err)
	assert.Equal(t, "✓ Index notes ready (managed, 2 fields)\n", out)

	_, err = execute(t, "", "insert", "--db", db, "--index", "notes", "title=Shopping list", "stars=3")
	require.NoError(t, err)

	got := searchTitles(t, "search", "--db", db, "--index", "notes", "stars__gt=2")
	assert.Equal(t, []string{"Shopping list"}, got)
}

func TestCommands_InvalidDefinition(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(def, []byte("name: bad\nfields: []\n"), 0o644))

	out, err := execute(t, "", "init", "--db", filepath.Join(dir, "bad.db"), "--def", def, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `"code":"SCHEMA_ERROR"`)
}
