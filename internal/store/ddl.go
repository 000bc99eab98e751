package store

import (
	"fmt"
	"strings"

	"github.com/roach88/ftsq/internal/schema"
)

// TableStatements returns the DDL of the document table and its attribute
// indexes.
func TableStatements(s *schema.Schema) []string {
	var defs []string
	for _, f := range s.Columns() {
		defs = append(defs, f.ColumnDef())
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.Name(), strings.Join(defs, ", ")),
	}
	for _, f := range s.UserFields() {
		if f.Index {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_%s_idx ON %s(%s)",
				s.Name(), f.Name, s.Name(), f.Name))
		}
	}
	return stmts
}

// SearchStatements returns the DDL of the full-text table, its triggers
// and its vocabulary table.
func SearchStatements(s *schema.Schema) []string {
	var (
		name, fts = s.Name(), s.FTSTable()
		cols      []string
		newCols   []string
		oldCols   []string
	)
	for _, f := range s.FullTextFields() {
		cols = append(cols, f.Name)
		newCols = append(newCols, "new."+f.Name)
		oldCols = append(oldCols, "old."+f.Name)
	}
	colList := strings.Join(cols, ", ")

	options := []string{
		colList,
		fmt.Sprintf("content='%s'", name),
		"content_rowid='id'",
		"tokenize=" + quoteSQL(s.Tokenizer().Config().FTS5Options()),
	}
	if p := s.PrefixIndex(); len(p) > 0 {
		lengths := make([]string, len(p))
		for i, n := range p {
			lengths[i] = fmt.Sprint(n)
		}
		options = append(options, "prefix="+quoteSQL(strings.Join(lengths, " ")))
	}

	insertNew := fmt.Sprintf("INSERT INTO %s(rowid, %s) VALUES (new.id, %s);",
		fts, colList, strings.Join(newCols, ", "))
	deleteOld := fmt.Sprintf("INSERT INTO %s(%s, rowid, %s) VALUES ('delete', old.id, %s);",
		fts, fts, colList, strings.Join(oldCols, ", "))

	return []string{
		fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(%s)", fts, strings.Join(options, ", ")),
		fmt.Sprintf("CREATE TRIGGER IF NOT EXISTS %s_ai AFTER INSERT ON %s BEGIN %s END", name, name, insertNew),
		fmt.Sprintf("CREATE TRIGGER IF NOT EXISTS %s_ad AFTER DELETE ON %s BEGIN %s END", name, name, deleteOld),
		fmt.Sprintf("CREATE TRIGGER IF NOT EXISTS %s_au AFTER UPDATE ON %s BEGIN %s %s END", name, name, deleteOld, insertNew),
		fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5vocab(%s, row)", s.VocabTable(), fts),
	}
}

// DropStatements removes everything SearchStatements and, for managed
// indexes, TableStatements created.
func DropStatements(s *schema.Schema, managed bool) []string {
	name := s.Name()
	stmts := []string{
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_ai", name),
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_ad", name),
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_au", name),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", BigramTable(s)),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", s.VocabTable()),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", s.FTSTable()),
	}
	if managed {
		stmts = append(stmts, fmt.Sprintf("DROP TABLE IF EXISTS %s", name))
	}
	return stmts
}

// BigramTable names the spell-check satellite table of s.
func BigramTable(s *schema.Schema) string {
	return s.Name() + "_bigrams"
}

func quoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
