//go:build sqlite_fts5

package store

import (
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	registerDriver("sqlite3", func(path string, memory bool) string {
		if memory {
			return "file::memory:?_foreign_keys=on&_txlock=immediate"
		}
		return "file:" + path +
			"?_journal_mode=WAL" +
			"&_busy_timeout=5000" +
			"&_foreign_keys=on" +
			"&_txlock=immediate"
	})
}
