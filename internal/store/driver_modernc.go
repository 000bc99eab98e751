package store

import (
	_ "modernc.org/sqlite"
)

func init() {
	registerDriver("sqlite", func(path string, memory bool) string {
		if memory {
			return "file::memory:?_pragma=foreign_keys(1)&_txlock=immediate"
		}
		return "file:" + path +
			"?_pragma=journal_mode(WAL)" +
			"&_pragma=busy_timeout(5000)" +
			"&_pragma=foreign_keys(1)" +
			"&_txlock=immediate"
	})
}
