// Package reader produces documents for bulk indexing.
package reader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ftsq/internal/lookup"
	"github.com/roach88/ftsq/internal/schema"
)

// Field names of documents produced by FileSystem.
const (
	FilenameField = "filename"
	TextField     = "text"
)

// Reader yields documents. fn is called from a single goroutine; returning
// an error from it stops the read.
type Reader interface {
	Read(ctx context.Context, fn func(lookup.Lookups) error) error
}

// Schema returns the schema FileSystem documents fit: a unique file name
// and the searchable file body.
func Schema(name string) (*schema.Schema, error) {
	return schema.New(name, []schema.Field{
		schema.Text(FilenameField).Unique(),
		schema.Text(TextField).Searchable(),
	})
}

// FileSystem reads every matching file below Root.
type FileSystem struct {
	Root string

	// Extensions filters files by suffix (".txt", ".md"). Empty reads
	// every regular file.
	Extensions []string

	// Workers bounds concurrent file reads. Zero means GOMAXPROCS.
	Workers int

	Logger *slog.Logger
}

var _ Reader = (*FileSystem)(nil)

// Read walks Root and calls fn with {"filename": path, "text": body} for
// each file. Files that are not valid UTF-8 are skipped.
func (r *FileSystem) Read(ctx context.Context, fn func(lookup.Lookups) error) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := r.paths()
	if err != nil {
		return err
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v any) {
		logger.Error("reader worker panic", "panic", v)
	}))
	if err != nil {
		return fmt.Errorf("create reader pool: %w", err)
	}
	defer pool.Release()

	g, gctx := errgroup.WithContext(ctx)
	docs := make(chan lookup.Lookups, workers)

	g.Go(func() error {
		defer close(docs)

		var (
			wg       sync.WaitGroup
			once     sync.Once
			firstErr error
		)
		fail := func(err error) { once.Do(func() { firstErr = err }) }

		for _, path := range paths {
			if gctx.Err() != nil {
				break
			}
			wg.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				body, err := os.ReadFile(path)
				if err != nil {
					fail(fmt.Errorf("read %s: %w", path, err))
					return
				}
				if !utf8.Valid(body) {
					logger.Warn("skipping file that is not valid UTF-8", "path", path)
					return
				}
				select {
				case docs <- lookup.Lookups{FilenameField: path, TextField: string(body)}:
				case <-gctx.Done():
				}
			})
			if err != nil {
				wg.Done()
				fail(fmt.Errorf("submit %s: %w", path, err))
				break
			}
		}
		wg.Wait()
		return firstErr
	})

	g.Go(func() error {
		for doc := range docs {
			if err := fn(doc); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Debug("files read", "root", r.Root, "files", len(paths))
	return nil
}

func (r *FileSystem) paths() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(r.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !r.matches(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", r.Root, err)
	}
	return paths, nil
}

func (r *FileSystem) matches(path string) bool {
	if len(r.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range r.Extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
