package batch

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/japaniel/jplevel/pkg/db"
	"github.com/japaniel/jplevel/pkg/level"
	"github.com/japaniel/jplevel/pkg/source"
)

// Item is the outcome for one input file.
type Item struct {
	Path       string
	Doc        source.Document
	Result     level.Result
	AnalysisID int64 // zero when results are not persisted
	Err        error // read or extraction failure for this file only
}

// Runner analyses many files concurrently and optionally stores the results.
type Runner struct {
	Analyzer *level.Analyzer
	// DB receives one source and analysis row per file. nil disables persistence.
	DB        *sql.DB
	Workers   int
	BatchSize int
	// Logger is used for per-file warnings. nil means no logging.
	Logger *log.Logger
	// OnProgress is called after each file with the number done and the total.
	OnProgress func(done, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) Pool
}

// NewRunner creates a Runner with default settings.
func NewRunner(a *level.Analyzer, conn *sql.DB) *Runner {
	return &Runner{
		Analyzer:  a,
		DB:        conn,
		Workers:   4,
		BatchSize: 20,
	}
}

// Extensions of files picked up by Collect.
var Extensions = []string{".txt", ".html", ".htm"}

// Collect returns the analysable files directly inside dir, sorted by name.
func Collect(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range Extensions {
			if ext == want {
				out = append(out, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Run analyses every path. Items come back in the order of paths. A file that
// cannot be read only fails its own Item; a database failure or context
// cancellation is returned as the error.
func (r *Runner) Run(ctx context.Context, paths []string) ([]Item, error) {
	items := make([]Item, len(paths))
	if len(paths) == 0 {
		return items, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var pool Pool
	if r.PoolFactory != nil {
		pool = r.PoolFactory(r.Workers, r.Workers*2)
	} else {
		pool = NewWorkerPool(r.Workers, r.Workers*2)
	}

	var writer *Writer
	var writeErr error
	var writeErrMu sync.Mutex
	if r.DB != nil {
		writer = NewWriter(r.DB, r.BatchSize, 100*time.Millisecond)
		writer.OnError = func(err error) {
			writeErrMu.Lock()
			if writeErr == nil {
				writeErr = err
			}
			writeErrMu.Unlock()
			// Stop analysing once results can no longer be stored.
			cancel()
		}
	}

	var done int64
	total := len(paths)
	pool.Start(ctx)

	var submitErr error
	for i, path := range paths {
		idx, p := i, path
		job := func(ctx context.Context) error {
			item := r.analyze(p)
			items[idx] = item
			if writer != nil && item.Err == nil {
				if err := writer.Submit(r.persist(items, idx)); err != nil {
					return err
				}
			}
			n := atomic.AddInt64(&done, 1)
			if r.OnProgress != nil {
				r.OnProgress(int(n), total)
			}
			return nil
		}
		if err := pool.SubmitCtx(ctx, job); err != nil {
			submitErr = err
			break
		}
	}

	pool.Close()
	if writer != nil {
		if err := writer.Close(); err != nil && submitErr == nil {
			submitErr = err
		}
	}

	writeErrMu.Lock()
	defer writeErrMu.Unlock()
	if writeErr != nil {
		return items, writeErr
	}
	if submitErr == nil {
		submitErr = ctx.Err()
	}
	return items, submitErr
}

func (r *Runner) analyze(path string) Item {
	doc, err := source.FromFile(path)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Printf("Warning: skipping %s: %v", path, err)
		}
		return Item{Path: path, Err: err}
	}
	return Item{Path: path, Doc: doc, Result: r.Analyzer.Analyze(doc.Text)}
}

// persist records items[idx] and stores the new analysis id back into it.
func (r *Runner) persist(items []Item, idx int) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		it := items[idx]
		sourceID, err := db.CreateOrGetSource(tx, it.Doc.Kind, it.Doc.Title, it.Doc.Location)
		if err != nil {
			return fmt.Errorf("failed to persist source %s: %w", it.Path, err)
		}
		id, err := db.SaveAnalysis(tx, sourceID, it.Result, len([]rune(it.Doc.Text)))
		if err != nil {
			return fmt.Errorf("failed to persist analysis %s: %w", it.Path, err)
		}
		items[idx].AnalysisID = id
		return nil
	}
}
