package batch

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// WriteFunc performs database writes inside a transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// Writer buffers write operations and commits them in batches, one
// transaction per batch, on a single background goroutine.
type Writer struct {
	db       *sql.DB
	size     int
	mu       sync.Mutex
	buf      []WriteFunc
	closed   bool
	commitCh chan []WriteFunc
	stop     chan struct{}
	wg       sync.WaitGroup

	errMu   sync.Mutex
	lastErr error
	// OnError is called for every failed batch. May be nil.
	OnError func(error)
}

// NewWriter creates a Writer that flushes every size submissions and, when
// interval is positive, at least that often.
func NewWriter(db *sql.DB, size int, interval time.Duration) *Writer {
	if size <= 0 {
		size = 10
	}
	w := &Writer{
		db:       db,
		size:     size,
		buf:      make([]WriteFunc, 0, size),
		commitCh: make(chan []WriteFunc, 2),
		stop:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.committer()
	if interval > 0 {
		w.wg.Add(1)
		go w.ticker(interval)
	}
	return w
}

// Submit enqueues a write. Blocks while the committer is two batches behind.
func (w *Writer) Submit(fn WriteFunc) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	w.buf = append(w.buf, fn)
	if len(w.buf) >= w.size {
		w.flushLocked()
	}
	return nil
}

// flushLocked assumes w.mu is held.
func (w *Writer) flushLocked() {
	if len(w.buf) == 0 {
		return
	}
	batch := w.buf
	w.buf = make([]WriteFunc, 0, w.size)
	w.commitCh <- batch
}

func (w *Writer) ticker(interval time.Duration) {
	defer w.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-t.C:
			w.mu.Lock()
			if !w.closed {
				w.flushLocked()
			}
			w.mu.Unlock()
		}
	}
}

func (w *Writer) committer() {
	defer w.wg.Done()
	for batch := range w.commitCh {
		if err := w.execute(batch); err != nil {
			w.errMu.Lock()
			if w.lastErr == nil {
				w.lastErr = err
			}
			w.errMu.Unlock()
			if w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}

func (w *Writer) execute(batch []WriteFunc) error {
	// Flushing uses a fresh context so a shutdown does not abort pending commits.
	ctx := context.Background()

	// Without a DB the callbacks run with a nil tx, which keeps tests simple.
	if w.db == nil {
		for _, fn := range batch {
			if err := fn(ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, fn := range batch {
		if err := fn(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch (%d items): %w", len(batch), err)
	}
	return nil
}

// Close flushes pending writes, waits for them to commit and returns the
// first error seen by the committer.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.closed = true
	w.flushLocked()
	w.mu.Unlock()

	close(w.stop)
	close(w.commitCh)
	w.wg.Wait()

	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.lastErr
}

// ErrWriterClosed is returned by Submit and Close after Close.
var ErrWriterClosed = &WriterError{"batch writer closed"}

// WriterError is a typed error for Writer operations.
type WriterError struct{ msg string }

func (e *WriterError) Error() string { return e.msg }
