package remote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/cartsync/internal/domain"
	"github.com/utafrali/cartsync/internal/store"
)

const writeTimeout = 10 * time.Second

// Writer is the remote write-through sink for one session store. Outgoing
// writes are serialized with exactly one in flight; queued snapshots
// coalesce to the latest committed one, so the remote document always
// converges to the newest local state and writes are never reordered.
//
// A failed write is a non-fatal notice: the snapshot is dropped and the
// next committed mutation enqueues a fresh full overwrite.
type Writer struct {
	source Source
	logger *slog.Logger

	mu      sync.Mutex
	pending *pendingWrite
	closed  bool

	wake chan struct{}
	done chan struct{}
}

type pendingWrite struct {
	identity  string
	items     []domain.LineItem
	updatedAt time.Time
}

// NewWriter creates the sink and starts its single-flight worker.
func NewWriter(source Source, logger *slog.Logger) *Writer {
	w := &Writer{
		source: source,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// CartChanged implements store.Sink. Remote-origin commits are not echoed
// back, and anonymous commits stay local.
func (w *Writer) CartChanged(ctx context.Context, c store.Commit) {
	if c.Origin == store.OriginRemote || c.Identity == "" {
		return
	}
	w.enqueue(c.Identity, c.Snapshot.Items, c.Snapshot.UpdatedAt)
}

func (w *Writer) enqueue(identity string, items []domain.LineItem, updatedAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending = &pendingWrite{
		identity:  identity,
		items:     domain.CopyItems(items),
		updatedAt: updatedAt,
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Close stops the worker after any in-flight write completes. A snapshot
// that was still queued is dropped.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.wake)
	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)

	for range w.wake {
		for {
			w.mu.Lock()
			p := w.pending
			w.pending = nil
			w.mu.Unlock()
			if p == nil {
				break
			}

			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := w.source.Write(ctx, p.identity, p.items, p.updatedAt)
			cancel()
			if err != nil {
				w.logger.Warn("remote cart write failed",
					slog.String("identity", p.identity),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
