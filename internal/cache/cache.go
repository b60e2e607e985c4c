package cache

import (
	"context"
	"log/slog"

	"github.com/utafrali/cartsync/internal/domain"
	"github.com/utafrali/cartsync/internal/store"
)

// CartCache is the durable local cache: one serialized cart snapshot per
// browsing session under a fixed key.
type CartCache interface {
	// Load returns the last persisted cart for the session. A missing key
	// or a value that fails to parse both load as an empty cart; only an
	// unreachable cache is an error.
	Load(ctx context.Context, sessionID string) (domain.Cart, error)

	// Save overwrites the session's snapshot.
	Save(ctx context.Context, sessionID string, snap domain.Snapshot) error

	// Delete removes the session's snapshot.
	Delete(ctx context.Context, sessionID string) error
}

// Writer persists every committed cart change to the local cache. It is
// registered as the first sink so the snapshot is durable before the
// mutation returns to the caller.
type Writer struct {
	cache  CartCache
	logger *slog.Logger
}

// NewWriter creates the cache write-through sink.
func NewWriter(cache CartCache, logger *slog.Logger) *Writer {
	return &Writer{cache: cache, logger: logger}
}

// CartChanged implements store.Sink. A clear removes the cached snapshot
// outright; every other commit overwrites it.
func (w *Writer) CartChanged(ctx context.Context, c store.Commit) {
	if c.Op == store.OpClear {
		if err := w.cache.Delete(ctx, c.SessionID); err != nil {
			w.logger.WarnContext(ctx, "cart cache delete failed",
				slog.String("session_id", c.SessionID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if err := w.cache.Save(ctx, c.SessionID, c.Snapshot); err != nil {
		// The in-memory cart stays authoritative for the session; the next
		// commit overwrites the full snapshot anyway.
		w.logger.WarnContext(ctx, "cart cache write failed",
			slog.String("session_id", c.SessionID),
			slog.String("error", err.Error()),
		)
	}
}
