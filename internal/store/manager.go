package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/utafrali/cartsync/pkg/errors"
)

// SinkFactory builds the sink chain for a new session store. The returned
// closer, if non-nil, is called when the store is evicted (it should drain
// anything the sinks still have in flight, such as the remote write queue).
type SinkFactory func(sessionID string) (sinks []Sink, closer func())

// ManagerConfig holds the dependencies for a session-store manager.
type ManagerConfig struct {
	Cache   CacheLoader
	Source  RemoteSource // nil disables remote synchronization
	Sinks   SinkFactory
	Logger  *slog.Logger
	IdleTTL time.Duration
}

// Manager owns one Store per browsing session, hydrating it from the local
// cache on first use and evicting it (subscription torn down, write queue
// drained) after the idle TTL.
type Manager struct {
	cfg ManagerConfig

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	stop chan struct{}
	done chan struct{}
}

type entry struct {
	store    *Store
	closer   func()
	lastUsed time.Time
}

// NewManager creates a manager and starts its idle-eviction loop.
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		cfg:     cfg,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.evictLoop()
	return m
}

// Session returns the store for the given session, creating and hydrating
// it from the local cache if needed. A corrupt cached snapshot hydrates as
// an empty cart; only an unreachable cache is an error.
func (m *Manager) Session(ctx context.Context, sessionID string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("session manager is closed")
	}
	if e, ok := m.entries[sessionID]; ok {
		e.lastUsed = time.Now()
		return e.store, nil
	}

	seed, err := m.cfg.Cache.Load(ctx, sessionID)
	if err != nil {
		m.cfg.Logger.Error("cart hydration failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Unavailable("cart store unreachable")
	}

	sinks, closer := m.cfg.Sinks(sessionID)
	st := New(sessionID, seed, m.cfg.Source, sinks, m.cfg.Logger)
	m.entries[sessionID] = &entry{
		store:    st,
		closer:   closer,
		lastUsed: time.Now(),
	}

	m.cfg.Logger.Debug("session store created",
		slog.String("session_id", sessionID),
		slog.Int("seed_items", len(seed.Items)),
	)
	return st, nil
}

// Len reports the number of live session stores.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close evicts every session store and stops the eviction loop.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	evicted := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		evicted = append(evicted, e)
	}
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	close(m.stop)
	<-m.done

	for _, e := range evicted {
		closeEntry(e)
	}
}

func (m *Manager) evictLoop() {
	defer close(m.done)

	ttl := m.cfg.IdleTTL
	if ttl <= 0 {
		<-m.stop
		return
	}

	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.evictIdle(now, ttl)
		}
	}
}

func (m *Manager) evictIdle(now time.Time, ttl time.Duration) {
	m.mu.Lock()
	var evicted []*entry
	for id, e := range m.entries {
		if now.Sub(e.lastUsed) >= ttl {
			evicted = append(evicted, e)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for _, e := range evicted {
		closeEntry(e)
		m.cfg.Logger.Debug("idle session store evicted",
			slog.String("session_id", e.store.SessionID()),
		)
	}
}

func closeEntry(e *entry) {
	e.store.Close()
	if e.closer != nil {
		e.closer()
	}
}
