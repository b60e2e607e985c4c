package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/utafrali/cartsync/pkg/errors"

	"github.com/utafrali/cartsync/internal/domain"
)

// MaxQuantityPerItem caps a single line item's quantity. Values beyond the
// cap are clamped, not rejected.
const MaxQuantityPerItem = 999

// Store owns the canonical in-memory cart for one browsing session and
// reconciles it across consumer commands, the durable local cache and the
// per-identity remote document.
//
// A single mutex serializes consumer commands, remote pushes and identity
// changes; every mutation runs to completion, including its synchronous
// dispatch to the registered sinks, before the next one is applied.
type Store struct {
	sessionID string
	source    RemoteSource
	sinks     []Sink
	logger    *slog.Logger

	mu        sync.Mutex
	cart      domain.Cart
	identity  string
	gen       uint64
	cancelSub func()
	subs      map[int]func(domain.Snapshot)
	nextSub   int
	closed    bool

	notifyQ   []notification
	notifying bool
}

// notification is one queued listener delivery. Deliveries are queued under
// the lock in commit order and drained outside it.
type notification struct {
	fns  []func(domain.Snapshot)
	snap domain.Snapshot
}

// New creates a store seeded with the given cart (typically hydrated from
// the local cache). Sinks are dispatched in the given order on every commit.
func New(sessionID string, seed domain.Cart, source RemoteSource, sinks []Sink, logger *slog.Logger) *Store {
	return &Store{
		sessionID: sessionID,
		source:    source,
		sinks:     sinks,
		logger:    logger,
		cart: domain.Cart{
			Items:     domain.NormalizeItems(seed.Items),
			UpdatedAt: seed.UpdatedAt,
		},
		subs: make(map[int]func(domain.Snapshot)),
	}
}

// SessionID returns the browsing session this store belongs to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Snapshot returns the current immutable view of the cart with derived
// totals. It never reflects a partially-applied merge.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

// Subscribe registers a consumer change listener, invoked with a fresh
// snapshot after every commit, local or remote-driven. Listeners run after
// the commit completes, outside the store's internal lock, so a listener
// may call back into the store, including the returned removal func.
func (s *Store) Subscribe(fn func(domain.Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// AddItem merges the item into the cart: an existing ID has its quantity
// incremented, a new ID is appended. A quantity below 1 normalizes to 1.
func (s *Store) AddItem(ctx context.Context, item domain.LineItem) (domain.Snapshot, error) {
	if item.ID == "" {
		return domain.Snapshot{}, apperrors.InvalidInput("item id is required")
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if item.UnitPrice < 0 {
		return domain.Snapshot{}, apperrors.InvalidInput("unit price must not be negative")
	}

	s.mu.Lock()
	if i := s.cart.FindIndex(item.ID); i >= 0 {
		existing := &s.cart.Items[i]
		existing.Quantity = clampQuantity(existing.Quantity + item.Quantity)
		// Refresh the metadata snapshot in case it changed upstream.
		existing.Name = item.Name
		existing.ImageURL = item.ImageURL
		existing.UnitPrice = item.UnitPrice
		existing.Attributes = item.Attributes
	} else {
		item.Quantity = clampQuantity(item.Quantity)
		s.cart.Items = append(s.cart.Items, item)
	}
	snap := s.commitLocked(ctx, OpAdd, OriginLocal)
	s.mu.Unlock()

	s.drainNotifications()
	return snap, nil
}

// RemoveItem deletes the item with the given ID. A missing ID is a no-op,
// not an error.
func (s *Store) RemoveItem(ctx context.Context, id string) (domain.Snapshot, error) {
	if id == "" {
		return domain.Snapshot{}, apperrors.InvalidInput("item id is required")
	}

	s.mu.Lock()
	i := s.cart.FindIndex(id)
	if i < 0 {
		snap := s.cart.Snapshot()
		s.mu.Unlock()
		return snap, nil
	}
	s.cart.Items = append(s.cart.Items[:i], s.cart.Items[i+1:]...)
	snap := s.commitLocked(ctx, OpRemove, OriginLocal)
	s.mu.Unlock()

	s.drainNotifications()
	return snap, nil
}

// SetQuantity sets the item's quantity to exactly the given value. A value
// of zero or less removes the item; a missing ID is a no-op.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) (domain.Snapshot, error) {
	if id == "" {
		return domain.Snapshot{}, apperrors.InvalidInput("item id is required")
	}

	s.mu.Lock()
	i := s.cart.FindIndex(id)
	if i < 0 {
		snap := s.cart.Snapshot()
		s.mu.Unlock()
		return snap, nil
	}
	op := OpSetQuantity
	if quantity <= 0 {
		s.cart.Items = append(s.cart.Items[:i], s.cart.Items[i+1:]...)
		op = OpRemove
	} else {
		s.cart.Items[i].Quantity = clampQuantity(quantity)
	}
	snap := s.commitLocked(ctx, op, OriginLocal)
	s.mu.Unlock()

	s.drainNotifications()
	return snap, nil
}

// Clear empties the cart. The in-memory collection and the local cache are
// empty before Clear returns; the remote overwrite is enqueued like any
// other write-through.
func (s *Store) Clear(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	s.cart.Items = nil
	snap := s.commitLocked(ctx, OpClear, OriginLocal)
	s.mu.Unlock()

	s.drainNotifications()
	return snap, nil
}

// SetIdentity drives the identity lifecycle. An empty uid is the anonymous
// state: any remote subscription is torn down and the cart, kept as-is,
// continues to persist only to the local cache. A non-empty uid opens a
// push subscription for that identity; the first push received replaces
// whatever was accumulated locally.
func (s *Store) SetIdentity(ctx context.Context, uid string) error {
	s.mu.Lock()
	if s.closed || uid == s.identity {
		s.mu.Unlock()
		return nil
	}
	if s.cancelSub != nil {
		s.cancelSub()
		s.cancelSub = nil
	}
	s.gen++
	gen := s.gen
	s.identity = uid
	s.mu.Unlock()

	if uid == "" || s.source == nil {
		return nil
	}

	cancel, err := s.source.Subscribe(ctx, uid, func(items []domain.LineItem, updatedAt time.Time) {
		s.applyRemote(gen, items, updatedAt)
	})
	if err != nil {
		return fmt.Errorf("subscribe remote cart: %w", err)
	}

	s.mu.Lock()
	if s.gen != gen {
		// Identity changed again while the subscription was being opened.
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancelSub = cancel
	s.mu.Unlock()
	return nil
}

// Identity returns the identity the store is currently bound to, or "".
func (s *Store) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Close tears down the remote subscription. Further remote deliveries are
// discarded; the cart and its cached snapshot are left in place.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.cancelSub != nil {
		s.cancelSub()
		s.cancelSub = nil
	}
}

// applyRemote merges a remote push: the pushed collection replaces the
// in-memory one wholesale (last writer wins at document granularity).
// Pushes from a superseded subscription are discarded.
func (s *Store) applyRemote(gen uint64, items []domain.LineItem, updatedAt time.Time) {
	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		s.logger.Debug("discarding stale remote cart push",
			slog.String("session_id", s.sessionID),
		)
		return
	}

	s.cart.Items = domain.NormalizeItems(items)
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	s.cart.UpdatedAt = updatedAt

	s.commitLocked(context.Background(), OpMerge, OriginRemote)
	s.mu.Unlock()

	s.drainNotifications()
}

// commitLocked stamps the cart, dispatches the commit to every sink in
// order, then queues the consumer listener delivery. Callers must hold
// s.mu and call drainNotifications after releasing it.
func (s *Store) commitLocked(ctx context.Context, op Op, origin Origin) domain.Snapshot {
	if origin == OriginLocal {
		s.cart.UpdatedAt = time.Now().UTC()
	}
	snap := s.cart.Snapshot()
	c := Commit{
		SessionID: s.sessionID,
		Identity:  s.identity,
		Origin:    origin,
		Op:        op,
		Snapshot:  snap,
	}
	for _, sink := range s.sinks {
		sink.CartChanged(ctx, c)
	}
	if len(s.subs) > 0 {
		fns := make([]func(domain.Snapshot), 0, len(s.subs))
		for _, fn := range s.subs {
			fns = append(fns, fn)
		}
		s.notifyQ = append(s.notifyQ, notification{fns: fns, snap: snap})
	}
	return snap
}

// drainNotifications delivers queued listener notifications in commit order
// without holding the lock. A single drainer runs at a time; a commit made
// by a listener is delivered by the drainer already running.
func (s *Store) drainNotifications() {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true
	for len(s.notifyQ) > 0 {
		n := s.notifyQ[0]
		s.notifyQ = s.notifyQ[1:]
		s.mu.Unlock()
		for _, fn := range n.fns {
			fn(n.snap)
		}
		s.mu.Lock()
	}
	s.notifying = false
	s.mu.Unlock()
}

func clampQuantity(q int) int {
	if q > MaxQuantityPerItem {
		return MaxQuantityPerItem
	}
	return q
}
