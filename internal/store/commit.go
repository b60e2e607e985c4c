package store

import (
	"context"
	"time"

	"github.com/utafrali/cartsync/internal/domain"
)

// Origin tells a sink which side of the reconciliation produced a commit.
type Origin string

const (
	// OriginLocal marks commits produced by consumer commands.
	OriginLocal Origin = "local"
	// OriginRemote marks commits produced by a remote push merge.
	OriginRemote Origin = "remote"
)

// Op is the mutation that produced a commit.
type Op string

const (
	OpAdd         Op = "item_added"
	OpRemove      Op = "item_removed"
	OpSetQuantity Op = "quantity_set"
	OpClear       Op = "cleared"
	OpMerge       Op = "remote_merge"
)

// Commit is one committed cart change, dispatched to every registered sink
// in registration order before the mutation returns to the caller.
type Commit struct {
	SessionID string
	Identity  string
	Origin    Origin
	Op        Op
	Snapshot  domain.Snapshot
}

// Sink receives committed cart changes. The local-cache writer, the remote
// writer and the event producer are all independent sinks; a sink must not
// call back into the store that dispatched to it.
type Sink interface {
	CartChanged(ctx context.Context, c Commit)
}

// RemoteSource is the push side of the remote cart store, consumed by the
// store's identity lifecycle.
type RemoteSource interface {
	Subscribe(ctx context.Context, identity string, onChange func(items []domain.LineItem, updatedAt time.Time)) (cancel func(), err error)
}

// CacheLoader hydrates a session's cart from the durable local cache.
type CacheLoader interface {
	Load(ctx context.Context, sessionID string) (domain.Cart, error)
}
