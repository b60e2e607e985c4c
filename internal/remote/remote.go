package remote

import (
	"context"
	"time"

	"github.com/utafrali/cartsync/internal/domain"
)

// Source is the per-identity remote cart document.
type Source interface {
	// Subscribe opens a push subscription for the identity's document.
	// onChange is invoked for the initial read and for every subsequent
	// change; a missing document is delivered as an empty collection.
	// onChange must never be invoked synchronously from Subscribe itself.
	// The returned cancel func tears the subscription down; deliveries that
	// race with cancellation are the caller's responsibility to discard.
	Subscribe(ctx context.Context, identity string, onChange func(items []domain.LineItem, updatedAt time.Time)) (cancel func(), err error)

	// Write replaces the identity's document with the given item collection.
	Write(ctx context.Context, identity string, items []domain.LineItem, updatedAt time.Time) error
}
