package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cenkalti/backoff/v5"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/utafrali/cartsync/internal/domain"
)

// Config holds the Firestore connection settings.
type Config struct {
	ProjectID       string
	CredentialsFile string // empty uses Application Default Credentials
	Collection      string
}

// RemoteStore implements remote.Source against Firestore.
//
// Collection design:
//   - collection: carts (configurable)
//   - docId: identity (uid is the source of truth)
//   - fields: items (array), updatedAt
//
// Write replaces the whole document; Subscribe is a document snapshot
// listener, so remote changes arrive as pushes, not polls.
type RemoteStore struct {
	client *firestore.Client
	col    string
	logger *slog.Logger
}

// New connects a Firestore-backed remote cart store.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*RemoteStore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore: project id is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "carts"
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	return &RemoteStore{
		client: client,
		col:    cfg.Collection,
		logger: logger,
	}, nil
}

// Close releases the underlying client.
func (r *RemoteStore) Close() error {
	return r.client.Close()
}

func (r *RemoteStore) doc(identity string) *firestore.DocumentRef {
	return r.client.Collection(r.col).Doc(identity)
}

// Write replaces the identity's cart document wholesale.
func (r *RemoteStore) Write(ctx context.Context, identity string, items []domain.LineItem, updatedAt time.Time) error {
	if identity == "" {
		return errors.New("firestore: identity is required")
	}
	if _, err := r.doc(identity).Set(ctx, docFromItems(items, updatedAt)); err != nil {
		return fmt.Errorf("set cart document: %w", err)
	}
	return nil
}

// Subscribe opens a snapshot listener on the identity's document. onChange
// fires for the initial read and every change; a missing document delivers
// an empty collection. The listen is re-established with exponential
// backoff if it drops. Cancel stops the listener; in-flight deliveries may
// still race with cancellation and must be discarded by the caller.
func (r *RemoteStore) Subscribe(ctx context.Context, identity string, onChange func(items []domain.LineItem, updatedAt time.Time)) (func(), error) {
	if identity == "" {
		return nil, errors.New("firestore: identity is required")
	}

	// The listener outlives the request that opened it; only cancel (or a
	// closed client) ends it.
	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go r.listen(listenCtx, identity, onChange)
	return cancel, nil
}

func (r *RemoteStore) listen(ctx context.Context, identity string, onChange func(items []domain.LineItem, updatedAt time.Time)) {
	ref := r.doc(identity)
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second

	for {
		it := ref.Snapshots(ctx)
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					r.logger.Warn("cart listen interrupted",
						slog.String("identity", identity),
						slog.String("error", err.Error()),
					)
				}
				break
			}
			bo.Reset()
			r.deliver(snap, identity, onChange)
		}
		it.Stop()

		if ctx.Err() != nil {
			return
		}
		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			return
		}
	}
}

func (r *RemoteStore) deliver(snap *firestore.DocumentSnapshot, identity string, onChange func(items []domain.LineItem, updatedAt time.Time)) {
	if !snap.Exists() {
		onChange(nil, time.Time{})
		return
	}

	var doc cartDoc
	if err := snap.DataTo(&doc); err != nil {
		// A document that no longer matches the expected shape must not
		// clobber the local cart; skip the push.
		r.logger.Warn("skipping unparseable cart document",
			slog.String("identity", identity),
			slog.String("error", err.Error()),
		)
		return
	}

	onChange(doc.items(), doc.UpdatedAt)
}

// ---------------------------------------------------------------------------
// Firestore DTO
// ---------------------------------------------------------------------------

type cartDoc struct {
	Items     []itemDoc `firestore:"items"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type itemDoc struct {
	ID         string            `firestore:"id"`
	Name       string            `firestore:"name"`
	ImageURL   string            `firestore:"imageUrl"`
	UnitPrice  int64             `firestore:"unitPrice"`
	Quantity   int               `firestore:"qty"`
	Attributes map[string]string `firestore:"attributes"`
}

func docFromItems(items []domain.LineItem, updatedAt time.Time) cartDoc {
	out := make([]itemDoc, 0, len(items))
	for _, item := range items {
		if item.ID == "" || item.Quantity <= 0 {
			continue
		}
		out = append(out, itemDoc{
			ID:         item.ID,
			Name:       item.Name,
			ImageURL:   item.ImageURL,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			Attributes: item.Attributes,
		})
	}
	return cartDoc{Items: out, UpdatedAt: updatedAt}
}

func (d cartDoc) items() []domain.LineItem {
	out := make([]domain.LineItem, 0, len(d.Items))
	for _, item := range d.Items {
		out = append(out, domain.LineItem{
			ID:         item.ID,
			Name:       item.Name,
			ImageURL:   item.ImageURL,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			Attributes: item.Attributes,
		})
	}
	return out
}
