package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/utafrali/cartsync/internal/domain"
	"github.com/utafrali/cartsync/internal/store"
	pkgkafka "github.com/utafrali/cartsync/pkg/kafka"
	"github.com/utafrali/cartsync/pkg/logger"
)

// Kafka topic constants for cart change notices.
const (
	TopicCartUpdated = "storefront.cart.updated"
	TopicCartCleared = "storefront.cart.cleared"
	TopicCartSynced  = "storefront.cart.synced"
)

// Aggregate type constant.
const AggregateTypeCart = "cart"

// Source identifier for events originating from this service.
const SourceCartSync = "cartsync"

// CartChangedData is the payload for every cart topic.
type CartChangedData struct {
	SessionID string            `json:"session_id"`
	Identity  string            `json:"identity,omitempty"`
	Origin    string            `json:"origin"`
	Op        string            `json:"op"`
	Items     []domain.LineItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  int64             `json:"subtotal"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Producer publishes cart change notices to Kafka. It is registered as a
// store sink; publish failures are notices, never surfaced to the mutation.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates the event sink.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// topicFor maps a commit op to its Kafka topic.
func topicFor(op store.Op) string {
	switch op {
	case store.OpClear:
		return TopicCartCleared
	case store.OpMerge:
		return TopicCartSynced
	default:
		return TopicCartUpdated
	}
}

// CartChanged implements store.Sink.
func (p *Producer) CartChanged(ctx context.Context, c store.Commit) {
	topic := topicFor(c.Op)

	data := CartChangedData{
		SessionID: c.SessionID,
		Identity:  c.Identity,
		Origin:    string(c.Origin),
		Op:        string(c.Op),
		Items:     c.Snapshot.Items,
		ItemCount: c.Snapshot.ItemCount,
		Subtotal:  c.Snapshot.Subtotal,
		UpdatedAt: c.Snapshot.UpdatedAt,
	}

	key := c.Identity
	if key == "" {
		key = c.SessionID
	}

	event, err := pkgkafka.NewEvent(topic, key, AggregateTypeCart, SourceCartSync, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build cart event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish cart event",
			slog.String("topic", topic),
			slog.String("session_id", c.SessionID),
			slog.String("error", err.Error()),
		)
		return
	}

	p.logger.DebugContext(ctx, "published cart event",
		slog.String("topic", topic),
		slog.String("session_id", c.SessionID),
		slog.Int("item_count", c.Snapshot.ItemCount),
	)
}
