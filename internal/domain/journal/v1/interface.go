package journalv1

import (
	"context"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
)

// TradeJournal is the durable outbox between trade generation and event
// publication. A trade is appended before the publish enqueue and marked
// delivered after it; undelivered trades are replayed on startup, giving
// at-least-once delivery without ever dropping a generated trade.
type TradeJournal interface {
	Append(ctx context.Context, trade *orderv1.Trade) error
	MarkDelivered(ctx context.Context, tradeID string) error
	Pending(ctx context.Context) ([]orderv1.Trade, error)
	Close() error
}
