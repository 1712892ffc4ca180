package eventv1

import (
	"context"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	orderbookv1 "github.com/quantfex/matching-engine/internal/domain/orderbook/v1"
)

// Kind discriminates outbound event payloads on the wire.
type Kind string

const (
	// KindTradeExecuted is emitted once per executed trade.
	KindTradeExecuted Kind = "trade_executed"
	// KindOrderBookUpdated is emitted after a matching pass changed the book.
	KindOrderBookUpdated Kind = "orderbook_updated"
	// KindOrderRejected is emitted when an admitted-to-queue order is
	// rejected inside the lane (risk, duplicate, fill-or-kill shortfall).
	KindOrderRejected Kind = "order_rejected"
)

// TradeExecuted notifies external consumers of one trade.
type TradeExecuted struct {
	Trade orderv1.Trade `json:"trade"`
}

// OrderBookUpdated carries the top of book after a mutation.
type OrderBookUpdated struct {
	Symbol   string           `json:"symbol"`
	BestBid  float64          `json:"bestBid"` // zero when the side is empty
	BestAsk  float64          `json:"bestAsk"`
	Depth    orderbookv1.Depth `json:"depth"`
	Sequence int64            `json:"sequence"`
}

// OrderRejected reports an in-lane rejection back to external consumers.
type OrderRejected struct {
	OrderID   string `json:"orderID"`
	AccountID string `json:"accountID"`
	Symbol    string `json:"symbol"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// Envelope is the wire frame for all outbound events.
type Envelope struct {
	Kind      Kind              `json:"kind"`
	Symbol    string            `json:"symbol"`
	Trade     *TradeExecuted    `json:"trade,omitempty"`
	Book      *OrderBookUpdated `json:"book,omitempty"`
	Rejection *OrderRejected    `json:"rejection,omitempty"`
}

// Publisher is the outbound contract: the core's obligation ends at the
// enqueue call. Delivery is at-least-once; slow consumers are the
// publisher's problem, not the matching lane's.
type Publisher interface {
	PublishTrade(ctx context.Context, event *TradeExecuted) error
	PublishBookUpdate(ctx context.Context, event *OrderBookUpdated) error
	PublishRejection(ctx context.Context, event *OrderRejected) error
}
