package snapshotv1

import orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"

// BookOrder is one resting order as persisted in a snapshot.
type BookOrder struct {
	OrderID   string       `json:"orderID"`
	AccountID string       `json:"accountID"`
	Side      orderv1.Side `json:"side"`
	Price     float64      `json:"price"`
	Quantity  float64      `json:"quantity"`
	Remaining float64      `json:"remaining"`
	Timestamp int64        `json:"timestamp"`
	Sequence  int64        `json:"sequence"`
}

// Snapshot is a consistent copy of one symbol's book, sufficient to rebuild
// the resting state in original sequence order.
type Snapshot struct {
	Symbol    string      `json:"symbol"`
	Sequence  int64       `json:"sequence"` // lane sequence at capture time
	Orders    []BookOrder `json:"orders"`
	CreatedAt int64       `json:"createdAt"`
}
