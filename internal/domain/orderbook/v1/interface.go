package orderbookv1

import (
	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	snapshotv1 "github.com/quantfex/matching-engine/internal/domain/snapshot/v1"
	"github.com/quantfex/matching-engine/pkg/errors"
)

// LevelSummary is one aggregated price level for depth snapshots.
type LevelSummary struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	Orders int     `json:"orders"`
}

// Depth is an aggregated view of the top of the book.
type Depth struct {
	Bids []LevelSummary `json:"bids"`
	Asks []LevelSummary `json:"asks"`
}

// Book is the per-symbol limit order book owned by exactly one matching
// lane. Matching is invoked only by the lane, never externally.
type Book interface {
	Insert(order *orderv1.Order) error
	Cancel(orderID string) (*orderv1.Order, error)
	Match(incoming *orderv1.Order) []orderv1.Fill
	FillableQuantity(incoming *orderv1.Order) float64
	BestBid() (float64, bool)
	BestAsk() (float64, bool)
	Depth(maxLevels int) Depth
	RestingOrders() int
	Snapshot() *snapshotv1.Snapshot
	Restore(snapshot *snapshotv1.Snapshot) error
	Validate() error
}

func errInconsistentIndex(side orderv1.Side, prev, next float64) error {
	return errors.Newf(errors.CodeInternalInconsistency,
		"%s price index out of order: %f before %f", side, prev, next)
}
