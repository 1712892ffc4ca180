package orderbook

import (
	"container/list"
	"sort"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	orderbookv1 "github.com/quantfex/matching-engine/internal/domain/orderbook/v1"
	snapshotv1 "github.com/quantfex/matching-engine/internal/domain/snapshot/v1"
	"github.com/quantfex/matching-engine/pkg/errors"
)

// entry locates a resting order for O(1) cancellation.
type entry struct {
	order *orderv1.Order
	elem  *list.Element
	level *orderbookv1.PriceLevel
}

// Orderbook is one symbol's limit order book. It is owned and mutated by
// exactly one matching lane, so it carries no locks; serialization is the
// lane's job.
type Orderbook struct {
	symbol string
	bids   *orderbookv1.Ledger
	asks   *orderbookv1.Ledger
	index  map[string]*entry // orderID -> location
}

// NewOrderbook creates an empty book for the symbol.
func NewOrderbook(symbol string) *Orderbook {
	return &Orderbook{
		symbol: symbol,
		bids:   orderbookv1.NewLedger(orderv1.SideBuy),
		asks:   orderbookv1.NewLedger(orderv1.SideSell),
		index:  make(map[string]*entry),
	}
}

// Symbol returns the symbol this book trades.
func (ob *Orderbook) Symbol() string {
	return ob.symbol
}

// Contains reports whether an order id is resting on the book.
func (ob *Orderbook) Contains(orderID string) bool {
	_, ok := ob.index[orderID]
	return ok
}

// Insert places a resting order at the tail of its price level's FIFO
// queue, creating the level if absent.
func (ob *Orderbook) Insert(order *orderv1.Order) error {
	if order == nil {
		return errors.New(errors.CodeInvalidOrder, "order is nil")
	}
	if order.ID == "" {
		return errors.New(errors.CodeInvalidOrder, "order id is empty")
	}
	if order.Price <= 0 {
		return errors.Newf(errors.CodeInvalidOrder, "resting price must be positive, got %f", order.Price)
	}
	if _, exists := ob.index[order.ID]; exists {
		return errors.Newf(errors.CodeDuplicateOrderID, "order %s already resting", order.ID)
	}

	ledger := ob.ledgerFor(order.Side)
	level := ledger.Level(order.Price)
	elem, err := level.Append(order)
	if err != nil {
		ledger.Prune(order.Price)
		return err
	}

	ob.index[order.ID] = &entry{order: order, elem: elem, level: level}
	return nil
}

// Cancel removes an order via the order-id index in O(1), pruning its level
// when it becomes empty. The returned order carries StatusCanceled.
func (ob *Orderbook) Cancel(orderID string) (*orderv1.Order, error) {
	ent, ok := ob.index[orderID]
	if !ok {
		return nil, errors.Newf(errors.CodeOrderNotFound, "order %s not resting", orderID)
	}

	order := ent.level.Remove(ent.elem)
	ob.ledgerFor(order.Side).Prune(ent.level.Price)
	delete(ob.index, orderID)

	order.Status = orderv1.StatusCanceled
	return order, nil
}

// Match executes the incoming order against the opposite side under strict
// price-time priority: while the best opposite price satisfies the incoming
// limit (or the order is a market order), the head of that level is filled
// for min(remaining quantities). Trades always price at the resting order.
// The caller handles the unmatched remainder per time-in-force.
func (ob *Orderbook) Match(incoming *orderv1.Order) []orderv1.Fill {
	var fills []orderv1.Fill
	opposite := ob.ledgerFor(incoming.Side.Opposite())

	for incoming.Remaining > 0 {
		best := opposite.Best()
		if best == nil || !incoming.Crosses(best.Price) {
			break
		}

		maker := best.Head()
		quantity := incoming.Remaining
		if maker.Remaining < quantity {
			quantity = maker.Remaining
		}

		maker.Fill(quantity)
		incoming.Fill(quantity)
		best.ReduceHead(quantity)

		if maker.IsFilled() {
			delete(ob.index, maker.ID)
		}
		if best.IsEmpty() {
			opposite.Prune(best.Price)
		}

		fills = append(fills, orderv1.Fill{
			Maker:    maker,
			Taker:    incoming,
			Price:    best.Price,
			Quantity: quantity,
		})
	}

	return fills
}

// FillableQuantity walks the opposite side read-only and returns how much
// of the incoming order could execute right now. Used for the fill-or-kill
// trial phase so a shortfall leaves the book untouched.
func (ob *Orderbook) FillableQuantity(incoming *orderv1.Order) float64 {
	opposite := ob.ledgerFor(incoming.Side.Opposite())

	fillable := 0.0
	opposite.Walk(func(level *orderbookv1.PriceLevel) bool {
		if !incoming.Crosses(level.Price) {
			return false
		}
		fillable += level.TotalVolume
		return fillable < incoming.Remaining
	})

	if fillable > incoming.Remaining {
		return incoming.Remaining
	}
	return fillable
}

// BestBid returns the highest bid price, if any.
func (ob *Orderbook) BestBid() (float64, bool) {
	if best := ob.bids.Best(); best != nil {
		return best.Price, true
	}
	return 0, false
}

// BestAsk returns the lowest ask price, if any.
func (ob *Orderbook) BestAsk() (float64, bool) {
	if best := ob.asks.Best(); best != nil {
		return best.Price, true
	}
	return 0, false
}

// Depth aggregates up to maxLevels levels per side, best-first.
func (ob *Orderbook) Depth(maxLevels int) orderbookv1.Depth {
	return orderbookv1.Depth{
		Bids: summarize(ob.bids, maxLevels),
		Asks: summarize(ob.asks, maxLevels),
	}
}

// RestingOrders returns the number of orders on the book.
func (ob *Orderbook) RestingOrders() int {
	return len(ob.index)
}

// BidVolume returns the total resting bid quantity.
func (ob *Orderbook) BidVolume() float64 {
	return ob.bids.TotalVolume()
}

// AskVolume returns the total resting ask quantity.
func (ob *Orderbook) AskVolume() float64 {
	return ob.asks.TotalVolume()
}

// Snapshot captures every resting order, FIFO within each level.
func (ob *Orderbook) Snapshot() *snapshotv1.Snapshot {
	snapshot := &snapshotv1.Snapshot{Symbol: ob.symbol}
	collect := func(level *orderbookv1.PriceLevel) bool {
		for _, order := range level.Orders() {
			snapshot.Orders = append(snapshot.Orders, snapshotv1.BookOrder{
				OrderID:   order.ID,
				AccountID: order.AccountID,
				Side:      order.Side,
				Price:     order.Price,
				Quantity:  order.Quantity,
				Remaining: order.Remaining,
				Timestamp: order.Timestamp,
				Sequence:  order.Sequence,
			})
		}
		return true
	}
	ob.bids.Walk(collect)
	ob.asks.Walk(collect)
	return snapshot
}

// Restore rebuilds the book from a snapshot, re-admitting resting orders in
// original sequence order.
func (ob *Orderbook) Restore(snapshot *snapshotv1.Snapshot) error {
	if snapshot == nil {
		return errors.New(errors.CodeInternalInconsistency, "snapshot is nil")
	}

	ob.bids = orderbookv1.NewLedger(orderv1.SideBuy)
	ob.asks = orderbookv1.NewLedger(orderv1.SideSell)
	ob.index = make(map[string]*entry)

	restored := make([]snapshotv1.BookOrder, len(snapshot.Orders))
	copy(restored, snapshot.Orders)
	sort.Slice(restored, func(i, j int) bool {
		return restored[i].Sequence < restored[j].Sequence
	})

	for _, bookOrder := range restored {
		order := &orderv1.Order{
			ID:        bookOrder.OrderID,
			AccountID: bookOrder.AccountID,
			Symbol:    snapshot.Symbol,
			Side:      bookOrder.Side,
			Type:      orderv1.TypeLimit,
			TIF:       orderv1.TIFStandard,
			Price:     bookOrder.Price,
			Quantity:  bookOrder.Quantity,
			Remaining: bookOrder.Remaining,
			Status:    orderv1.StatusNew,
			Timestamp: bookOrder.Timestamp,
			Sequence:  bookOrder.Sequence,
		}
		if order.Remaining < order.Quantity {
			order.Status = orderv1.StatusPartiallyFilled
		}
		if err := ob.Insert(order); err != nil {
			return errors.NewTracer("restore order " + bookOrder.OrderID).Wrap(err)
		}
	}

	return nil
}

// Validate checks book invariants: uncrossed best prices, per-level volume
// bookkeeping and index agreement. A failure here is fatal for the lane.
func (ob *Orderbook) Validate() error {
	bid, hasBid := ob.BestBid()
	ask, hasAsk := ob.BestAsk()
	if hasBid && hasAsk && bid >= ask {
		return errors.Newf(errors.CodeInternalInconsistency,
			"crossed book: best bid %f >= best ask %f", bid, ask)
	}

	if err := ob.bids.Validate(); err != nil {
		return err
	}
	if err := ob.asks.Validate(); err != nil {
		return err
	}

	counted := 0
	count := func(level *orderbookv1.PriceLevel) bool {
		counted += level.Len()
		return true
	}
	ob.bids.Walk(count)
	ob.asks.Walk(count)
	if counted != len(ob.index) {
		return errors.Newf(errors.CodeInternalInconsistency,
			"order index size %d does not match resting orders %d", len(ob.index), counted)
	}

	return nil
}

func (ob *Orderbook) ledgerFor(side orderv1.Side) *orderbookv1.Ledger {
	if side == orderv1.SideBuy {
		return ob.bids
	}
	return ob.asks
}

func summarize(ledger *orderbookv1.Ledger, maxLevels int) []orderbookv1.LevelSummary {
	var levels []orderbookv1.LevelSummary
	ledger.Walk(func(level *orderbookv1.PriceLevel) bool {
		levels = append(levels, orderbookv1.LevelSummary{
			Price:  level.Price,
			Volume: level.TotalVolume,
			Orders: level.Len(),
		})
		return maxLevels <= 0 || len(levels) < maxLevels
	})
	return levels
}
