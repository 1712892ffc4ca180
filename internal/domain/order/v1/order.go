package orderv1

import "time"

// Side represents which side of the book an order belongs to.
type Side string

const (
	// SideBuy represents a buy (bid) order.
	SideBuy Side = "buy"
	// SideSell represents a sell (ask) order.
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Type represents the type of order.
type Type string

const (
	// TypeMarket represents a market order.
	TypeMarket Type = "market"
	// TypeLimit represents a limit order.
	TypeLimit Type = "limit"
)

// TimeInForce controls what happens to an unmatched remainder.
type TimeInForce string

const (
	// TIFStandard rests the remainder on the book.
	TIFStandard TimeInForce = "gtc"
	// TIFImmediateOrCancel cancels the remainder instead of resting it.
	TIFImmediateOrCancel TimeInForce = "ioc"
	// TIFFillOrKill rejects the whole order unless it can fill atomically.
	TIFFillOrKill TimeInForce = "fok"
)

// Status represents the lifecycle state of an order. Transitions are
// monotonic: an order never returns to StatusNew after leaving it.
type Status string

const (
	// StatusNew is the initial state before any matching.
	StatusNew Status = "new"
	// StatusPartiallyFilled means some but not all quantity matched.
	StatusPartiallyFilled Status = "partially_filled"
	// StatusFilled means the full quantity matched.
	StatusFilled Status = "filled"
	// StatusCanceled means the order (or its remainder) was canceled.
	StatusCanceled Status = "canceled"
	// StatusRejected means the order never reached the book.
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected
}

// Order represents a single order in the engine.
type Order struct {
	ID        string      `json:"id"`
	AccountID string      `json:"accountID"`
	Symbol    string      `json:"symbol"`
	Side      Side        `json:"side"`
	Type      Type        `json:"type"`
	TIF       TimeInForce `json:"tif"`
	Price     float64     `json:"price"` // limit price; zero for market orders
	Quantity  float64     `json:"quantity"`
	Remaining float64     `json:"remaining"`
	Status    Status      `json:"status"`
	Timestamp int64       `json:"timestamp"`
	Sequence  int64       `json:"sequence"` // admission order, FIFO tie-break
}

// NewOrder creates a new order with the given parameters.
func NewOrder(id, accountID, symbol string, side Side, typ Type, tif TimeInForce, price, quantity float64) *Order {
	return &Order{
		ID:        id,
		AccountID: accountID,
		Symbol:    symbol,
		Side:      side,
		Type:      typ,
		TIF:       tif,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
		Status:    StatusNew,
		Timestamp: time.Now().UnixNano(),
	}
}

// IsBuy checks if the order is a buy (bid) order.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// IsFilled checks if the order is fully filled.
func (o *Order) IsFilled() bool {
	return o.Remaining <= 0
}

// FilledQuantity returns how much of the order has matched.
func (o *Order) FilledQuantity() float64 {
	return o.Quantity - o.Remaining
}

// Crosses reports whether this order's limit is satisfied by the given
// opposite-side price. Market orders cross any price.
func (o *Order) Crosses(price float64) bool {
	if o.Type == TypeMarket {
		return true
	}
	if o.IsBuy() {
		return o.Price >= price
	}
	return o.Price <= price
}

// Fill decrements the remaining quantity and advances the status.
func (o *Order) Fill(quantity float64) {
	o.Remaining -= quantity
	if o.Remaining <= 0 {
		o.Remaining = 0
		o.Status = StatusFilled
		return
	}
	o.Status = StatusPartiallyFilled
}

// Reset clears the order for pool reuse.
func (o *Order) Reset() {
	*o = Order{}
}
