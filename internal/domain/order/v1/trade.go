package orderv1

// Fill is the in-lane result of one matching step: the resting (maker)
// order that was hit and the quantity executed at its price.
type Fill struct {
	Maker    *Order
	Taker    *Order
	Price    float64 // always the resting order's price
	Quantity float64
}

// Trade represents an executed trade between a resting and an incoming
// order.
type Trade struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	MakerOrderID   string  `json:"makerOrderID"` // resting order
	TakerOrderID   string  `json:"takerOrderID"` // incoming order
	MakerAccountID string  `json:"makerAccountID"`
	TakerAccountID string  `json:"takerAccountID"`
	TakerSide      Side    `json:"takerSide"`
	Price          float64 `json:"price"`
	Quantity       float64 `json:"quantity"`
	Timestamp      int64   `json:"timestamp"`
}

// Reset clears the trade for pool reuse.
func (t *Trade) Reset() {
	*t = Trade{}
}
