package positionv1

import orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"

// Position tracks one account's exposure in one symbol: signed net
// quantity, volume-weighted average entry price and a realized P&L
// accumulator. Created on first trade, never deleted, only zeroed.
type Position struct {
	AccountID   string  `json:"accountID"`
	Symbol      string  `json:"symbol"`
	NetQuantity float64 `json:"netQuantity"` // positive = long, negative = short
	AvgEntry    float64 `json:"avgEntry"`    // volume-weighted average entry price
	RealizedPnL float64 `json:"realizedPnL"`
}

// NewPosition creates a flat position for an (account, symbol) pair.
func NewPosition(accountID, symbol string) *Position {
	return &Position{AccountID: accountID, Symbol: symbol}
}

// IsFlat reports whether the position has no exposure.
func (p *Position) IsFlat() bool {
	return p.NetQuantity == 0
}

// ApplyFill updates the position for one executed fill. P&L is realized
// incrementally on position-reducing fills as
// (price - avgEntry) * quantityReduced, signed by the position's direction;
// it is never recomputed from history, keeping cost per trade O(1).
func (p *Position) ApplyFill(side orderv1.Side, price, quantity float64) {
	signed := quantity
	if side == orderv1.SideSell {
		signed = -quantity
	}

	switch {
	case p.NetQuantity == 0 || sameSign(p.NetQuantity, signed):
		// opening or increasing: fold the fill into the weighted entry
		total := p.NetQuantity + signed
		p.AvgEntry = (p.AvgEntry*abs(p.NetQuantity) + price*quantity) / abs(total)
		p.NetQuantity = total

	case abs(signed) <= abs(p.NetQuantity):
		// reducing (possibly to flat): realize against the entry price
		reduced := abs(signed)
		if p.NetQuantity > 0 {
			p.RealizedPnL += (price - p.AvgEntry) * reduced
		} else {
			p.RealizedPnL += (p.AvgEntry - price) * reduced
		}
		p.NetQuantity += signed
		if p.NetQuantity == 0 {
			p.AvgEntry = 0
		}

	default:
		// crossing through flat: close out the old side, open the rest at
		// the fill price
		closed := abs(p.NetQuantity)
		if p.NetQuantity > 0 {
			p.RealizedPnL += (price - p.AvgEntry) * closed
		} else {
			p.RealizedPnL += (p.AvgEntry - price) * closed
		}
		p.NetQuantity += signed
		p.AvgEntry = price
	}
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
