package orderbookv1

import (
	"sort"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
)

// Ledger is one side of the book: price levels kept best-first (bids
// descending, asks ascending) with O(log n) level lookup and O(1) best
// access.
type Ledger struct {
	side   orderv1.Side
	levels map[float64]*PriceLevel
	prices []float64 // sorted best-first
}

// NewLedger creates an empty ledger for the given side.
func NewLedger(side orderv1.Side) *Ledger {
	return &Ledger{
		side:   side,
		levels: make(map[float64]*PriceLevel),
	}
}

// better reports whether price a has priority over price b on this side.
func (g *Ledger) better(a, b float64) bool {
	if g.side == orderv1.SideBuy {
		return a > b
	}
	return a < b
}

// Level returns the level at the given price, creating it if absent.
func (g *Ledger) Level(price float64) *PriceLevel {
	if level, ok := g.levels[price]; ok {
		return level
	}

	level := NewPriceLevel(price, g.side)
	g.levels[price] = level

	idx := sort.Search(len(g.prices), func(i int) bool {
		return !g.better(g.prices[i], price)
	})
	g.prices = append(g.prices, 0)
	copy(g.prices[idx+1:], g.prices[idx:])
	g.prices[idx] = price

	return level
}

// Lookup returns the level at the given price without creating it.
func (g *Ledger) Lookup(price float64) (*PriceLevel, bool) {
	level, ok := g.levels[price]
	return level, ok
}

// Best returns the highest-priority non-empty level, or nil when the side
// is empty.
func (g *Ledger) Best() *PriceLevel {
	if len(g.prices) == 0 {
		return nil
	}
	return g.levels[g.prices[0]]
}

// Prune removes the level at the given price if it is empty.
func (g *Ledger) Prune(price float64) {
	level, ok := g.levels[price]
	if !ok || !level.IsEmpty() {
		return
	}
	delete(g.levels, price)

	idx := sort.Search(len(g.prices), func(i int) bool {
		return !g.better(g.prices[i], price)
	})
	if idx < len(g.prices) && g.prices[idx] == price {
		g.prices = append(g.prices[:idx], g.prices[idx+1:]...)
	}
}

// Len returns the number of price levels.
func (g *Ledger) Len() int {
	return len(g.prices)
}

// Walk visits levels best-first until fn returns false. fn must not add or
// remove levels.
func (g *Ledger) Walk(fn func(*PriceLevel) bool) {
	for _, price := range g.prices {
		if !fn(g.levels[price]) {
			return
		}
	}
}

// TotalVolume returns the resting volume across all levels.
func (g *Ledger) TotalVolume() float64 {
	total := 0.0
	for _, level := range g.levels {
		total += level.TotalVolume
	}
	return total
}

// Validate checks every level and the best-first ordering of the price
// index.
func (g *Ledger) Validate() error {
	for i := 1; i < len(g.prices); i++ {
		if !g.better(g.prices[i-1], g.prices[i]) {
			return errInconsistentIndex(g.side, g.prices[i-1], g.prices[i])
		}
	}
	for _, level := range g.levels {
		if err := level.Validate(); err != nil {
			return err
		}
	}
	return nil
}
