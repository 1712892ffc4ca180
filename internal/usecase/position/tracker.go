package position

import (
	"sync"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	positionv1 "github.com/quantfex/matching-engine/internal/domain/position/v1"
	"github.com/quantfex/matching-engine/pkg/errors"
)

// Tracker owns all Position records. Positions are mutated only through
// ApplyTrade, called exactly once per trade in the order trades are
// generated. Lanes for different symbols touch different keys; the lock
// only serializes the rare same-account-different-symbol overlap.
type Tracker struct {
	mu        sync.RWMutex
	positions map[key]*positionv1.Position
}

type key struct {
	accountID string
	symbol    string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		positions: make(map[key]*positionv1.Position),
	}
}

// ApplyTrade updates both counterparties' positions for one trade. The
// taker's fill takes the trade's taker side; the maker took the opposite.
func (t *Tracker) ApplyTrade(trade *orderv1.Trade) error {
	if trade == nil {
		return errors.New(errors.CodeInternalInconsistency, "trade is nil")
	}
	if trade.Quantity <= 0 {
		return errors.Newf(errors.CodeInternalInconsistency, "trade %s has quantity %f", trade.ID, trade.Quantity)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	taker := t.getLocked(trade.TakerAccountID, trade.Symbol)
	maker := t.getLocked(trade.MakerAccountID, trade.Symbol)

	taker.ApplyFill(trade.TakerSide, trade.Price, trade.Quantity)
	maker.ApplyFill(trade.TakerSide.Opposite(), trade.Price, trade.Quantity)

	return nil
}

// Position returns a copy of the (account, symbol) position. A flat zero
// value is returned when no trade has created it yet.
func (t *Tracker) Position(accountID, symbol string) positionv1.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if pos, ok := t.positions[key{accountID, symbol}]; ok {
		return *pos
	}
	return positionv1.Position{AccountID: accountID, Symbol: symbol}
}

// RealizedPnL sums the account's realized P&L across all symbols.
func (t *Tracker) RealizedPnL(accountID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := 0.0
	for k, pos := range t.positions {
		if k.accountID == accountID {
			total += pos.RealizedPnL
		}
	}
	return total
}

// ResetRealized zeroes realized P&L accumulators, typically at the start of
// a trading day so daily-loss limits count from zero.
func (t *Tracker) ResetRealized() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, pos := range t.positions {
		pos.RealizedPnL = 0
	}
}

func (t *Tracker) getLocked(accountID, symbol string) *positionv1.Position {
	k := key{accountID, symbol}
	pos, ok := t.positions[k]
	if !ok {
		pos = positionv1.NewPosition(accountID, symbol)
		t.positions[k] = pos
	}
	return pos
}
