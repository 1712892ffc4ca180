package position

import (
	"testing"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrade(maker, taker string, takerSide orderv1.Side, price, quantity float64) *orderv1.Trade {
	return &orderv1.Trade{
		ID:             "trade-1",
		Symbol:         "BTC-USD",
		MakerOrderID:   "maker-order",
		TakerOrderID:   "taker-order",
		MakerAccountID: maker,
		TakerAccountID: taker,
		TakerSide:      takerSide,
		Price:          price,
		Quantity:       quantity,
	}
}

func TestTracker_ApplyTrade_BothCounterparties(t *testing.T) {
	tracker := NewTracker()

	require.NoError(t, tracker.ApplyTrade(testTrade("maker", "taker", orderv1.SideBuy, 100, 10)))

	takerPos := tracker.Position("taker", "BTC-USD")
	assert.Equal(t, 10.0, takerPos.NetQuantity)
	assert.Equal(t, 100.0, takerPos.AvgEntry)

	makerPos := tracker.Position("maker", "BTC-USD")
	assert.Equal(t, -10.0, makerPos.NetQuantity)
	assert.Equal(t, 100.0, makerPos.AvgEntry)
}

func TestTracker_ApplyTrade_Invalid(t *testing.T) {
	tracker := NewTracker()

	assert.Error(t, tracker.ApplyTrade(nil))
	assert.Error(t, tracker.ApplyTrade(testTrade("maker", "taker", orderv1.SideBuy, 100, 0)))
}

func TestTracker_UnknownPositionIsFlat(t *testing.T) {
	tracker := NewTracker()

	pos := tracker.Position("ghost", "BTC-USD")
	assert.True(t, pos.IsFlat())
	assert.Equal(t, "ghost", pos.AccountID)
	assert.Equal(t, 0.0, tracker.RealizedPnL("ghost"))
}

func TestTracker_RealizedPnLAcrossSymbols(t *testing.T) {
	tracker := NewTracker()

	// open long 10 @ 100 on BTC, close at 110 => +100
	require.NoError(t, tracker.ApplyTrade(testTrade("m1", "acct", orderv1.SideBuy, 100, 10)))
	require.NoError(t, tracker.ApplyTrade(testTrade("m2", "acct", orderv1.SideSell, 110, 10)))

	// open long 5 @ 50 on ETH, close at 45 => -25
	eth := testTrade("m3", "acct", orderv1.SideBuy, 50, 5)
	eth.Symbol = "ETH-USD"
	require.NoError(t, tracker.ApplyTrade(eth))
	eth = testTrade("m4", "acct", orderv1.SideSell, 45, 5)
	eth.Symbol = "ETH-USD"
	require.NoError(t, tracker.ApplyTrade(eth))

	assert.InDelta(t, 75.0, tracker.RealizedPnL("acct"), 1e-9)

	tracker.ResetRealized()
	assert.Equal(t, 0.0, tracker.RealizedPnL("acct"))
}

func TestTracker_PositionReturnsCopy(t *testing.T) {
	tracker := NewTracker()
	require.NoError(t, tracker.ApplyTrade(testTrade("maker", "taker", orderv1.SideBuy, 100, 10)))

	pos := tracker.Position("taker", "BTC-USD")
	pos.NetQuantity = 0

	assert.Equal(t, 10.0, tracker.Position("taker", "BTC-USD").NetQuantity)
}
