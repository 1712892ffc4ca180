package orderbookv1

import (
	"testing"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restingOrder(id string, side orderv1.Side, price, quantity float64, sequence int64) *orderv1.Order {
	order := orderv1.NewOrder(id, "acct", "BTC-USD", side, orderv1.TypeLimit, orderv1.TIFStandard, price, quantity)
	order.Sequence = sequence
	return order
}

func TestPriceLevel_AppendTracksVolume(t *testing.T) {
	level := NewPriceLevel(100, orderv1.SideBuy)

	_, err := level.Append(restingOrder("o1", orderv1.SideBuy, 100, 4, 1))
	require.NoError(t, err)
	_, err = level.Append(restingOrder("o2", orderv1.SideBuy, 100, 6, 2))
	require.NoError(t, err)

	assert.Equal(t, 2, level.Len())
	assert.Equal(t, 10.0, level.TotalVolume)
	assert.Equal(t, "o1", level.Head().ID)
	require.NoError(t, level.Validate())
}

func TestPriceLevel_Append_WrongSide(t *testing.T) {
	level := NewPriceLevel(100, orderv1.SideBuy)

	_, err := level.Append(restingOrder("o1", orderv1.SideSell, 100, 4, 1))
	assert.Error(t, err)
	assert.Equal(t, 0, level.Len())
}

func TestPriceLevel_Remove(t *testing.T) {
	level := NewPriceLevel(100, orderv1.SideBuy)

	elem1, err := level.Append(restingOrder("o1", orderv1.SideBuy, 100, 4, 1))
	require.NoError(t, err)
	_, err = level.Append(restingOrder("o2", orderv1.SideBuy, 100, 6, 2))
	require.NoError(t, err)

	removed := level.Remove(elem1)
	assert.Equal(t, "o1", removed.ID)
	assert.Equal(t, 6.0, level.TotalVolume)
	assert.Equal(t, "o2", level.Head().ID)
	require.NoError(t, level.Validate())
}

func TestPriceLevel_ReduceHead(t *testing.T) {
	level := NewPriceLevel(100, orderv1.SideSell)

	head := restingOrder("o1", orderv1.SideSell, 100, 4, 1)
	_, err := level.Append(head)
	require.NoError(t, err)

	// partial fill keeps the head in place
	head.Fill(1)
	removed := level.ReduceHead(1)
	assert.Nil(t, removed)
	assert.Equal(t, 3.0, level.TotalVolume)
	assert.Equal(t, "o1", level.Head().ID)

	// full fill pops it
	head.Fill(3)
	removed = level.ReduceHead(3)
	require.NotNil(t, removed)
	assert.Equal(t, "o1", removed.ID)
	assert.True(t, level.IsEmpty())
	assert.InDelta(t, 0, level.TotalVolume, 1e-9)
}

func TestPriceLevel_Validate_VolumeMismatch(t *testing.T) {
	level := NewPriceLevel(100, orderv1.SideBuy)
	_, err := level.Append(restingOrder("o1", orderv1.SideBuy, 100, 4, 1))
	require.NoError(t, err)

	level.TotalVolume = 99
	assert.Error(t, level.Validate())
}

func TestLedger_BestFirstOrdering(t *testing.T) {
	bids := NewLedger(orderv1.SideBuy)
	bids.Level(99)
	bids.Level(101)
	bids.Level(100)

	var prices []float64
	bids.Walk(func(level *PriceLevel) bool {
		prices = append(prices, level.Price)
		return true
	})
	assert.Equal(t, []float64{101, 100, 99}, prices)
	assert.Equal(t, 101.0, bids.Best().Price)

	asks := NewLedger(orderv1.SideSell)
	asks.Level(101)
	asks.Level(99)
	asks.Level(100)

	prices = prices[:0]
	asks.Walk(func(level *PriceLevel) bool {
		prices = append(prices, level.Price)
		return true
	})
	assert.Equal(t, []float64{99, 100, 101}, prices)
	assert.Equal(t, 99.0, asks.Best().Price)
}

func TestLedger_LevelIsIdempotent(t *testing.T) {
	ledger := NewLedger(orderv1.SideBuy)

	first := ledger.Level(100)
	second := ledger.Level(100)
	assert.Same(t, first, second)
	assert.Equal(t, 1, ledger.Len())
}

func TestLedger_PruneRemovesOnlyEmptyLevels(t *testing.T) {
	ledger := NewLedger(orderv1.SideSell)

	level := ledger.Level(100)
	_, err := level.Append(restingOrder("o1", orderv1.SideSell, 100, 4, 1))
	require.NoError(t, err)

	ledger.Prune(100)
	assert.Equal(t, 1, ledger.Len())

	head := level.Head()
	head.Fill(4)
	level.ReduceHead(4)
	ledger.Prune(100)
	assert.Equal(t, 0, ledger.Len())
	assert.Nil(t, ledger.Best())
}

func TestLedger_TotalVolume(t *testing.T) {
	ledger := NewLedger(orderv1.SideBuy)
	_, err := ledger.Level(100).Append(restingOrder("o1", orderv1.SideBuy, 100, 4, 1))
	require.NoError(t, err)
	_, err = ledger.Level(99).Append(restingOrder("o2", orderv1.SideBuy, 99, 6, 2))
	require.NoError(t, err)

	assert.Equal(t, 10.0, ledger.TotalVolume())
	require.NoError(t, ledger.Validate())
}
