package positionv1

import (
	"testing"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	"github.com/stretchr/testify/assert"
)

func TestPosition_OpenAndIncrease(t *testing.T) {
	pos := NewPosition("acct", "BTC-USD")

	pos.ApplyFill(orderv1.SideBuy, 100, 10)
	assert.Equal(t, 10.0, pos.NetQuantity)
	assert.Equal(t, 100.0, pos.AvgEntry)

	// weighted entry: (100*10 + 110*10) / 20 = 105
	pos.ApplyFill(orderv1.SideBuy, 110, 10)
	assert.Equal(t, 20.0, pos.NetQuantity)
	assert.InDelta(t, 105.0, pos.AvgEntry, 1e-9)
	assert.Equal(t, 0.0, pos.RealizedPnL)
}

func TestPosition_ReduceRealizesPnL(t *testing.T) {
	pos := NewPosition("acct", "BTC-USD")
	pos.ApplyFill(orderv1.SideBuy, 100, 10)

	pos.ApplyFill(orderv1.SideSell, 120, 4)
	assert.Equal(t, 6.0, pos.NetQuantity)
	assert.Equal(t, 100.0, pos.AvgEntry)
	assert.InDelta(t, 80.0, pos.RealizedPnL, 1e-9)

	// closing to flat zeroes the entry price
	pos.ApplyFill(orderv1.SideSell, 90, 6)
	assert.True(t, pos.IsFlat())
	assert.Equal(t, 0.0, pos.AvgEntry)
	assert.InDelta(t, 80.0-60.0, pos.RealizedPnL, 1e-9)
}

func TestPosition_ShortSideRealization(t *testing.T) {
	pos := NewPosition("acct", "BTC-USD")
	pos.ApplyFill(orderv1.SideSell, 100, 5)
	assert.Equal(t, -5.0, pos.NetQuantity)
	assert.Equal(t, 100.0, pos.AvgEntry)

	// buying back below entry is a gain for a short
	pos.ApplyFill(orderv1.SideBuy, 95, 5)
	assert.True(t, pos.IsFlat())
	assert.InDelta(t, 25.0, pos.RealizedPnL, 1e-9)
}

func TestPosition_CrossThroughFlat(t *testing.T) {
	pos := NewPosition("acct", "BTC-USD")
	pos.ApplyFill(orderv1.SideBuy, 100, 4)

	// sell 10 at 110: close 4 long (+40), open 6 short at 110
	pos.ApplyFill(orderv1.SideSell, 110, 10)
	assert.Equal(t, -6.0, pos.NetQuantity)
	assert.Equal(t, 110.0, pos.AvgEntry)
	assert.InDelta(t, 40.0, pos.RealizedPnL, 1e-9)
}
