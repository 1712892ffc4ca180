package snapshot

import (
	"context"
	"sync"
	"testing"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	snapshotv1 "github.com/quantfex/matching-engine/internal/domain/snapshot/v1"
	"github.com/quantfex/matching-engine/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapKV is an in-memory KV fake.
type mapKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapKV() *mapKV {
	return &mapKV{data: make(map[string][]byte)}
}

func (m *mapKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func TestStore_RoundTrip(t *testing.T) {
	kv := newMapKV()
	store := NewStore(kv, logger.NewNop())
	ctx := context.Background()

	snapshot := &snapshotv1.Snapshot{
		Symbol:   "BTC-USD",
		Sequence: 17,
		Orders: []snapshotv1.BookOrder{
			{OrderID: "o1", AccountID: "alice", Side: orderv1.SideBuy, Price: 100, Quantity: 5, Remaining: 3, Sequence: 4},
			{OrderID: "o2", AccountID: "bob", Side: orderv1.SideSell, Price: 101, Quantity: 2, Remaining: 2, Sequence: 9},
		},
		CreatedAt: 1234,
	}
	require.NoError(t, store.Store(ctx, snapshot))

	loaded, err := store.Load(ctx, "BTC-USD")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snapshot.Sequence, loaded.Sequence)
	require.Len(t, loaded.Orders, 2)
	assert.Equal(t, "o1", loaded.Orders[0].OrderID)
	assert.Equal(t, 3.0, loaded.Orders[0].Remaining)
}

func TestStore_LoadMissingReturnsNil(t *testing.T) {
	store := NewStore(newMapKV(), logger.NewNop())

	loaded, err := store.Load(context.Background(), "ETH-USD")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_OverwriteKeepsLatest(t *testing.T) {
	store := NewStore(newMapKV(), logger.NewNop())
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, &snapshotv1.Snapshot{Symbol: "BTC-USD", Sequence: 1}))
	require.NoError(t, store.Store(ctx, &snapshotv1.Snapshot{Symbol: "BTC-USD", Sequence: 2}))

	loaded, err := store.Load(ctx, "BTC-USD")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(2), loaded.Sequence)
}
