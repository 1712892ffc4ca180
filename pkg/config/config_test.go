package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SYMBOLS", "BTC-USD,ETH-USD")
	t.Setenv("ORDER_FEED_TOPIC", "orders")
	t.Setenv("ORDER_FEED_BROKER", "localhost:9092")
	t.Setenv("EVENT_STREAM_TOPIC", "engine-events")
	t.Setenv("EVENT_STREAM_BROKER", "localhost:9092")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := &Config{}
	require.NoError(t, Load(cfg))

	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, cfg.Symbols)
	assert.Equal(t, 20, cfg.Engine.MaxOrderBookDepth)
	assert.Equal(t, 4096, cfg.Engine.InboundQueueCapacity)
	assert.Equal(t, 30*time.Second, cfg.Engine.SnapshotInterval)
	assert.Equal(t, int64(1000), cfg.Engine.SnapshotMinEvents)
	assert.Equal(t, int64(500), cfg.Risk.CheckTimeoutMicros)
	assert.Equal(t, 10, cfg.Risk.BreakerViolationThreshold)
	assert.Equal(t, "default_group", cfg.OrderFeed.GroupID)
	assert.Equal(t, "./data/journal", cfg.Journal.Path)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENGINE_INBOUND_QUEUE_CAPACITY", "128")
	t.Setenv("RISK_BREAKER_WINDOW", "5s")
	t.Setenv("ORDER_FEED_GROUP_ID", "engine-a")
	t.Setenv("JOURNAL_PATH", "/var/lib/engine/journal")

	cfg := &Config{}
	require.NoError(t, Load(cfg))

	assert.Equal(t, 128, cfg.Engine.InboundQueueCapacity)
	assert.Equal(t, 5*time.Second, cfg.Risk.BreakerWindow)
	assert.Equal(t, "engine-a", cfg.OrderFeed.GroupID)
	assert.Equal(t, "/var/lib/engine/journal", cfg.Journal.Path)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("SYMBOLS", "")

	cfg := &Config{}
	assert.Error(t, Load(cfg))
}
