package engine

import (
	"time"

	"github.com/quantfex/matching-engine/pkg/config"
)

// Options represents configuration options for the Engine.
type Options struct {
	// InboundQueueCapacity bounds each symbol lane's inbound queue.
	InboundQueueCapacity int
	// MaxOrderBookDepth caps depth snapshots on book update events.
	MaxOrderBookDepth int
	// RiskCheckTimeout bounds a single risk evaluation.
	RiskCheckTimeout time.Duration
	// LaneLatencyBudget is the per-message processing budget; overruns
	// count as circuit breaker violations for the symbol scope.
	LaneLatencyBudget time.Duration
	// SnapshotInterval is how often lanes consider persisting a snapshot.
	SnapshotInterval time.Duration
	// SnapshotMinEvents is the minimum processed messages since the last
	// snapshot before a new one is taken.
	SnapshotMinEvents int64
	// PoolMaxIdlePerLane bounds each lane's record free lists.
	PoolMaxIdlePerLane int

	Breaker BreakerOptions
}

// BreakerOptions tunes the engine's circuit breaker.
type BreakerOptions struct {
	ViolationThreshold int
	Window             time.Duration
	Cooldown           time.Duration
}

// DefaultOptions returns the default engine options.
func DefaultOptions() *Options {
	return &Options{
		InboundQueueCapacity: 4096,
		MaxOrderBookDepth:    20,
		RiskCheckTimeout:     500 * time.Microsecond,
		LaneLatencyBudget:    5 * time.Millisecond,
		SnapshotInterval:     30 * time.Second,
		SnapshotMinEvents:    1000,
		PoolMaxIdlePerLane:   8192,
		Breaker: BreakerOptions{
			ViolationThreshold: 10,
			Window:             10 * time.Second,
			Cooldown:           30 * time.Second,
		},
	}
}

// OptionsFromConfig maps service configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) *Options {
	opts := DefaultOptions()
	opts.InboundQueueCapacity = cfg.Engine.InboundQueueCapacity
	opts.MaxOrderBookDepth = cfg.Engine.MaxOrderBookDepth
	opts.SnapshotInterval = cfg.Engine.SnapshotInterval
	opts.SnapshotMinEvents = cfg.Engine.SnapshotMinEvents
	opts.RiskCheckTimeout = time.Duration(cfg.Risk.CheckTimeoutMicros) * time.Microsecond
	opts.Breaker = BreakerOptions{
		ViolationThreshold: cfg.Risk.BreakerViolationThreshold,
		Window:             cfg.Risk.BreakerWindow,
		Cooldown:           cfg.Risk.BreakerCooldown,
	}
	return opts
}
