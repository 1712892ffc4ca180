package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // .env file is optional

	return env.Parse(cfg)
}

// Config holds the configuration for the matching engine service.
type Config struct {
	// Symbols this engine instance trades, one lane each. e.g. BTC-USD,ETH-USD
	Symbols []string `env:"SYMBOLS,required"`

	Engine        EngineConfig  `envPrefix:"ENGINE_"`
	Risk          RiskConfig    `envPrefix:"RISK_"`
	OrderFeed     KafkaConfig   `envPrefix:"ORDER_FEED_"`
	EventStream   KafkaConfig   `envPrefix:"EVENT_STREAM_"`
	Redis         RedisConfig   `envPrefix:"REDIS_"`
	Journal       JournalConfig `envPrefix:"JOURNAL_"`
}

// EngineConfig holds per-lane processing options.
type EngineConfig struct {
	// MaxOrderBookDepth caps the number of price levels carried on book
	// update events.
	MaxOrderBookDepth int `env:"MAX_ORDER_BOOK_DEPTH" envDefault:"20"`
	// InboundQueueCapacity bounds each symbol lane's inbound queue.
	// A full queue fails fast with engine_overloaded.
	InboundQueueCapacity int `env:"INBOUND_QUEUE_CAPACITY" envDefault:"4096"`
	// SnapshotInterval is how often the snapshot manager considers
	// persisting a book snapshot.
	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"30s"`
	// SnapshotMinEvents is the minimum number of processed messages since
	// the last snapshot before a new one is taken.
	SnapshotMinEvents int64 `env:"SNAPSHOT_MIN_EVENTS" envDefault:"1000"`
}

// RiskConfig holds pre-trade risk and circuit breaker options.
type RiskConfig struct {
	// CheckTimeoutMicros bounds a single risk evaluation. Exceeding it is a
	// rejection, not a retry.
	CheckTimeoutMicros int64 `env:"CHECK_TIMEOUT_MICROS" envDefault:"500"`
	// BreakerViolationThreshold is the rolling violation count that opens
	// the circuit breaker for a scope.
	BreakerViolationThreshold int `env:"BREAKER_VIOLATION_THRESHOLD" envDefault:"10"`
	// BreakerWindow is the rolling window violations are counted over.
	BreakerWindow time.Duration `env:"BREAKER_WINDOW" envDefault:"10s"`
	// BreakerCooldown is how long an open breaker rejects before allowing a
	// half-open trial.
	BreakerCooldown time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
}

// KafkaConfig holds the configuration for a Kafka consumer or producer.
type KafkaConfig struct {
	Topic   string   `env:"TOPIC,required"`
	GroupID string   `env:"GROUP_ID" envDefault:"default_group"`
	Brokers []string `env:"BROKER,required"`
}

// RedisConfig holds the configuration for the snapshot store client.
type RedisConfig struct {
	Addr     string `env:"ADDRESS,required"`
	Password string `env:"PASSWORD" envDefault:""`
	Username string `env:"USERNAME" envDefault:""`
	DB       int    `env:"DB" envDefault:"0"`
}

// JournalConfig holds the configuration for the trade journal.
type JournalConfig struct {
	Path string `env:"PATH" envDefault:"./data/journal"`
}
