package snapshot

import (
	"context"
	"encoding/json"

	snapshotv1 "github.com/quantfex/matching-engine/internal/domain/snapshot/v1"
	"github.com/quantfex/matching-engine/pkg/errors"
	"github.com/quantfex/matching-engine/pkg/logger"
)

// KV is the key-value surface the store needs. Satisfied by RedisKV in
// production and by a map fake in tests.
type KV interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error) // nil, nil when absent
}

// Store persists per-symbol book snapshots as JSON blobs keyed by symbol.
type Store struct {
	kv     KV
	prefix string
	logger *logger.Logger
}

// NewStore creates a snapshot store over the given key-value backend.
func NewStore(kv KV, log *logger.Logger) *Store {
	return &Store{
		kv:     kv,
		prefix: "book_snapshot:",
		logger: log,
	}
}

// Store serializes and persists the snapshot under its symbol's key.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	if err := s.kv.Set(ctx, s.prefix+snapshot.Symbol, buf); err != nil {
		s.logger.ErrorContext(ctx, err,
			logger.Field{Key: "symbol", Value: snapshot.Symbol},
			logger.Field{Key: "action", Value: "store_snapshot"},
		)
		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}

	s.logger.DebugContext(ctx, "snapshot stored",
		logger.Field{Key: "symbol", Value: snapshot.Symbol},
		logger.Field{Key: "orders", Value: len(snapshot.Orders)},
		logger.Field{Key: "sequence", Value: snapshot.Sequence},
	)
	return nil
}

// Load retrieves the symbol's last snapshot, or nil when none was taken.
func (s *Store) Load(ctx context.Context, symbol string) (*snapshotv1.Snapshot, error) {
	data, err := s.kv.Get(ctx, s.prefix+symbol)
	if err != nil {
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}
	if data == nil {
		s.logger.WarnContext(ctx, "no snapshot found",
			logger.Field{Key: "symbol", Value: symbol},
		)
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}
	return &snapshot, nil
}
