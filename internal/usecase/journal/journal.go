package journal

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/pebble"
	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	"github.com/quantfex/matching-engine/pkg/errors"
	"github.com/quantfex/matching-engine/pkg/logger"
)

// Key layout: trades are stored once under t/<id>; a second marker under
// p/<id> flags the trade as not yet delivered to the publisher. Marking a
// trade delivered deletes only the marker, keeping the trade record as an
// audit trail.
var (
	tradePrefix   = []byte("t/")
	pendingPrefix = []byte("p/")
)

// Journal is a Pebble-backed trade outbox. Appends are synced before the
// publisher enqueue so a generated trade survives a crash; undelivered
// trades are replayed on startup.
type Journal struct {
	db     *pebble.DB
	logger *logger.Logger
}

// Open opens (or creates) a journal at path. opts may carry a vfs.NewMem
// filesystem in tests; nil uses the default on-disk options.
func Open(path string, opts *pebble.Options, log *logger.Logger) (*Journal, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, errors.NewTracer("journal_open_error").Wrap(err)
	}
	return &Journal{db: db, logger: log}, nil
}

// Append durably records a trade and marks it pending delivery.
func (j *Journal) Append(ctx context.Context, trade *orderv1.Trade) error {
	if trade == nil || trade.ID == "" {
		return errors.New(errors.CodeInternalInconsistency, "journal append without trade id")
	}

	buf, err := json.Marshal(trade)
	if err != nil {
		return errors.NewTracer("journal_marshal_error").Wrap(err)
	}

	batch := j.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(tradeKey(trade.ID), buf, nil); err != nil {
		return errors.NewTracer("journal_set_error").Wrap(err)
	}
	if err := batch.Set(pendingKey(trade.ID), nil, nil); err != nil {
		return errors.NewTracer("journal_set_error").Wrap(err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.NewTracer("journal_commit_error").Wrap(err)
	}

	return nil
}

// MarkDelivered clears the pending marker after the publisher enqueue
// succeeded. Delivery is at-least-once: a crash between enqueue and mark
// replays the trade.
func (j *Journal) MarkDelivered(ctx context.Context, tradeID string) error {
	if err := j.db.Delete(pendingKey(tradeID), pebble.Sync); err != nil {
		return errors.NewTracer("journal_delete_error").Wrap(err)
	}
	return nil
}

// Pending returns all trades appended but not yet marked delivered.
func (j *Journal) Pending(ctx context.Context) ([]orderv1.Trade, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: pendingPrefix,
		UpperBound: []byte("p0"), // '0' follows '/' in ASCII
	})
	if err != nil {
		return nil, errors.NewTracer("journal_iter_error").Wrap(err)
	}
	defer iter.Close()

	var trades []orderv1.Trade
	for iter.First(); iter.Valid(); iter.Next() {
		tradeID := string(iter.Key()[len(pendingPrefix):])
		buf, closer, err := j.db.Get(tradeKey(tradeID))
		if err == pebble.ErrNotFound {
			// marker without a record should not happen; surface it
			return nil, errors.Newf(errors.CodeInternalInconsistency,
				"pending marker for unknown trade %s", tradeID)
		}
		if err != nil {
			return nil, errors.NewTracer("journal_get_error").Wrap(err)
		}

		var trade orderv1.Trade
		unmarshalErr := json.Unmarshal(buf, &trade)
		closer.Close()
		if unmarshalErr != nil {
			return nil, errors.NewTracer("journal_unmarshal_error").Wrap(unmarshalErr)
		}
		trades = append(trades, trade)
	}

	return trades, iter.Error()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func tradeKey(id string) []byte {
	return append(append([]byte{}, tradePrefix...), id...)
}

func pendingKey(id string) []byte {
	return append(append([]byte{}, pendingPrefix...), id...)
}
