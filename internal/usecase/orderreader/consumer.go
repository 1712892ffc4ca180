package orderreader

import (
	"context"
	"encoding/json"
	"time"

	orderv1 "github.com/quantfex/matching-engine/internal/domain/order/v1"
	"github.com/quantfex/matching-engine/pkg/config"
	"github.com/quantfex/matching-engine/pkg/errors"
	"github.com/quantfex/matching-engine/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Op discriminates inbound messages.
type Op string

const (
	// OpSubmit places an order.
	OpSubmit Op = "submit"
	// OpCancel cancels a resting order.
	OpCancel Op = "cancel"
)

// Message is the inbound wire frame from the order management collaborator.
type Message struct {
	Op     Op                     `json:"op"`
	Submit *orderv1.SubmitRequest `json:"submit,omitempty"`
	Cancel *orderv1.CancelRequest `json:"cancel,omitempty"`
}

// Sink is where decoded requests go; the matching engine implements it.
type Sink interface {
	SubmitOrder(ctx context.Context, req *orderv1.SubmitRequest) error
	CancelOrder(ctx context.Context, req *orderv1.CancelRequest) error
}

// Reader consumes order messages from Kafka and feeds them to the engine.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      *logger.Logger
}

// NewReader creates a Kafka reader for the order feed topic.
func NewReader(cfg config.KafkaConfig, log *logger.Logger) *Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

// Run reads messages until the context is canceled, decoding each and
// handing it to the sink. Engine backpressure (engine_overloaded) is logged
// and the message dropped: the upstream collaborator owns retries.
func (r *Reader) Run(ctx context.Context, sink Sink) error {
	for {
		msg, err := r.kafkaReader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error(err, logger.Field{Key: "operation", Value: "ReadMessage"})
			time.Sleep(100 * time.Millisecond)
			continue
		}

		var message Message
		if err := json.Unmarshal(msg.Value, &message); err != nil {
			r.logger.Error(err,
				logger.Field{Key: "operation", Value: "UnmarshalMessage"},
				logger.Field{Key: "offset", Value: msg.Offset},
			)
			continue
		}

		if err := r.dispatch(ctx, sink, &message); err != nil {
			code := errors.CodeOf(err)
			r.logger.Warn("order message not accepted",
				logger.Field{Key: "op", Value: message.Op},
				logger.Field{Key: "code", Value: code},
				logger.Field{Key: "error", Value: err.Error()},
				logger.Field{Key: "retryable", Value: code.Retryable()},
			)
		}
	}
}

func (r *Reader) dispatch(ctx context.Context, sink Sink, message *Message) error {
	switch message.Op {
	case OpSubmit:
		if message.Submit == nil {
			return errors.New(errors.CodeInvalidOrder, "submit message without payload")
		}
		return sink.SubmitOrder(ctx, message.Submit)
	case OpCancel:
		if message.Cancel == nil {
			return errors.New(errors.CodeInvalidOrder, "cancel message without payload")
		}
		return sink.CancelOrder(ctx, message.Cancel)
	default:
		return errors.Newf(errors.CodeInvalidOrder, "unknown op %q", message.Op)
	}
}

// Close properly closes the Kafka reader.
func (r *Reader) Close() error {
	return r.kafkaReader.Close()
}
