package publisher

import (
	"context"
	"encoding/json"

	eventv1 "github.com/quantfex/matching-engine/internal/domain/event/v1"
	"github.com/quantfex/matching-engine/pkg/config"
	"github.com/quantfex/matching-engine/pkg/errors"
	"github.com/quantfex/matching-engine/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Publisher writes engine events to a Kafka topic, keyed by symbol so one
// symbol's events stay ordered within a partition.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      *logger.Logger
}

// NewPublisher creates a Kafka publisher for engine events.
func NewPublisher(cfg config.KafkaConfig, log *logger.Logger) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// PublishTrade emits a TradeExecuted event.
func (p *Publisher) PublishTrade(ctx context.Context, event *eventv1.TradeExecuted) error {
	return p.publish(ctx, eventv1.Envelope{
		Kind:   eventv1.KindTradeExecuted,
		Symbol: event.Trade.Symbol,
		Trade:  event,
	})
}

// PublishBookUpdate emits an OrderBookUpdated event.
func (p *Publisher) PublishBookUpdate(ctx context.Context, event *eventv1.OrderBookUpdated) error {
	return p.publish(ctx, eventv1.Envelope{
		Kind:   eventv1.KindOrderBookUpdated,
		Symbol: event.Symbol,
		Book:   event,
	})
}

// PublishRejection emits an OrderRejected event.
func (p *Publisher) PublishRejection(ctx context.Context, event *eventv1.OrderRejected) error {
	return p.publish(ctx, eventv1.Envelope{
		Kind:      eventv1.KindOrderRejected,
		Symbol:    event.Symbol,
		Rejection: event,
	})
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}

func (p *Publisher) publish(ctx context.Context, envelope eventv1.Envelope) error {
	value, err := json.Marshal(envelope)
	if err != nil {
		return errors.NewTracer("event_marshal_error").Wrap(err)
	}

	msg := kafka.Message{
		Key:   []byte(envelope.Symbol),
		Value: value,
	}
	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "kind", Value: envelope.Kind},
			logger.Field{Key: "symbol", Value: envelope.Symbol},
		)
		return errors.NewTracer("event_publish_error").Wrap(err)
	}
	return nil
}
