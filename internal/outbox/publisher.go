package outbox

import (
	"context"
	"time"

	"storefront-be/internal/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, rec Record) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, rec Record) error {
	return p.writer.WriteMessages(ctx, kafkaMessage(rec))
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func kafkaMessage(rec Record) kafka.Message {
	return kafka.Message{
		Key:   []byte(rec.Key),
		Value: rec.Payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(rec.EventID.String())},
			{Key: "event_type", Value: []byte(rec.EventType)},
		},
	}
}

// LogPublisher writes events to the application log when no broker is
// configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, rec Record) error {
	logger.FromCtx(ctx).Info("outbox event",
		zap.String("event_id", rec.EventID.String()),
		zap.String("event_type", rec.EventType),
		zap.String("key", rec.Key),
		zap.ByteString("payload", rec.Payload),
	)
	return nil
}

func (LogPublisher) Close() error { return nil }
