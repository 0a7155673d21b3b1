package notify

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the kafka.Writer subset used by KafkaSender.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes reset deliveries to a Kafka topic, keyed by user id so one user's
// messages stay ordered on one partition.
type KafkaSender struct {
	writer messageWriter
	topic  string
}

// NewKafkaSender returns a sender writing to topic on brokers, or nil if brokers or topic is empty.
// Call Close when shutting down.
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaSender{writer: writer, topic: topic}
}

// SendReset serializes the request as JSON and writes it to the topic.
func (s *KafkaSender) SendReset(ctx context.Context, req ResetRequest) error {
	if s == nil || s.writer == nil {
		return nil
	}
	payload, err := encodeReset(req)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(req.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(EventPasswordResetRequested)},
		},
	})
}

// Close closes the Kafka writer. Safe to call on a nil sender.
func (s *KafkaSender) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
