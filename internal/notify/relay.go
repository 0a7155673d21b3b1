package notify

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageReader is the kafka.Reader subset used by Relay.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// NewKafkaReader returns a consumer-group reader for the reset topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Consecutive read errors back off exponentially from relayBackoffMin up to relayBackoffMax.
var (
	relayBackoffMin = 100 * time.Millisecond
	relayBackoffMax = 10 * time.Second
	relayWait       = waitOrDone
)

// Relay reads reset messages and hands each to sender until ctx is done. Malformed messages and
// delivery failures are logged and skipped; the offset still advances. Read errors are retried
// after a backoff that resets once a message is read.
func Relay(ctx context.Context, reader messageReader, sender Sender) error {
	var backoff time.Duration
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			backoff = nextBackoff(backoff)
			log.Printf("notify: relay read: %v (retrying in %s)", err, backoff)
			if !relayWait(ctx, backoff) {
				return nil
			}
			continue
		}
		backoff = 0
		req, err := decodeReset(msg.Value)
		if err != nil {
			log.Printf("notify: relay skip offset %d: %v", msg.Offset, err)
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		if err := sender.SendReset(sendCtx, req); err != nil {
			log.Printf("notify: relay delivery for user %s failed: %v", req.UserID, err)
		}
		cancel()
	}
}

func nextBackoff(prev time.Duration) time.Duration {
	if prev <= 0 {
		return relayBackoffMin
	}
	if next := prev * 2; next < relayBackoffMax {
		return next
	}
	return relayBackoffMax
}

// waitOrDone sleeps for d and reports false if ctx ended first.
func waitOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
