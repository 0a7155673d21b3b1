// Worker relays password reset messages from Kafka to the notification webhook (e.g. a mailer).
// Set NOTIFY_KAFKA_BROKERS, NOTIFY_KAFKA_TOPIC, NOTIFY_KAFKA_GROUP_ID and NOTIFY_WEBHOOK_URL.
// JWT_SECRET is required by config validation but unused here.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/config"
	"github.com/KoAt-DEV/multi-tenant-saas-starter/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.NotifyKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: NOTIFY_KAFKA_BROKERS is required")
	}
	sender := notify.NewWebhookSender(cfg.NotifyWebhookURL)
	if sender == nil {
		log.Fatal("worker: NOTIFY_WEBHOOK_URL is required")
	}

	reader := notify.NewKafkaReader(brokers, cfg.NotifyKafkaTopic, cfg.NotifyKafkaGroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker: consuming %s (group %s), posting to webhook", cfg.NotifyKafkaTopic, cfg.NotifyKafkaGroupID)
	if err := notify.Relay(ctx, reader, sender); err != nil {
		log.Fatalf("worker: %v", err)
	}
	log.Println("worker: stopped")
}
