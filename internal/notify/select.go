package notify

import "log"

// New picks the delivery channel: Kafka when brokers are configured, else the webhook when a URL
// is set, else LogSender.
func New(kafkaBrokers []string, kafkaTopic, webhookURL string) Sender {
	if k := NewKafkaSender(kafkaBrokers, kafkaTopic); k != nil {
		log.Printf("notify: delivering reset tokens to kafka topic %s", kafkaTopic)
		return k
	}
	if w := NewWebhookSender(webhookURL); w != nil {
		log.Printf("notify: delivering reset tokens to webhook")
		return w
	}
	return LogSender{}
}
