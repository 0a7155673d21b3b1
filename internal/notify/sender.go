// Package notify hands password reset tokens to an out-of-band delivery channel (Kafka, an HTTP
// webhook, or the process log in development). Rendering and sending email is the consumer's job.
package notify

import (
	"context"
	"log"
	"time"
)

// sendTimeout bounds a single async delivery attempt.
const sendTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait on shutdown so in-flight async deliveries can finish.
const ShutdownDrainDuration = sendTimeout

// EventPasswordResetRequested is the event name carried on every reset delivery message.
const EventPasswordResetRequested = "password_reset_requested"

// ResetRequest is a single reset token delivery. Token is the plaintext token and must never be logged.
type ResetRequest struct {
	UserID    string
	Email     string
	FullName  string
	Token     string
	ExpiresAt time.Time
}

// Sender delivers reset tokens. Implementations may block; callers use SendAsync.
type Sender interface {
	SendReset(ctx context.Context, req ResetRequest) error
	Close() error
}

// SendAsync runs SendReset in a goroutine with its own timeout so request cancellation does not
// abort delivery. Failures are logged and never reach the caller.
func SendAsync(sender Sender, req ResetRequest) {
	if sender == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := sender.SendReset(ctx, req); err != nil {
			log.Printf("notify: reset delivery for user %s failed: %v", req.UserID, err)
		}
	}()
}

// LogSender records that a reset was requested without the token. Used when no channel is configured.
type LogSender struct{}

// SendReset logs the delivery request.
func (LogSender) SendReset(ctx context.Context, req ResetRequest) error {
	log.Printf("notify: password reset requested for user %s (expires %s); no delivery channel configured",
		req.UserID, req.ExpiresAt.Format(time.RFC3339))
	return nil
}

// Close is a no-op.
func (LogSender) Close() error { return nil }
