package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

// resetMessage is the JSON payload published to Kafka and POSTed to the webhook.
type resetMessage struct {
	Event     string    `json:"event"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func encodeReset(req ResetRequest) ([]byte, error) {
	return json.Marshal(resetMessage{
		Event:     EventPasswordResetRequested,
		UserID:    req.UserID,
		Email:     req.Email,
		FullName:  req.FullName,
		Token:     req.Token,
		ExpiresAt: req.ExpiresAt.UTC(),
	})
}

// decodeReset parses a payload produced by encodeReset. Messages for other events are rejected.
func decodeReset(raw []byte) (ResetRequest, error) {
	var m resetMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return ResetRequest{}, fmt.Errorf("notify: decode message: %w", err)
	}
	if m.Event != EventPasswordResetRequested {
		return ResetRequest{}, fmt.Errorf("notify: unexpected event %q", m.Event)
	}
	return ResetRequest{
		UserID:    m.UserID,
		Email:     m.Email,
		FullName:  m.FullName,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
	}, nil
}
