package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const webhookTimeout = 10 * time.Second

// WebhookSender POSTs reset deliveries as JSON to an HTTP endpoint (e.g. a mailer service).
type WebhookSender struct {
	URL        string
	HTTPClient *http.Client
}

// NewWebhookSender returns a sender posting to url, or nil if url is empty.
func NewWebhookSender(url string) *WebhookSender {
	if url == "" {
		return nil
	}
	return &WebhookSender{URL: url, HTTPClient: &http.Client{Timeout: webhookTimeout}}
}

// SendReset posts the delivery. Any non-2xx response is an error.
func (w *WebhookSender) SendReset(ctx context.Context, req ResetRequest) error {
	raw, err := encodeReset(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := w.HTTPClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: webhook failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

// Close is a no-op.
func (w *WebhookSender) Close() error { return nil }
