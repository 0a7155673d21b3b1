package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func sampleRequest() ResetRequest {
	return ResetRequest{
		UserID:    "u1",
		Email:     "admin@client1.com",
		FullName:  "Admin",
		Token:     "tok",
		ExpiresAt: time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC),
	}
}

func TestWebhookSender_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["event"] != EventPasswordResetRequested || body["token"] != "tok" || body["email"] != "admin@client1.com" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	if err := NewWebhookSender(server.URL).SendReset(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("SendReset: %v", err)
	}
}

func TestWebhookSender_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	}))
	defer server.Close()

	if err := NewWebhookSender(server.URL).SendReset(context.Background(), sampleRequest()); err == nil {
		t.Fatal("SendReset should fail on non-2xx")
	}
}

func TestNewWebhookSender_EmptyURL(t *testing.T) {
	if NewWebhookSender("") != nil {
		t.Error("empty URL should yield nil sender")
	}
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSender_SendReset(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSender{writer: w, topic: "resets"}
	if err := s.SendReset(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("SendReset: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "u1" {
		t.Errorf("key = %q, want u1", msg.Key)
	}
	var decoded resetMessage
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Event != EventPasswordResetRequested || decoded.Token != "tok" || !decoded.ExpiresAt.Equal(sampleRequest().ExpiresAt) {
		t.Errorf("payload = %+v", decoded)
	}
	if err := s.Close(); err != nil || !w.closed {
		t.Errorf("Close: %v, closed=%v", err, w.closed)
	}
}

func TestKafkaSender_WriteError(t *testing.T) {
	s := &KafkaSender{writer: &fakeWriter{err: errors.New("no leader")}, topic: "resets"}
	if err := s.SendReset(context.Background(), sampleRequest()); err == nil {
		t.Fatal("SendReset should surface write errors")
	}
}

func TestKafkaSender_NilSafe(t *testing.T) {
	var s *KafkaSender
	if err := s.SendReset(context.Background(), sampleRequest()); err != nil {
		t.Errorf("nil SendReset: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
	if NewKafkaSender(nil, "topic") != nil || NewKafkaSender([]string{"b:9092"}, "") != nil {
		t.Error("NewKafkaSender without brokers or topic should return nil")
	}
}

func TestNew_SelectsChannel(t *testing.T) {
	if _, ok := New([]string{"localhost:9092"}, "resets", "http://hook").(*KafkaSender); !ok {
		t.Error("brokers configured: want KafkaSender")
	}
	if _, ok := New(nil, "resets", "http://hook").(*WebhookSender); !ok {
		t.Error("webhook configured: want WebhookSender")
	}
	if _, ok := New(nil, "", "").(LogSender); !ok {
		t.Error("nothing configured: want LogSender")
	}
}

type chanSender struct {
	got chan ResetRequest
	err error
}

func (c *chanSender) SendReset(ctx context.Context, req ResetRequest) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	c.got <- req
	return c.err
}

func (c *chanSender) Close() error { return nil }

func TestSendAsync(t *testing.T) {
	s := &chanSender{got: make(chan ResetRequest, 1), err: errors.New("ignored")}
	SendAsync(s, sampleRequest())
	select {
	case req := <-s.got:
		if req.UserID != "u1" {
			t.Errorf("UserID = %q", req.UserID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SendAsync did not deliver")
	}
	SendAsync(nil, sampleRequest())
}

func TestLogSender(t *testing.T) {
	var s LogSender
	if err := s.SendReset(context.Background(), sampleRequest()); err != nil {
		t.Errorf("SendReset: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
