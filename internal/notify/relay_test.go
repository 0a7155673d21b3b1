package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

// scriptedReader returns queued messages, then cancels the relay context.
type scriptedReader struct {
	msgs   []kafka.Message
	errs   []error
	cancel context.CancelFunc
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func TestRelay_ForwardsResetMessages(t *testing.T) {
	valid, err := encodeReset(sampleRequest())
	if err != nil {
		t.Fatalf("encodeReset: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &scriptedReader{
		errs: []error{errors.New("broker hiccup")},
		msgs: []kafka.Message{
			{Value: []byte("not json")},
			{Value: []byte(`{"event":"something_else"}`)},
			{Value: valid},
		},
		cancel: cancel,
	}
	sender := &chanSender{got: make(chan ResetRequest, 3)}

	if err := Relay(ctx, reader, sender); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if len(sender.got) != 1 {
		t.Fatalf("delivered %d messages, want 1", len(sender.got))
	}
	got := <-sender.got
	want := sampleRequest()
	if got.UserID != want.UserID || got.Email != want.Email || got.Token != want.Token || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("delivered %+v, want %+v", got, want)
	}
}

func TestRelay_BacksOffOnPersistentReadErrors(t *testing.T) {
	origMin, origMax, origWait := relayBackoffMin, relayBackoffMax, relayWait
	t.Cleanup(func() { relayBackoffMin, relayBackoffMax, relayWait = origMin, origMax, origWait })
	relayBackoffMin, relayBackoffMax = time.Second, 4*time.Second

	var waits []time.Duration
	relayWait = func(_ context.Context, d time.Duration) bool {
		waits = append(waits, d)
		return true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	down := errors.New("broker down")
	reader := &scriptedReader{errs: []error{down, down, down, down, down}, cancel: cancel}

	if err := Relay(ctx, reader, &chanSender{got: make(chan ResetRequest, 1)}); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second, 4 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait %d = %s, want %s", i, waits[i], want[i])
		}
	}
}

func TestRelay_StopsWhenCancelledDuringBackoff(t *testing.T) {
	origMin := relayBackoffMin
	t.Cleanup(func() { relayBackoffMin = origMin })
	relayBackoffMin = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &scriptedReader{errs: []error{errors.New("broker down")}, cancel: cancel}

	done := make(chan error, 1)
	go func() { done <- Relay(ctx, reader, &chanSender{got: make(chan ResetRequest, 1)}) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Relay: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Relay did not return after cancellation")
	}
}

func TestDecodeReset_RoundTrip(t *testing.T) {
	raw, err := encodeReset(sampleRequest())
	if err != nil {
		t.Fatalf("encodeReset: %v", err)
	}
	got, err := decodeReset(raw)
	if err != nil {
		t.Fatalf("decodeReset: %v", err)
	}
	if got.FullName != "Admin" {
		t.Errorf("FullName = %q", got.FullName)
	}
}
