package signon

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEngineEmitsAuditEvents(t *testing.T) {
	sink := NewChannelSink(16)

	provider := &fakeUserProvider{
		users: map[string]UserRecord{
			"a@b.com": {SubjectID: "42", Email: "a@b.com"},
		},
	}
	messenger := &captureMessenger{}

	engine, err := New().
		WithConfig(testConfig()).
		WithUserProvider(provider).
		WithMessenger(messenger).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	code, err := engine.IssueOTP(ctx, "a@b.com", "42")
	if err != nil {
		t.Fatalf("IssueOTP failed: %v", err)
	}
	if _, err := engine.VerifyOTP(ctx, "a@b.com", code); err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}

	events := make([]AuditEvent, 0, 2)
	timeout := time.After(time.Second)
	for len(events) < 2 {
		select {
		case event := <-sink.Events():
			events = append(events, event)
		case <-timeout:
			t.Fatalf("timed out waiting for audit events, have %d", len(events))
		}
	}

	if events[0].EventType != auditEventOTPIssued {
		t.Fatalf("expected otp_issued first, got %q", events[0].EventType)
	}
	if events[1].EventType != auditEventOTPVerifySuccess {
		t.Fatalf("expected otp_verify_success second, got %q", events[1].EventType)
	}
	for _, event := range events {
		if event.AccountKey != "a@b.com" || event.SubjectID != "42" {
			t.Fatalf("unexpected event attribution: %+v", event)
		}
		if event.IP != "203.0.113.7" {
			t.Fatalf("expected client IP on event, got %q", event.IP)
		}
	}
}

type slowSink struct {
	mu    sync.Mutex
	seen  int
	block chan struct{}
}

func (s *slowSink) Emit(ctx context.Context, event AuditEvent) {
	<-s.block
	s.mu.Lock()
	s.seen++
	s.mu.Unlock()
}

func TestDispatcherDropsWhenBufferFull(t *testing.T) {
	sink := &slowSink{block: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1}, sink)

	for i := 0; i < 16; i++ {
		d.Dispatch(AuditEvent{EventType: "test"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected drops when the buffer is full and the sink is stuck")
	}

	close(sink.block)
	d.Close()
}

func TestDispatcherCloseDrains(t *testing.T) {
	var mu sync.Mutex
	seen := 0
	sink := sinkFunc(func(ctx context.Context, event AuditEvent) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 64}, sink)
	for i := 0; i < 10; i++ {
		d.Dispatch(AuditEvent{EventType: "test"})
	}
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	if seen+int(d.Dropped()) != 10 {
		t.Fatalf("expected all events delivered or counted as dropped, delivered=%d dropped=%d", seen, d.Dropped())
	}
}

type sinkFunc func(ctx context.Context, event AuditEvent)

func (f sinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp:  time.Now(),
		EventType:  "otp_issued",
		AccountKey: "a@b.com",
		Success:    true,
	})

	line := strings.TrimSpace(buf.String())
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("sink did not write valid JSON: %v", err)
	}
	if decoded.EventType != "otp_issued" || decoded.AccountKey != "a@b.com" || !decoded.Success {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}
