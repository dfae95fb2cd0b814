package signon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeUserProvider struct {
	users   map[string]UserRecord
	lookups int
	fail    error
}

func (p *fakeUserProvider) GetUserByIdentifier(ctx context.Context, identifier string) (*UserRecord, error) {
	p.lookups++
	if p.fail != nil {
		return nil, p.fail
	}
	user, ok := p.users[identifier]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

type delivery struct {
	AccountKey string
	Message    Message
}

type captureMessenger struct {
	mu        sync.Mutex
	delivered []delivery
	fail      error
}

func (m *captureMessenger) Deliver(ctx context.Context, accountKey string, msg Message) error {
	if m.fail != nil {
		return m.fail
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, delivery{AccountKey: accountKey, Message: msg})
	return nil
}

func (m *captureMessenger) last(t *testing.T) delivery {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.delivered) == 0 {
		t.Fatal("expected at least one delivery")
	}
	return m.delivered[len(m.delivered)-1]
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessKey = []byte("test-access-key-0123456789abcdef")
	cfg.JWT.RefreshKey = []byte("test-refresh-key-0123456789abcde")
	return cfg
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) (*Engine, *fakeUserProvider, *captureMessenger) {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	provider := &fakeUserProvider{
		users: map[string]UserRecord{
			"a@b.com": {SubjectID: "42", Email: "a@b.com"},
		},
	}
	messenger := &captureMessenger{}

	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(provider).
		WithMessenger(messenger).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, provider, messenger
}

func newRedisTestEngine(t *testing.T, mutate ...func(*Config)) (*Engine, *miniredis.Miniredis, *captureMessenger) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	provider := &fakeUserProvider{
		users: map[string]UserRecord{
			"a@b.com": {SubjectID: "42", Email: "a@b.com"},
		},
	}
	messenger := &captureMessenger{}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(provider).
		WithMessenger(messenger).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr, messenger
}

func waitForCounter(t *testing.T, engine *Engine, id MetricID, want uint64) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if engine.MetricsSnapshot().Counters[id] >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("counter %d never reached %d (have %d)", id, want, engine.MetricsSnapshot().Counters[id])
}
