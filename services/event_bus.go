package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Change-event types published by mutation paths. Clients listening on the SSE
// stream re-query on receipt, so reads converge on the latest committed write.
const (
	EventPurchase     = "purchase"
	EventSubscription = "subscription"
	EventEnrollment   = "enrollment"
	EventProgress     = "progress"
)

// ChangeEvent is a user-scoped notification that entitlement or progress state
// changed. SubjectID carries the course, instructor or breakdown concerned.
type ChangeEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	SubjectID string `json:"subject_id,omitempty"`
}

// EventBus fans mutation events out to SSE listeners.
type EventBus interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	Subscribe(ctx context.Context) (<-chan ChangeEvent, func(), error)
}

// ---- Redis bus ----

type redisBus struct {
	rdb     *goredis.Client
	channel string
}

// NewRedisBus connects to REDIS_ADDR and publishes change events on a single
// pub/sub channel.
func NewRedisBus() (EventBus, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	channel := strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	if channel == "" {
		channel = "platform-events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{rdb: rdb, channel: channel}, nil
}

func (b *redisBus) Publish(ctx context.Context, ev ChangeEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) Subscribe(ctx context.Context) (<-chan ChangeEvent, func(), error) {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures the subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan ChangeEvent, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("event bus: dropping malformed payload: %v", err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}

// ---- In-process bus ----

// memoryBus is the redis-less fallback (local dev, tests). Same contract,
// process-local fan-out only.
type memoryBus struct {
	mu   sync.Mutex
	subs map[chan ChangeEvent]struct{}
}

func NewMemoryBus() EventBus {
	return &memoryBus{subs: make(map[chan ChangeEvent]struct{})}
}

func (b *memoryBus) Publish(_ context.Context, ev ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default: // slow listener, drop rather than block the mutation path
		}
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context) (<-chan ChangeEvent, func(), error) {
	ch := make(chan ChangeEvent, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel, nil
}
