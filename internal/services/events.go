package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// GigEvent describes a change to a gig or one of its children. Dashboards
// subscribe per gig and refetch on receipt; the orchestrator itself stays
// transport-agnostic.
type GigEvent struct {
	GigID     uuid.UUID `json:"gig_id"`
	Kind      string    `json:"kind"` // gig|milestone|submission|transaction
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Unsubscribe tears down a subscription created by Subscribe.
type Unsubscribe func()

type EventBus interface {
	Publish(ctx context.Context, event GigEvent) error
	Subscribe(ctx context.Context, gigID uuid.UUID, onChange func(GigEvent)) Unsubscribe
}

// RedisBus carries gig events over Redis pub/sub, one channel per gig.
type RedisBus struct {
	rdb *redis.Client
}

func NewRedisBus(url string) (*RedisBus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBus{rdb: redis.NewClient(opts)}, nil
}

func channelFor(gigID uuid.UUID) string {
	return "gig-events:" + gigID.String()
}

func (b *RedisBus) Publish(ctx context.Context, event GigEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelFor(event.GigID), payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, gigID uuid.UUID, onChange func(GigEvent)) Unsubscribe {
	sub := b.rdb.Subscribe(ctx, channelFor(gigID))
	go func() {
		for msg := range sub.Channel() {
			var event GigEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("dropping malformed gig event: %v", err)
				continue
			}
			onChange(event)
		}
	}()
	return func() {
		_ = sub.Close()
	}
}

// MemoryBus is an in-process bus used when no REDIS_URL is configured and in
// tests.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[int]func(GigEvent)
	next int
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uuid.UUID]map[int]func(GigEvent))}
}

func (b *MemoryBus) Publish(ctx context.Context, event GigEvent) error {
	b.mu.RLock()
	handlers := make([]func(GigEvent), 0, len(b.subs[event.GigID]))
	for _, h := range b.subs[event.GigID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, gigID uuid.UUID, onChange func(GigEvent)) Unsubscribe {
	b.mu.Lock()
	if b.subs[gigID] == nil {
		b.subs[gigID] = make(map[int]func(GigEvent))
	}
	id := b.next
	b.next++
	b.subs[gigID][id] = onChange
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[gigID], id)
		b.mu.Unlock()
	}
}
