// Package pubsub is the process-wide fanout for room lifecycle events.
package pubsub

import (
	"sync"
	"time"

	"github.com/hilthontt/duet/internal/infrastructure/logging"
)

type EventType string

const (
	RoomCreated EventType = "room.created"
	RoomDeleted EventType = "room.deleted"
)

type Event struct {
	Type       EventType `json:"type"`
	RoomID     string    `json:"room_id"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	logger logging.Logger
}

type Subscription struct {
	C <-chan Event

	c      chan Event
	id     uint64
	types  map[EventType]struct{}
	bus    *Bus
	closed bool
}

func NewBus(buffer int, logger logging.Logger) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a listener for the given event types, or for every
// type when none are given. Callers must Close the subscription.
func (b *Bus) Subscribe(types ...EventType) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	c := make(chan Event, b.buffer)
	sub := &Subscription{
		C:   c,
		c:   c,
		id:  b.nextID,
		bus: b,
	}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.subs[sub.id] = sub
	return sub
}

// Publish delivers ev to every matching subscriber without blocking. A
// subscriber whose buffer is full misses the event.
func (b *Bus) Publish(ev Event) int {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for _, sub := range b.subs {
		if !sub.wants(ev.Type) {
			continue
		}
		select {
		case sub.c <- ev:
			delivered++
		default:
			b.logger.Warn(logging.Relay, logging.Drop, "subscriber buffer full, dropping event", map[logging.ExtraKey]any{
				logging.EventType: ev.Type,
				logging.RoomID:    ev.RoomID,
			})
		}
	}
	return delivered
}

func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

func (s *Subscription) wants(t EventType) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(s.bus.subs, s.id)
	close(s.c)
}
