package events

import (
	"context"
	"time"

	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/infrastructure/pubsub"
)

// LocalPublisher feeds lifecycle events into the in-process bus.
type LocalPublisher struct {
	bus    *pubsub.Bus
	origin string
	now    func() time.Time
}

func NewLocalPublisher(bus *pubsub.Bus, origin string) *LocalPublisher {
	return &LocalPublisher{
		bus:    bus,
		origin: origin,
		now:    time.Now,
	}
}

func (p *LocalPublisher) PublishRoomCreated(ctx context.Context, room domain.Room) error {
	p.bus.Publish(pubsub.Event{
		Type:       pubsub.RoomCreated,
		RoomID:     room.ID,
		Origin:     p.origin,
		OccurredAt: p.now().UTC(),
	})
	return nil
}

func (p *LocalPublisher) PublishRoomDeleted(ctx context.Context, roomID string) error {
	p.bus.Publish(pubsub.Event{
		Type:       pubsub.RoomDeleted,
		RoomID:     roomID,
		Origin:     p.origin,
		OccurredAt: p.now().UTC(),
	})
	return nil
}
