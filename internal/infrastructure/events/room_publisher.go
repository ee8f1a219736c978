package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/infrastructure/contracts"
	"github.com/hilthontt/duet/internal/infrastructure/messaging"
)

type MessagePublisher interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

// RoomPublisher announces lifecycle events to other replicas over RabbitMQ.
type RoomPublisher struct {
	broker MessagePublisher
	origin string
}

func NewRoomPublisher(broker MessagePublisher, origin string) *RoomPublisher {
	return &RoomPublisher{
		broker: broker,
		origin: origin,
	}
}

func (p *RoomPublisher) PublishRoomCreated(ctx context.Context, room domain.Room) error {
	return p.publish(ctx, contracts.EventRoomCreated, messaging.RoomEventData{
		RoomID:     room.ID,
		CreatedAt:  room.CreatedAt,
		ExpiresAt:  room.ExpiresAt,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *RoomPublisher) PublishRoomDeleted(ctx context.Context, roomID string) error {
	return p.publish(ctx, contracts.EventRoomDeleted, messaging.RoomEventData{
		RoomID:     roomID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *RoomPublisher) publish(ctx context.Context, routingKey string, payload messaging.RoomEventData) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.broker.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		Origin: p.origin,
		Data:   data,
	})
}
