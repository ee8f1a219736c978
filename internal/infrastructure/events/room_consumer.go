package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/duet/internal/infrastructure/contracts"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
	"github.com/hilthontt/duet/internal/infrastructure/messaging"
	"github.com/hilthontt/duet/internal/infrastructure/pubsub"
	"github.com/rabbitmq/amqp091-go"
)

// RoomConsumer replays room deletions announced by other replicas onto the
// local bus so their sockets see delete-room too.
type RoomConsumer struct {
	rabbitmq *messaging.RabbitMQ
	bus      *pubsub.Bus
	origin   string
	logger   logging.Logger
}

func NewRoomConsumer(rabbitmq *messaging.RabbitMQ, bus *pubsub.Bus, origin string, logger logging.Logger) *RoomConsumer {
	return &RoomConsumer{
		rabbitmq: rabbitmq,
		bus:      bus,
		origin:   origin,
		logger:   logger,
	}
}

func (c *RoomConsumer) Listen(ctx context.Context) error {
	queue, err := c.rabbitmq.DeclareInstanceQueue(contracts.EventRoomDeleted)
	if err != nil {
		return err
	}
	return c.rabbitmq.ConsumeMessages(ctx, queue, c.handle)
}

func (c *RoomConsumer) handle(ctx context.Context, msg amqp091.Delivery) error {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	// Local deletions already went through the bus.
	if message.Origin == c.origin {
		return nil
	}

	var payload messaging.RoomEventData
	if err := json.Unmarshal(message.Data, &payload); err != nil {
		return fmt.Errorf("unmarshal room event: %w", err)
	}
	if payload.RoomID == "" {
		return fmt.Errorf("room event without room id")
	}

	switch msg.RoutingKey {
	case contracts.EventRoomDeleted:
		c.bus.Publish(pubsub.Event{
			Type:       pubsub.RoomDeleted,
			RoomID:     payload.RoomID,
			Origin:     message.Origin,
			OccurredAt: payload.OccurredAt,
		})
		c.logger.Debug(logging.RabbitMQ, logging.Consume, "remote room deletion relayed", map[logging.ExtraKey]any{
			logging.RoomID: payload.RoomID,
			"origin":       message.Origin,
		})
	}

	return nil
}
