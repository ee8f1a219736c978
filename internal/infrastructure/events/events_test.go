package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/infrastructure/contracts"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
	"github.com/hilthontt/duet/internal/infrastructure/messaging"
	"github.com/hilthontt/duet/internal/infrastructure/pubsub"
	"github.com/rabbitmq/amqp091-go"
)

type recordingBroker struct {
	keys     []string
	messages []contracts.AmqpMessage
	err      error
}

func (b *recordingBroker) PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error {
	b.keys = append(b.keys, routingKey)
	b.messages = append(b.messages, message)
	return b.err
}

func TestRoomPublisherEnvelope(t *testing.T) {
	broker := &recordingBroker{}
	p := NewRoomPublisher(broker, "replica-a")

	if err := p.PublishRoomDeleted(context.Background(), "r1"); err != nil {
		t.Fatalf("PublishRoomDeleted: %v", err)
	}

	if len(broker.keys) != 1 || broker.keys[0] != contracts.EventRoomDeleted {
		t.Fatalf("routing keys = %v", broker.keys)
	}
	if broker.messages[0].Origin != "replica-a" {
		t.Fatalf("origin = %q", broker.messages[0].Origin)
	}
	var payload messaging.RoomEventData
	if err := json.Unmarshal(broker.messages[0].Data, &payload); err != nil || payload.RoomID != "r1" {
		t.Fatalf("payload = %+v, %v", payload, err)
	}
}

func TestLocalPublisherFeedsBus(t *testing.T) {
	bus := pubsub.NewBus(4, logging.NewNop())
	sub := bus.Subscribe(pubsub.RoomDeleted)
	defer sub.Close()

	p := NewLocalPublisher(bus, "replica-a")
	_ = p.PublishRoomCreated(context.Background(), domain.Room{ID: "r0"})
	_ = p.PublishRoomDeleted(context.Background(), "r1")

	select {
	case ev := <-sub.C:
		if ev.RoomID != "r1" || ev.Origin != "replica-a" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no deletion event")
	}
}

func TestPublishersCombinesErrors(t *testing.T) {
	ok := &recordingBroker{}
	failing := &recordingBroker{err: errors.New("broker down")}

	ps := Publishers{NewRoomPublisher(failing, "a"), NewRoomPublisher(ok, "a")}
	err := ps.PublishRoomDeleted(context.Background(), "r1")

	if err == nil || err.Error() != "broker down" {
		t.Fatalf("err = %v", err)
	}
	if len(ok.keys) != 1 {
		t.Fatal("a failing publisher stopped the fanout")
	}
}

func delivery(t *testing.T, key, origin, roomID string) amqp091.Delivery {
	t.Helper()

	data, _ := json.Marshal(messaging.RoomEventData{RoomID: roomID})
	body, _ := json.Marshal(contracts.AmqpMessage{Origin: origin, Data: data})
	return amqp091.Delivery{RoutingKey: key, Body: body}
}

func TestRoomConsumerRelaysRemoteDeletions(t *testing.T) {
	bus := pubsub.NewBus(4, logging.NewNop())
	sub := bus.Subscribe()
	defer sub.Close()

	c := NewRoomConsumer(nil, bus, "replica-a", logging.NewNop())
	ctx := context.Background()

	if err := c.handle(ctx, delivery(t, contracts.EventRoomDeleted, "replica-a", "own")); err != nil {
		t.Fatalf("own event: %v", err)
	}
	if err := c.handle(ctx, delivery(t, contracts.EventRoomDeleted, "replica-b", "remote")); err != nil {
		t.Fatalf("remote event: %v", err)
	}
	if err := c.handle(ctx, amqp091.Delivery{RoutingKey: contracts.EventRoomDeleted, Body: []byte("nope")}); err == nil {
		t.Fatal("malformed delivery accepted")
	}

	select {
	case ev := <-sub.C:
		if ev.RoomID != "remote" || ev.Type != pubsub.RoomDeleted {
			t.Fatalf("event = %+v", ev)
		}
	default:
		t.Fatal("remote deletion not relayed")
	}
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected second event %+v", ev)
	default:
	}
}
