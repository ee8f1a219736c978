package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	Origin string `json:"origin"`
	Data   []byte `json:"data"`
}

// Routing keys
const (
	EventRoomCreated = "room.created"
	EventRoomDeleted = "room.deleted"
)
