package messaging

import "time"

const RoomsExchange = "rooms"

type RoomEventData struct {
	RoomID     string    `json:"room_id"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
	OccurredAt time.Time `json:"occurred_at"`
}
