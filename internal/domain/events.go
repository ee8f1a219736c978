package domain

import "context"

// RoomEventPublisher announces lifecycle changes to the rest of the system.
type RoomEventPublisher interface {
	PublishRoomCreated(ctx context.Context, room Room) error
	PublishRoomDeleted(ctx context.Context, roomID string) error
}
