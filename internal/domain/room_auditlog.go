package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventRoomCreated RoomEventType = "room_created"
	EventRoomExpired RoomEventType = "room_expired"
)

type RoomAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"room_id"`
	EventType RoomEventType  `bson:"event_type" json:"event_type"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, log *RoomAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]RoomAuditLog, error)
	EnsureIndexes(ctx context.Context) error
}

func NewRoomCreatedLog(room *Room) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		EventType: EventRoomCreated,
		Timestamp: room.CreatedAt,
		Metadata: map[string]any{
			"host_uid":    room.Members.Host.UID,
			"ttl_seconds": room.ExpiresAt.Sub(room.CreatedAt).Seconds(),
		},
	}
}

func NewRoomExpiredLog(room Room, sweptAt time.Time) *RoomAuditLog {
	metadata := map[string]any{
		"expires_at":   room.ExpiresAt,
		"lag_seconds":  sweptAt.Sub(room.ExpiresAt).Seconds(),
		"guest_joined": room.Members.Guest != nil,
	}

	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		EventType: EventRoomExpired,
		Timestamp: sweptAt,
		Metadata:  metadata,
	}
}
