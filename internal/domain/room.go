package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Members struct {
	Host  Member  `bson:"host" json:"host"`
	Guest *Member `bson:"guest,omitempty" json:"guest,omitempty"`
}

type Room struct {
	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	Members   Members   `bson:"members" json:"members"`
	// Version is bumped by every committed write.
	Version int64 `bson:"version" json:"-"`
}

type RoomRepository interface {
	Create(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	// Update writes room only if the stored version still equals room.Version,
	// then advances room.Version. A stale version yields ErrVersionConflict.
	Update(ctx context.Context, room *Room) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Room, error)
	Count(ctx context.Context) (int, error)
	// ListExpired returns rooms whose expires_at is strictly before the cutoff.
	ListExpired(ctx context.Context, before time.Time) ([]Room, error)
}

// NewRoom opens a room for host. Timestamps are UTC at millisecond
// resolution so they survive a round trip through the store unchanged.
func NewRoom(host Member, now time.Time, ttl time.Duration) (*Room, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: room ttl must be positive", ErrInvalidInput)
	}
	if host.Password == nil {
		return nil, fmt.Errorf("%w: host must carry a password", ErrInvalidInput)
	}

	createdAt := now.UTC().Truncate(time.Millisecond)

	return &Room{
		ID:        uuid.NewString(),
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(ttl),
		Members:   Members{Host: host},
	}, nil
}

func (r *Room) IsExpired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

func (r *Room) IsHost(uid string) bool {
	return uid != "" && r.Members.Host.UID == uid
}

func (r *Room) Clone() *Room {
	out := *r
	out.Members.Host = r.Members.Host.clone()
	if r.Members.Guest != nil {
		guest := r.Members.Guest.clone()
		out.Members.Guest = &guest
	}
	return &out
}

// ApplyTransition moves the slot held by who to the next status. Any
// non-host identity leaving disconnected claims the guest slot unless another
// uid holds it while ready or connecting. It reports false when nothing
// changed.
func (r *Room) ApplyTransition(who Identity, next ConnectionStatus, now time.Time) (bool, error) {
	if who.UID == "" {
		return false, fmt.Errorf("%w: uid is required", ErrInvalidInput)
	}

	if r.IsHost(who.UID) {
		return true, r.Members.Host.Connection.Transition(next, now)
	}

	guest := r.Members.Guest
	if guest == nil || guest.UID != who.UID {
		if next == StatusDisconnected {
			return false, nil
		}
		if guest != nil && guest.Connection.Status != StatusDisconnected {
			return false, ErrRoomFull
		}
		claimed := NewGuest(who)
		if err := claimed.Connection.Transition(next, now); err != nil {
			return false, err
		}
		r.Members.Guest = &claimed
		return true, nil
	}

	if err := guest.Connection.Transition(next, now); err != nil {
		return false, err
	}
	if next != StatusDisconnected {
		guest.Identity = who
	}
	return true, nil
}
