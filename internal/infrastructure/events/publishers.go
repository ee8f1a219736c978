package events

import (
	"context"

	"github.com/hilthontt/duet/internal/domain"
	"go.uber.org/multierr"
)

// Publishers fans every event out to each publisher and combines failures.
type Publishers []domain.RoomEventPublisher

func (ps Publishers) PublishRoomCreated(ctx context.Context, room domain.Room) error {
	var errs error
	for _, p := range ps {
		errs = multierr.Append(errs, p.PublishRoomCreated(ctx, room))
	}
	return errs
}

func (ps Publishers) PublishRoomDeleted(ctx context.Context, roomID string) error {
	var errs error
	for _, p := range ps {
		errs = multierr.Append(errs, p.PublishRoomDeleted(ctx, roomID))
	}
	return errs
}
