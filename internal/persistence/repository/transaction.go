package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hilthontt/duet/internal/domain"
)

const DefaultMaxAttempts = 8

// Mutation edits a freshly read room. Returning false skips the write.
type Mutation func(room *domain.Room) (bool, error)

type TxOptions struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// OnConflict is called once per lost compare-and-swap.
	OnConflict func(attempt int)
}

// Transact applies mutate to the current state of a room and commits it with
// a version check. On a conflicting write the room is re-read and mutate runs
// again, with exponential backoff between attempts.
func Transact(ctx context.Context, repo domain.RoomRepository, roomID string, mutate Mutation, opts TxOptions) (*domain.Room, error) {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	if opts.InitialInterval > 0 {
		b.InitialInterval = opts.InitialInterval
	}
	if opts.MaxInterval > 0 {
		b.MaxInterval = opts.MaxInterval
	}

	attempt := 0
	operation := func() (*domain.Room, error) {
		attempt++

		room, err := repo.GetByID(ctx, roomID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		changed, err := mutate(room)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if !changed {
			return room, nil
		}

		if err := repo.Update(ctx, room); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				if opts.OnConflict != nil {
					opts.OnConflict(attempt)
				}
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return room, nil
	}

	room, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(opts.MaxAttempts),
	)
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: room %s after %d attempts", domain.ErrTransactionAborted, roomID, attempt)
		}
		return nil, err
	}
	return room, nil
}
