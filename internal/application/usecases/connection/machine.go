package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
	"github.com/hilthontt/duet/internal/infrastructure/metrics"
	"github.com/hilthontt/duet/internal/infrastructure/tracing"
	"github.com/hilthontt/duet/internal/persistence/repository"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = tracing.GetTracer("duet/usecases/connection")

// RoomUpdateNotifier is told about every committed member change.
type RoomUpdateNotifier interface {
	RoomUpdated(room domain.Room)
}

type Options struct {
	MaxAttempts uint
	Now         func() time.Time
}

type Machine struct {
	repository  domain.RoomRepository
	metrics     *metrics.Metrics
	logger      logging.Logger
	notifier    RoomUpdateNotifier
	maxAttempts uint
	now         func() time.Time
}

func NewMachine(repo domain.RoomRepository, metrics *metrics.Metrics, logger logging.Logger, opts Options) *Machine {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = repository.DefaultMaxAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Machine{
		repository:  repo,
		metrics:     metrics,
		logger:      logger,
		maxAttempts: opts.MaxAttempts,
		now:         opts.Now,
	}
}

// SetNotifier must be called before the machine serves traffic.
func (m *Machine) SetNotifier(n RoomUpdateNotifier) {
	m.notifier = n
}

// Transition moves who's slot in the room to status to. Concurrent writers
// to the same room are serialized by the store's version check.
func (m *Machine) Transition(ctx context.Context, roomID string, who domain.Identity, to domain.ConnectionStatus) (*domain.Room, error) {
	ctx, span := tracer.Start(ctx, "connection.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("room.id", roomID),
		attribute.String("connection.status", string(to)),
	)

	if roomID == "" {
		return nil, fmt.Errorf("%w: room_id is required", domain.ErrInvalidInput)
	}
	if to != domain.StatusDisconnected {
		if err := who.Validate(); err != nil {
			return nil, err
		}
	}

	committed := false
	room, err := repository.Transact(ctx, m.repository, roomID, func(room *domain.Room) (bool, error) {
		changed, err := room.ApplyTransition(who, to, m.now().UTC())
		committed = changed
		return changed, err
	}, repository.TxOptions{
		MaxAttempts: m.maxAttempts,
		OnConflict: func(attempt int) {
			m.metrics.TransactionConflict()
			m.logger.Debug(logging.Room, logging.Transition, "room write conflict, retrying", map[logging.ExtraKey]any{
				logging.RoomID: roomID,
				"attempt":      attempt,
			})
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, m.classify(roomID, err)
	}

	if committed {
		m.metrics.Transition(string(to))
		m.logger.Info(logging.Room, logging.Transition, "connection status changed", map[logging.ExtraKey]any{
			logging.RoomID: roomID,
			logging.UID:    who.UID,
			"status":       to,
		})
		if m.notifier != nil {
			m.notifier.RoomUpdated(*room)
		}
	}
	return room, nil
}

// MemberLeft marks uid disconnected after its socket went away.
func (m *Machine) MemberLeft(ctx context.Context, roomID, uid string) {
	if roomID == "" || uid == "" {
		return
	}

	_, err := m.Transition(ctx, roomID, domain.Identity{UID: uid}, domain.StatusDisconnected)
	if err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		m.logger.Warn(logging.Relay, logging.Disconnect, "failed to mark member disconnected", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.UID:          uid,
			logging.ErrorMessage: err.Error(),
		})
	}
}

func (m *Machine) classify(roomID string, err error) error {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRoomFull):
		return err
	case errors.Is(err, domain.ErrTransactionAborted):
		m.logger.Warn(logging.Room, logging.Transition, "transition aborted after repeated conflicts", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: transition: %w", domain.ErrStorage, err)
}
