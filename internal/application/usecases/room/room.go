package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
	"github.com/hilthontt/duet/internal/infrastructure/metrics"
	"github.com/hilthontt/duet/internal/infrastructure/password"
	"github.com/hilthontt/duet/internal/infrastructure/tracing"
	"github.com/hilthontt/duet/internal/infrastructure/validate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
)

const (
	DefaultTTL       = 3 * time.Minute
	DefaultMaxActive = 12

	maxPasswordLength = 256
)

var validatePassword = validate.Field("password", validate.Required(), validate.MaxLength(maxPasswordLength))

var tracer = tracing.GetTracer("duet/usecases/room")

type RoomUseCase interface {
	Create(ctx context.Context, plainPassword string, host domain.Identity) (string, error)
	CheckPassword(ctx context.Context, roomID, plainPassword string) (bool, error)
	Sweep(ctx context.Context) (int, error)
	GetByID(ctx context.Context, roomID string) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	History(ctx context.Context, roomID string, limit int) ([]domain.RoomAuditLog, error)
}

type Options struct {
	TTL       time.Duration
	MaxActive int
	Now       func() time.Time
}

type roomUseCase struct {
	repository domain.RoomRepository
	hasher     *password.Hasher
	publisher  domain.RoomEventPublisher
	audit      domain.RoomAuditRepository
	metrics    *metrics.Metrics
	logger     logging.Logger
	ttl        time.Duration
	maxActive  int
	now        func() time.Time
}

// NewRoomUseCase wires the lifecycle manager. audit may be nil, in which
// case nothing is audited.
func NewRoomUseCase(
	repository domain.RoomRepository,
	hasher *password.Hasher,
	publisher domain.RoomEventPublisher,
	audit domain.RoomAuditRepository,
	metrics *metrics.Metrics,
	logger logging.Logger,
	opts Options,
) RoomUseCase {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &roomUseCase{
		repository: repository,
		hasher:     hasher,
		publisher:  publisher,
		audit:      audit,
		metrics:    metrics,
		logger:     logger,
		ttl:        opts.TTL,
		maxActive:  opts.MaxActive,
		now:        opts.Now,
	}
}

func (uc *roomUseCase) Create(ctx context.Context, plainPassword string, host domain.Identity) (string, error) {
	ctx, span := tracer.Start(ctx, "room.Create")
	defer span.End()

	if err := validatePassword(plainPassword); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := host.Validate(); err != nil {
		return "", err
	}

	if uc.maxActive > 0 {
		count, err := uc.repository.Count(ctx)
		if err != nil {
			return "", storageError("count rooms", err)
		}
		if count >= uc.maxActive {
			uc.logger.Warn(logging.Room, logging.Create, "room capacity reached", map[logging.ExtraKey]any{
				"active":     count,
				"max_active": uc.maxActive,
			})
			return "", domain.ErrRoomCapacityReached
		}
	}

	salt, err := uc.hasher.CreateSalt()
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	hashed, err := uc.hasher.Hash(plainPassword, salt)
	if err != nil {
		return "", err
	}

	room, err := domain.NewRoom(domain.NewHost(host, domain.Password{Value: hashed, Salt: salt}), uc.now(), uc.ttl)
	if err != nil {
		return "", err
	}

	if err := uc.repository.Create(ctx, room); err != nil {
		span.SetStatus(codes.Error, "store create failed")
		return "", storageError("create room", err)
	}
	span.SetAttributes(attribute.String("room.id", room.ID))
	uc.metrics.RoomCreated()

	if err := uc.publisher.PublishRoomCreated(ctx, *room); err != nil {
		uc.logger.Warn(logging.Room, logging.Publish, "failed to publish room created", map[logging.ExtraKey]any{
			logging.RoomID:       room.ID,
			logging.ErrorMessage: err.Error(),
		})
	}
	uc.writeAudit(ctx, domain.NewRoomCreatedLog(room))

	uc.logger.Info(logging.Room, logging.Create, "room created", map[logging.ExtraKey]any{
		logging.RoomID: room.ID,
		logging.UID:    host.UID,
		"expires_at":   room.ExpiresAt,
	})

	return room.ID, nil
}

func (uc *roomUseCase) CheckPassword(ctx context.Context, roomID, plainPassword string) (bool, error) {
	ctx, span := tracer.Start(ctx, "room.CheckPassword")
	defer span.End()

	if roomID == "" {
		return false, fmt.Errorf("%w: room_id is required", domain.ErrInvalidInput)
	}

	room, err := uc.repository.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return false, err
		}
		return false, storageError("get room", err)
	}

	stored := room.Members.Host.Password
	if stored == nil {
		return false, nil
	}

	ok, err := uc.hasher.Compare(plainPassword, *stored)
	if err != nil {
		return false, err
	}
	if !ok {
		uc.logger.Info(logging.Room, logging.CheckSecret, "wrong room password", map[logging.ExtraKey]any{
			logging.RoomID: roomID,
		})
	}
	return ok, nil
}

// Sweep deletes every room whose expiry lies strictly in the past. A failed
// deletion is left for the next cycle.
func (uc *roomUseCase) Sweep(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "room.Sweep")
	defer span.End()

	uc.metrics.SweepRun()
	now := uc.now()

	expired, err := uc.repository.ListExpired(ctx, now)
	if err != nil {
		return 0, storageError("list expired rooms", err)
	}

	var errs error
	deleted := 0
	for _, room := range expired {
		if err := uc.repository.Delete(ctx, room.ID); err != nil {
			if errors.Is(err, domain.ErrRoomNotFound) {
				continue
			}
			uc.metrics.SweepFailure()
			uc.logger.Error(logging.Sweep, logging.Delete, "failed to delete expired room", map[logging.ExtraKey]any{
				logging.RoomID:       room.ID,
				logging.ErrorMessage: err.Error(),
			})
			errs = multierr.Append(errs, storageError("delete room "+room.ID, err))
			continue
		}

		deleted++
		uc.metrics.RoomDeleted()

		if err := uc.publisher.PublishRoomDeleted(ctx, room.ID); err != nil {
			uc.logger.Warn(logging.Sweep, logging.Publish, "failed to publish room deleted", map[logging.ExtraKey]any{
				logging.RoomID:       room.ID,
				logging.ErrorMessage: err.Error(),
			})
		}
		uc.writeAudit(ctx, domain.NewRoomExpiredLog(room, now))
	}

	span.SetAttributes(attribute.Int("rooms.expired", len(expired)), attribute.Int("rooms.deleted", deleted))
	if deleted > 0 {
		uc.logger.Info(logging.Sweep, logging.Delete, "expired rooms removed", map[logging.ExtraKey]any{
			"deleted": deleted,
		})
	}

	return deleted, errs
}

func (uc *roomUseCase) GetByID(ctx context.Context, roomID string) (*domain.Room, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: room_id is required", domain.ErrInvalidInput)
	}

	room, err := uc.repository.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, err
		}
		return nil, storageError("get room", err)
	}
	return room, nil
}

func (uc *roomUseCase) List(ctx context.Context) ([]domain.Room, error) {
	rooms, err := uc.repository.List(ctx)
	if err != nil {
		return nil, storageError("list rooms", err)
	}
	return rooms, nil
}

// History returns the newest audit entries for a room, or nothing when
// auditing is not configured.
func (uc *roomUseCase) History(ctx context.Context, roomID string, limit int) ([]domain.RoomAuditLog, error) {
	if uc.audit == nil {
		return []domain.RoomAuditLog{}, nil
	}

	logs, err := uc.audit.GetByRoomID(ctx, roomID, limit)
	if err != nil {
		return nil, storageError("read audit log", err)
	}
	return logs, nil
}

func (uc *roomUseCase) writeAudit(ctx context.Context, entry *domain.RoomAuditLog) {
	if uc.audit == nil {
		return
	}
	if err := uc.audit.Log(ctx, entry); err != nil {
		uc.logger.Warn(logging.Room, logging.Audit, "failed to write audit log", map[logging.ExtraKey]any{
			logging.RoomID:       entry.RoomID,
			logging.EventType:    entry.EventType,
			logging.ErrorMessage: err.Error(),
		})
	}
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}
