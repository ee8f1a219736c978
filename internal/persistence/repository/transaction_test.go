package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hilthontt/duet/internal/domain"
	memory "github.com/hilthontt/duet/internal/infrastructure/repository"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// racyRepository widens the window between read and write.
type racyRepository struct {
	domain.RoomRepository
	delay time.Duration
}

func (r *racyRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	room, err := r.RoomRepository.GetByID(ctx, id)
	time.Sleep(r.delay)
	return room, err
}

// conflictingRepository fails the first n updates with a version conflict.
type conflictingRepository struct {
	domain.RoomRepository
	remaining atomic.Int32
	updates   atomic.Int32
}

func (r *conflictingRepository) Update(ctx context.Context, room *domain.Room) error {
	r.updates.Add(1)
	if r.remaining.Add(-1) >= 0 {
		return domain.ErrVersionConflict
	}
	return r.RoomRepository.Update(ctx, room)
}

func seedRoom(t *testing.T, repo domain.RoomRepository) *domain.Room {
	t.Helper()

	room, err := domain.NewRoom(
		domain.NewHost(domain.Identity{UID: "host"}, domain.Password{Value: "v", Salt: "s"}),
		t0,
		3*time.Minute,
	)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	if err := repo.Create(context.Background(), room); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return room
}

func transition(who domain.Identity, to domain.ConnectionStatus) Mutation {
	return func(room *domain.Room) (bool, error) {
		return room.ApplyTransition(who, to, t0)
	}
}

func TestTransactConcurrentMembersBothPersist(t *testing.T) {
	ctx := context.Background()
	repo := &racyRepository{RoomRepository: memory.NewRoomRepository(), delay: 2 * time.Millisecond}
	room := seedRoom(t, repo)

	host := domain.Identity{UID: "host"}
	guest := domain.Identity{UID: "guest"}
	opts := TxOptions{MaxAttempts: 50, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

	var conflicts atomic.Int32
	opts.OnConflict = func(int) { conflicts.Add(1) }

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	start := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		for _, to := range []domain.ConnectionStatus{domain.StatusReady, domain.StatusConnecting} {
			if _, err := Transact(ctx, repo, room.ID, transition(host, to), opts); err != nil {
				errs <- err
			}
		}
	}()
	go func() {
		defer wg.Done()
		<-start
		if _, err := Transact(ctx, repo, room.ID, transition(guest, domain.StatusReady), opts); err != nil {
			errs <- err
		}
	}()

	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("Transact: %v", err)
	}

	stored, err := repo.GetByID(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got := stored.Members.Host.Connection.Status; got != domain.StatusConnecting {
		t.Fatalf("host status = %s", got)
	}
	if stored.Members.Guest == nil || stored.Members.Guest.Connection.Status != domain.StatusReady {
		t.Fatalf("guest slot = %+v", stored.Members.Guest)
	}
	if stored.Version != 4 {
		t.Fatalf("version = %d, want 4 (one create and three commits)", stored.Version)
	}
	t.Logf("conflicts resolved: %d", conflicts.Load())
}

func TestTransactRetriesConflicts(t *testing.T) {
	ctx := context.Background()
	repo := &conflictingRepository{RoomRepository: memory.NewRoomRepository()}
	repo.remaining.Store(3)
	room := seedRoom(t, repo)

	var attempts []int
	updated, err := Transact(ctx, repo, room.ID, transition(domain.Identity{UID: "host"}, domain.StatusReady), TxOptions{
		InitialInterval: time.Millisecond,
		OnConflict:      func(attempt int) { attempts = append(attempts, attempt) },
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}

	if len(attempts) != 3 || attempts[2] != 3 {
		t.Fatalf("conflict attempts = %v", attempts)
	}
	if updated.Members.Host.Connection.Status != domain.StatusReady || updated.Version != 2 {
		t.Fatalf("updated room = %+v", updated)
	}
}

func TestTransactAbortsAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	repo := &conflictingRepository{RoomRepository: memory.NewRoomRepository()}
	repo.remaining.Store(1000)
	room := seedRoom(t, repo)

	_, err := Transact(ctx, repo, room.ID, transition(domain.Identity{UID: "host"}, domain.StatusReady), TxOptions{
		MaxAttempts:     4,
		InitialInterval: time.Millisecond,
	})
	if !errors.Is(err, domain.ErrTransactionAborted) {
		t.Fatalf("err = %v", err)
	}
	if got := repo.updates.Load(); got != 4 {
		t.Fatalf("update attempts = %d, want 4", got)
	}
}

func TestTransactDoesNotRetryPermanentErrors(t *testing.T) {
	ctx := context.Background()
	repo := &conflictingRepository{RoomRepository: memory.NewRoomRepository()}
	room := seedRoom(t, repo)

	if _, err := Transact(ctx, repo, "missing", transition(domain.Identity{UID: "host"}, domain.StatusReady), TxOptions{}); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("missing room: err = %v", err)
	}

	_, err := Transact(ctx, repo, room.ID, transition(domain.Identity{UID: "host"}, domain.StatusConnecting), TxOptions{})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("invalid transition: err = %v", err)
	}
	if got := repo.updates.Load(); got != 0 {
		t.Fatalf("updates = %d, want 0", got)
	}
}

func TestTransactSkipsWriteWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := &conflictingRepository{RoomRepository: memory.NewRoomRepository()}
	room := seedRoom(t, repo)

	got, err := Transact(ctx, repo, room.ID, transition(domain.Identity{UID: "stranger"}, domain.StatusDisconnected), TxOptions{})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if got.Version != 1 || repo.updates.Load() != 0 {
		t.Fatalf("no-op transition wrote: version=%d updates=%d", got.Version, repo.updates.Load())
	}
}
