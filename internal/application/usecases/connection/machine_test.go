package connection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
	"github.com/hilthontt/duet/internal/infrastructure/repository"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu    sync.Mutex
	rooms []domain.Room
}

func (n *recordingNotifier) RoomUpdated(room domain.Room) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rooms = append(n.rooms, room)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.rooms)
}

func setup(t *testing.T) (*Machine, domain.RoomRepository, *recordingNotifier, string) {
	t.Helper()

	repo := repository.NewRoomRepository()
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

	m := NewMachine(repo, nil, logging.NewNop(), Options{
		MaxAttempts: 50,
		Now:         func() time.Time { return t0.Add(time.Minute) },
	})
	n := &recordingNotifier{}
	m.SetNotifier(n)
	return m, repo, n, room.ID
}

func TestHostAndGuestTransitionConcurrently(t *testing.T) {
	m, repo, _, roomID := setup(t)
	ctx := context.Background()

	host := domain.Identity{UID: "host"}
	guest := domain.Identity{UID: "guest", DisplayName: "Guest"}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, who := range []domain.Identity{host, guest} {
		wg.Add(1)
		go func(who domain.Identity) {
			defer wg.Done()
			if _, err := m.Transition(ctx, roomID, who, domain.StatusReady); err != nil {
				errs <- err
			}
		}(who)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Transition: %v", err)
	}

	room, err := repo.GetByID(ctx, roomID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if room.Members.Host.Connection.Status != domain.StatusReady {
		t.Errorf("host status = %s", room.Members.Host.Connection.Status)
	}
	if room.Members.Guest == nil || room.Members.Guest.Connection.Status != domain.StatusReady {
		t.Fatalf("guest = %+v", room.Members.Guest)
	}
	if room.Members.Guest.DisplayName != "Guest" {
		t.Errorf("guest display name = %q", room.Members.Guest.DisplayName)
	}
}

func TestTransitionStampsTimes(t *testing.T) {
	m, _, _, roomID := setup(t)
	ctx := context.Background()
	host := domain.Identity{UID: "host"}

	if _, err := m.Transition(ctx, roomID, host, domain.StatusReady); err != nil {
		t.Fatalf("ready: %v", err)
	}
	room, err := m.Transition(ctx, roomID, host, domain.StatusConnecting)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	if got := room.Members.Host.Connection.ConnectedAt; got == nil || !got.Equal(t0.Add(time.Minute)) {
		t.Fatalf("connected_at = %v", got)
	}

	room, err = m.Transition(ctx, roomID, host, domain.StatusDisconnected)
	if err != nil {
		t.Fatalf("disconnected: %v", err)
	}
	if room.Members.Host.Connection.DisconnectedAt == nil {
		t.Fatal("disconnected_at not set")
	}
}

func TestTransitionErrors(t *testing.T) {
	m, _, _, roomID := setup(t)
	ctx := context.Background()

	if _, err := m.Transition(ctx, roomID, domain.Identity{UID: "guest"}, domain.StatusReady); err != nil {
		t.Fatalf("guest ready: %v", err)
	}

	tests := []struct {
		name   string
		roomID string
		who    domain.Identity
		to     domain.ConnectionStatus
		want   error
	}{
		{"third party", roomID, domain.Identity{UID: "intruder"}, domain.StatusReady, domain.ErrRoomFull},
		{"skip ready", roomID, domain.Identity{UID: "host"}, domain.StatusConnecting, domain.ErrInvalidTransition},
		{"ready twice", roomID, domain.Identity{UID: "guest"}, domain.StatusReady, domain.ErrInvalidTransition},
		{"unknown room", "missing", domain.Identity{UID: "host"}, domain.StatusReady, domain.ErrRoomNotFound},
		{"no uid", roomID, domain.Identity{}, domain.StatusReady, domain.ErrInvalidInput},
		{"no room id", "", domain.Identity{UID: "host"}, domain.StatusReady, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Transition(ctx, tt.roomID, tt.who, tt.to); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLeftGuestSlotGoesToNextGuest(t *testing.T) {
	m, repo, _, roomID := setup(t)
	ctx := context.Background()

	if _, err := m.Transition(ctx, roomID, domain.Identity{UID: "guest-a"}, domain.StatusReady); err != nil {
		t.Fatalf("guest-a ready: %v", err)
	}
	if _, err := m.Transition(ctx, roomID, domain.Identity{UID: "guest-a"}, domain.StatusDisconnected); err != nil {
		t.Fatalf("guest-a disconnect: %v", err)
	}
	if _, err := m.Transition(ctx, roomID, domain.Identity{UID: "guest-b"}, domain.StatusReady); err != nil {
		t.Fatalf("guest-b ready: %v", err)
	}

	room, err := repo.GetByID(ctx, roomID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if g := room.Members.Guest; g == nil || g.UID != "guest-b" || g.Connection.Status != domain.StatusReady {
		t.Fatalf("guest slot = %+v", g)
	}
}

func TestNotifierCalledOnlyOnCommit(t *testing.T) {
	m, _, n, roomID := setup(t)
	ctx := context.Background()

	if _, err := m.Transition(ctx, roomID, domain.Identity{UID: "host"}, domain.StatusReady); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got := n.count(); got != 1 {
		t.Fatalf("notifications = %d, want 1", got)
	}

	// A stranger leaving holds no slot and writes nothing.
	if _, err := m.Transition(ctx, roomID, domain.Identity{UID: "stranger"}, domain.StatusDisconnected); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got := n.count(); got != 1 {
		t.Fatalf("notifications = %d, want 1", got)
	}
}

func TestMemberLeftDisconnectsSlot(t *testing.T) {
	m, repo, _, roomID := setup(t)
	ctx := context.Background()

	if _, err := m.Transition(ctx, roomID, domain.Identity{UID: "guest"}, domain.StatusReady); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	m.MemberLeft(ctx, roomID, "guest")
	m.MemberLeft(ctx, "missing", "guest")

	room, err := repo.GetByID(ctx, roomID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if room.Members.Guest.Connection.Status != domain.StatusDisconnected {
		t.Fatalf("guest status = %s", room.Members.Guest.Connection.Status)
	}
}
