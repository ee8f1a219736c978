package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hilthontt/duet/internal/domain"
)

// roomRepository keeps private copies of every room so callers can only
// change stored state through Update.
type roomRepository struct {
	rooms map[string]*domain.Room
	mu    sync.RWMutex
}

func NewRoomRepository() domain.RoomRepository {
	return &roomRepository{
		rooms: make(map[string]*domain.Room),
	}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; exists {
		return domain.ErrRoomAlreadyExists
	}

	room.Version = 1
	r.rooms[room.ID] = room.Clone()

	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	return room.Clone(), nil
}

func (r *roomRepository) Update(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.rooms[room.ID]
	if !exists {
		return domain.ErrRoomNotFound
	}
	if existing.Version != room.Version {
		return domain.ErrVersionConflict
	}

	room.Version++
	r.rooms[room.ID] = room.Clone()

	return nil
}

func (r *roomRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[id]; !exists {
		return domain.ErrRoomNotFound
	}
	delete(r.rooms, id)

	return nil
}

func (r *roomRepository) List(ctx context.Context) ([]domain.Room, error) {
	r.mu.RLock()
	rooms := make([]domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, *room.Clone())
	}
	r.mu.RUnlock()

	sortByCreation(rooms)
	return rooms, nil
}

func (r *roomRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms), nil
}

func (r *roomRepository) ListExpired(ctx context.Context, before time.Time) ([]domain.Room, error) {
	r.mu.RLock()
	var expired []domain.Room
	for _, room := range r.rooms {
		if room.IsExpired(before) {
			expired = append(expired, *room.Clone())
		}
	}
	r.mu.RUnlock()

	sortByCreation(expired)
	return expired, nil
}

func sortByCreation(rooms []domain.Room) {
	slices.SortFunc(rooms, func(a, b domain.Room) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
