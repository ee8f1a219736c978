package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomRepository stores rooms in MongoDB. Writes are guarded by the
// document's version field.
type RoomRepository struct {
	db *mongo.Database
}

func NewRoomRepository(db *mongo.Database) *RoomRepository {
	return &RoomRepository{
		db: db,
	}
}

func (r *RoomRepository) collection() *mongo.Collection {
	return r.db.Collection(db.RoomsCollection)
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}

	room.Version = 1
	if _, err := r.collection().InsertOne(ctx, room); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRoomAlreadyExists
		}
		return err
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	var room domain.Room
	if err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) Update(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}

	expected := room.Version
	next := room.Clone()
	next.Version = expected + 1

	res, err := r.collection().ReplaceOne(ctx, bson.M{"_id": room.ID, "version": expected}, next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := r.collection().CountDocuments(ctx, bson.M{"_id": room.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrRoomNotFound
		}
		return domain.ErrVersionConflict
	}

	room.Version = next.Version
	return nil
}

func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}

	res, err := r.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *RoomRepository) List(ctx context.Context) ([]domain.Room, error) {
	return r.find(ctx, bson.M{})
}

func (r *RoomRepository) Count(ctx context.Context) (int, error) {
	n, err := r.collection().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *RoomRepository) ListExpired(ctx context.Context, before time.Time) ([]domain.Room, error) {
	return r.find(ctx, bson.M{"expires_at": bson.M{"$lt": before}})
}

func (r *RoomRepository) find(ctx context.Context, filter bson.M) ([]domain.Room, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rooms := []domain.Room{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return rooms, nil
}

func (r *RoomRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}

	_, err := r.collection().Indexes().CreateMany(ctx, indexes)
	return err
}
