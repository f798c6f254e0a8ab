package repo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"mangala_backend/internal/adapters"
	"mangala_backend/internal/domain/user"
	errs "mangala_backend/internal/errors"
)

type MongoUserStorage struct {
	adapter *adapters.AdapterMongo
}

func NewMongoUserStorage(adapter *adapters.AdapterMongo) *MongoUserStorage {
	return &MongoUserStorage{adapter: adapter}
}

func (m *MongoUserStorage) collection() *mongo.Collection {
	return m.adapter.Database.Collection("users")
}

func (m *MongoUserStorage) findOne(ctx context.Context, filter bson.M) (user.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result user.User
	err := m.collection().FindOne(ctx, filter).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, errs.ErrUserNotFound
		}
		slog.Error(err.Error())
		return user.User{}, err
	}
	return result, nil
}

func (m *MongoUserStorage) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return m.findOne(ctx, bson.M{"username": username})
}

func (m *MongoUserStorage) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *MongoUserStorage) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoUserStorage) CreateUser(ctx context.Context, newUser user.User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.collection().InsertOne(ctx, newUser)
	if err != nil {
		slog.Error(err.Error())
		return errs.ErrInternal
	}
	return nil
}
