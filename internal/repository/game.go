package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"mangala_backend/internal/bootstrap"
	gamedom "mangala_backend/internal/domain/game"
	errs "mangala_backend/internal/errors"
	"mangala_backend/internal/random"
	"mangala_backend/internal/statuses"
)

// GameRepository is the durable side of a session: game rows live in the
// mongo games collection, the latest board snapshot is additionally cached
// in redis for cheap reads. Live play never depends on either succeeding.
type GameRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
}

func NewGameRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database) *GameRepository {
	return &GameRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
	}
}

func (g *GameRepository) collection() *mongo.Collection {
	return g.mongo.Collection("games")
}

func stateKey(gameID string) string {
	return "game_state:" + gameID
}

func (g *GameRepository) CreateGameRecord(ctx context.Context, ownerID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// short codes instead of uuids: players pass game ids around by hand
	record := gamedom.Game{
		GameID:    random.RandString(16),
		OwnerID:   ownerID,
		Status:    statuses.StatusWaitOpponent,
		State:     gamedom.NewBoard(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if _, err := g.collection().InsertOne(ctx, record); err != nil {
		g.log.Errorf("failed to insert game: %v", err)
		return "", errs.ErrCreateGameFailed
	}

	g.log.Infof("game inserted with id: %s", record.GameID)
	return record.GameID, nil
}

func (g *GameRepository) RecordGuest(ctx context.Context, gameID, guestID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	current, err := g.LoadGame(ctx, gameID)
	if err != nil {
		return err
	}
	if current.GuestID != "" && current.GuestID != guestID {
		return errs.ErrGameFull
	}

	_, err = g.collection().UpdateOne(ctx,
		bson.M{"game_id": gameID},
		bson.M{"$set": bson.M{"guest_id": guestID, "updated_at": time.Now()}},
	)
	if err != nil {
		g.log.Errorf("failed to record guest for game %s: %v", gameID, err)
		return err
	}
	return nil
}

// SaveState writes the snapshot to redis and the game row to mongo. Both
// writes are attempted even if the first fails; the caller treats any error
// as retryable.
func (g *GameRepository) SaveState(ctx context.Context, gameID string, state gamedom.BoardState, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var redisErr error
	raw, err := json.Marshal(state)
	if err != nil {
		redisErr = err
	} else if err := g.redis.Set(ctx, stateKey(gameID), raw, 0).Err(); err != nil {
		redisErr = err
	}

	_, mongoErr := g.collection().UpdateOne(ctx,
		bson.M{"game_id": gameID},
		bson.M{"$set": bson.M{"state": state, "status": status, "updated_at": time.Now()}},
	)

	if redisErr != nil || mongoErr != nil {
		return fmt.Errorf("save state for game %s: redis=%v mongo=%v", gameID, redisErr, mongoErr)
	}
	return nil
}

func (g *GameRepository) LoadState(ctx context.Context, gameID string) (gamedom.BoardState, error) {
	raw, err := g.redis.Get(ctx, stateKey(gameID)).Bytes()
	if err != nil {
		return gamedom.BoardState{}, err
	}
	var state gamedom.BoardState
	if err := json.Unmarshal(raw, &state); err != nil {
		return gamedom.BoardState{}, err
	}
	return state, nil
}

// LoadGame reads the game row; a fresher redis snapshot, when present,
// overrides the row's board state.
func (g *GameRepository) LoadGame(ctx context.Context, gameID string) (gamedom.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result gamedom.Game
	err := g.collection().FindOne(ctx, bson.M{"game_id": gameID}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return gamedom.Game{}, errs.ErrGameNotFound
		}
		g.log.Error(err)
		return gamedom.Game{}, err
	}

	if state, err := g.LoadState(ctx, gameID); err == nil {
		result.State = state
	} else if !errors.Is(err, redis.Nil) {
		g.log.Warnf("redis state for game %s unavailable: %v", gameID, err)
	}

	return result, nil
}

func (g *GameRepository) HasUserActiveGameByUserID(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"$and": []bson.M{
			{
				"$or": []bson.M{
					{"owner_id": userID},
					{"guest_id": userID},
				},
			},
			{
				"status": bson.M{
					"$ne": statuses.StatusFinished,
				},
			},
		},
	}
	err := g.collection().FindOne(ctx, filter).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	} else if err != nil {
		g.log.Error(err)
		return false, err
	}

	return true, nil
}

func (g *GameRepository) ListWaitingGames(ctx context.Context) ([]gamedom.GameSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := g.collection().Find(ctx, bson.M{"status": statuses.StatusWaitOpponent})
	if err != nil {
		g.log.Error(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := make([]gamedom.GameSummary, 0)
	for cursor.Next(ctx) {
		var row gamedom.Game
		if err := cursor.Decode(&row); err != nil {
			g.log.Error(err)
			return nil, err
		}
		players := []string{row.OwnerID}
		if row.GuestID != "" {
			players = append(players, row.GuestID)
		}
		summaries = append(summaries, gamedom.GameSummary{
			GameID:  row.GameID,
			Owner:   row.OwnerID,
			Players: players,
		})
	}
	return summaries, nil
}

func (g *GameRepository) SetStatus(ctx context.Context, gameID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := g.collection().UpdateOne(ctx,
		bson.M{"game_id": gameID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}},
	)
	if err != nil {
		g.log.Errorf("failed to set status %s for game %s: %v", status, gameID, err)
	}
	return err
}
