package game

import (
	"time"
)

// Game is the persisted record of one session. The live board is owned by
// the registry while players are connected; this row is best-effort
// durability.
type Game struct {
	GameID    string     `json:"game_id" bson:"game_id"`
	OwnerID   string     `json:"owner_id" bson:"owner_id"`
	GuestID   string     `json:"guest_id,omitempty" bson:"guest_id,omitempty"`
	Status    string     `json:"status" bson:"status"`
	State     BoardState `json:"state" bson:"state"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

type GameCreateResponse struct {
	GameID  string `json:"game_id"`
	OwnerID string `json:"owner_id"`
}

type GameJoinResponse struct {
	GameID  string `json:"game_id"`
	GuestID string `json:"guest_id"`
}

// GameSummary is one row of the waiting-games listing.
type GameSummary struct {
	GameID  string   `json:"game_id"`
	Owner   string   `json:"owner"`
	Players []string `json:"players"`
}

type GameFindRequest struct {
	GameID string `json:"game_id"`
}
