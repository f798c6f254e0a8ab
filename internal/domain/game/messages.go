package game

import "mangala_backend/internal/domain/user"

// Wire messages exchanged over the game websocket. Field names follow the
// protocol the frontend already speaks.

// ClientMessage is every inbound frame: either a move (hole_index set) or a
// control message (type set).
type ClientMessage struct {
	Type      string `json:"type,omitempty"`
	HoleIndex *int   `json:"hole_index,omitempty"`
}

const (
	MsgStartGame = "start_game"
	MsgEndGame   = "end_game"
)

type PlayerInfoMessage struct {
	Type   string      `json:"type"`
	Player user.Public `json:"player"`
	GameID string      `json:"game_id"`
}

func NewPlayerInfo(p user.Public, gameID string) PlayerInfoMessage {
	return PlayerInfoMessage{Type: "player_info", Player: p, GameID: gameID}
}

type GameStartMessage struct {
	Type    string       `json:"type"`
	Player1 user.Public  `json:"player1"`
	Player2 *user.Public `json:"player2"`
	GameID  string       `json:"game_id"`
	State   BoardState   `json:"game_state"`
}

func NewGameStart(p1 user.Public, p2 *user.Public, gameID string, state BoardState) GameStartMessage {
	return GameStartMessage{Type: "game_start", Player1: p1, Player2: p2, GameID: gameID, State: state}
}

// StateMessage mirrors a state change to both players. Message carries the
// optional status line the original protocol attached to start/end frames.
type StateMessage struct {
	State   BoardState `json:"game_state"`
	Message string     `json:"message,omitempty"`
}

type OpponentDisconnectedMessage struct {
	Type string `json:"type"`
}

func NewOpponentDisconnected() OpponentDisconnectedMessage {
	return OpponentDisconnectedMessage{Type: "opponent_disconnected"}
}

type WaitingMessage struct {
	Message string `json:"message"`
}

func NewWaiting() WaitingMessage {
	return WaitingMessage{Message: "waiting for second player"}
}

// ErrorMessage is echoed only to the sender of a rejected frame.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewError(reason string) ErrorMessage {
	return ErrorMessage{Type: "error", Error: reason}
}

type GameEndMessage struct {
	Type   string     `json:"type"`
	GameID string     `json:"game_id"`
	State  BoardState `json:"game_state"`
}

func NewGameEnd(gameID string, state BoardState) GameEndMessage {
	return GameEndMessage{Type: "game_end", GameID: gameID, State: state}
}
