package errors

import "errors"

var (
	ErrUserNotFound     = errors.New("user with provided username was not found")
	ErrWrongPassword    = errors.New("wrong password")
	ErrUserExists       = errors.New("user already exists")
	ErrBadToken         = errors.New("token is invalid or expired")
	ErrGameNotFound     = errors.New("game not found")
	ErrGameFull         = errors.New("game already has two players")
	ErrAlreadyInGame    = errors.New("user already has an active game")
	ErrNotInGame        = errors.New("user is not a participant of this game")
	ErrCreateGameFailed = errors.New("create game failed")
	ErrInternal         = errors.New("internal error")

	// move rejections, never sent to the non-moving player
	ErrGameNotStarted = errors.New("game has not started yet")
	ErrGameFinished   = errors.New("game is already finished")
	ErrNotYourTurn    = errors.New("it's not your turn")
	ErrInvalidPit     = errors.New("invalid pit index")
	ErrEmptyPit       = errors.New("selected pit is empty")
)
