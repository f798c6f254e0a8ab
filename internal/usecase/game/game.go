package game

import (
	"context"
	"errors"

	"go.uber.org/zap"

	gamedom "mangala_backend/internal/domain/game"
	"mangala_backend/internal/domain/user"
	errs "mangala_backend/internal/errors"
	"mangala_backend/internal/registry"
	"mangala_backend/internal/statuses"
)

// GameStore is the durable storage collaborator. Every call is best-effort
// relative to live play: the in-memory session is the source of truth while
// both players are connected.
type GameStore interface {
	CreateGameRecord(ctx context.Context, ownerID string) (string, error)
	RecordGuest(ctx context.Context, gameID, guestID string) error
	SaveState(ctx context.Context, gameID string, state gamedom.BoardState, status string) error
	LoadGame(ctx context.Context, gameID string) (gamedom.Game, error)
	HasUserActiveGameByUserID(ctx context.Context, userID string) (bool, error)
	ListWaitingGames(ctx context.Context) ([]gamedom.GameSummary, error)
	SetStatus(ctx context.Context, gameID, status string) error
}

// UserDirectory resolves player ids to their public identity for the
// game_start broadcast.
type UserDirectory interface {
	GetUserByUserId(ctx context.Context, id string) (user.User, error)
}

type GameUseCase struct {
	store    GameStore
	users    UserDirectory
	registry *registry.Registry
	log      *zap.SugaredLogger
}

func NewGameUseCase(store GameStore, users UserDirectory, reg *registry.Registry, log *zap.SugaredLogger) *GameUseCase {
	return &GameUseCase{
		store:    store,
		users:    users,
		registry: reg,
		log:      log,
	}
}

// CreateGame opens a new session for ownerID. One open game per owner: the
// storage check covers games from before a restart, the registry check
// covers the live ones.
func (g *GameUseCase) CreateGame(ctx context.Context, ownerID string) (string, error) {
	alreadyInGame, err := g.store.HasUserActiveGameByUserID(ctx, ownerID)
	if err != nil {
		g.log.Warnf("active-game lookup for %s failed: %v", ownerID, err)
	}
	if alreadyInGame {
		return "", errs.ErrAlreadyInGame
	}

	gameID, err := g.store.CreateGameRecord(ctx, ownerID)
	if err != nil {
		return "", err
	}

	if _, err := g.registry.Add(gameID, ownerID, gamedom.NewBoard()); err != nil {
		if setErr := g.store.SetStatus(ctx, gameID, statuses.StatusFinished); setErr != nil {
			g.log.Warnf("could not retire orphaned game %s: %v", gameID, setErr)
		}
		return "", err
	}

	return gameID, nil
}

// session returns the live session, reviving it from storage when this
// process does not hold it yet.
func (g *GameUseCase) session(ctx context.Context, gameID string) (*registry.Session, error) {
	s, err := g.registry.Get(gameID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, errs.ErrGameNotFound) {
		return nil, err
	}

	record, err := g.store.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if record.Status == statuses.StatusFinished {
		return nil, errs.ErrGameNotFound
	}

	s, err = g.registry.Add(record.GameID, record.OwnerID, record.State)
	if err != nil {
		// a concurrent connection may have revived the session between our
		// lookup and the Add
		if errors.Is(err, errs.ErrAlreadyInGame) {
			if revived, retryErr := g.registry.Get(gameID); retryErr == nil {
				return revived, nil
			}
		}
		return nil, err
	}
	if record.GuestID != "" {
		if _, err := g.registry.Join(record.GameID, record.GuestID); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// JoinGame records guestID as the second player of gameID.
func (g *GameUseCase) JoinGame(ctx context.Context, gameID, guestID string) error {
	if _, err := g.session(ctx, gameID); err != nil {
		return err
	}
	if _, err := g.registry.Join(gameID, guestID); err != nil {
		return err
	}

	if err := g.store.RecordGuest(ctx, gameID, guestID); err != nil {
		if errors.Is(err, errs.ErrGameFull) {
			return err
		}
		g.log.Warnf("recording guest for game %s failed, playing on: %v", gameID, err)
	}
	return nil
}

// Connect registers the player's channel with the session, confirms their
// identity to them and, once both players are wired, starts the game.
func (g *GameUseCase) Connect(ctx context.Context, gameID string, usr user.User, ch registry.Channel) (*registry.Session, error) {
	s, err := g.session(ctx, gameID)
	if err != nil {
		return nil, err
	}

	replaced, started, err := s.Register(usr.ID, ch)
	if err != nil {
		return nil, err
	}
	if replaced != nil {
		if err := replaced.Send(gamedom.NewError("replaced by a new connection")); err != nil {
			g.log.Warnf("notifying replaced connection of %s failed: %v", usr.ID, err)
		}
		_ = replaced.Close()
	}

	if err := ch.Send(gamedom.NewPlayerInfo(usr.Public(), gameID)); err != nil {
		g.log.Warnf("sending player_info to %s failed: %v", usr.ID, err)
	}

	if started {
		_, board, guestID := s.Snapshot()
		owner := g.publicIdentity(ctx, s.OwnerID)
		guest := g.publicIdentity(ctx, guestID)
		g.broadcast(s, gamedom.NewGameStart(owner, &guest, gameID, board))
		g.persist(ctx, s)
	} else {
		phase, _, _ := s.Snapshot()
		if phase == statuses.StatusWaitOpponent {
			if err := ch.Send(gamedom.NewWaiting()); err != nil {
				g.log.Warnf("sending waiting notice to %s failed: %v", usr.ID, err)
			}
		}
	}

	return s, nil
}

// Move applies one move and mirrors the outcome to every participant while
// the session lock is held, so state frames reach each client in the order
// the moves were applied. An illegal move is returned to the caller and
// reaches nobody else.
func (g *GameUseCase) Move(ctx context.Context, s *registry.Session, playerID string, holeIndex int) (gamedom.BoardState, error) {
	board, err := s.Move(playerID, holeIndex, func(next gamedom.BoardState, peers []registry.Channel) {
		g.sendAll(s.ID, peers, gamedom.StateMessage{State: next})
		if next.Finished() {
			g.sendAll(s.ID, peers, gamedom.NewGameEnd(s.ID, next))
		}
	})
	if err != nil {
		return board, err
	}

	g.persist(ctx, s)
	return board, nil
}

// StartGame handles the explicit start_game control message. Idempotent.
func (g *GameUseCase) StartGame(ctx context.Context, s *registry.Session) gamedom.BoardState {
	board := s.ForceStart(g.mirrorState(s.ID, "game started"))
	g.persist(ctx, s)
	return board
}

// EndGame handles the explicit end_game control message. Idempotent.
func (g *GameUseCase) EndGame(ctx context.Context, s *registry.Session) gamedom.BoardState {
	board := s.ForceEnd(g.mirrorState(s.ID, "game ended"))
	g.persist(ctx, s)
	return board
}

// Disconnect detaches the channel and tells the remaining player. The game
// record stays; the peer may sit and wait or the owner may end the game.
// A channel a reconnect already replaced detaches nothing and stays silent.
func (g *GameUseCase) Disconnect(ctx context.Context, s *registry.Session, playerID string, ch registry.Channel) {
	if !g.registry.Deregister(s.ID, playerID, ch) {
		return
	}
	for _, peer := range s.Peers(playerID) {
		if err := peer.Send(gamedom.NewOpponentDisconnected()); err != nil {
			g.log.Warnf("notifying peer in game %s failed: %v", s.ID, err)
		}
	}
}

func (g *GameUseCase) ListGames(ctx context.Context) ([]gamedom.GameSummary, error) {
	summaries, err := g.store.ListWaitingGames(ctx)
	if err != nil {
		g.log.Warnf("listing games from storage failed, using live registry: %v", err)
		return g.registry.ListWaiting(), nil
	}
	return summaries, nil
}

func (g *GameUseCase) GetGameByID(ctx context.Context, gameID string) (gamedom.Game, error) {
	if s, err := g.registry.Get(gameID); err == nil {
		phase, board, guestID := s.Snapshot()
		return gamedom.Game{
			GameID:  s.ID,
			OwnerID: s.OwnerID,
			GuestID: guestID,
			Status:  phase,
			State:   board,
		}, nil
	}
	return g.store.LoadGame(ctx, gameID)
}

// broadcast mirrors a state change to every registered channel. A failing
// peer is logged and skipped; its own read loop will notice the dead
// connection and deregister it.
func (g *GameUseCase) broadcast(s *registry.Session, v any) {
	g.sendAll(s.ID, s.Peers(""), v)
}

func (g *GameUseCase) sendAll(gameID string, peers []registry.Channel, v any) {
	for _, ch := range peers {
		if err := ch.Send(v); err != nil {
			g.log.Warnf("broadcast to a peer of game %s failed: %v", gameID, err)
		}
	}
}

func (g *GameUseCase) mirrorState(gameID, message string) registry.Mirror {
	return func(board gamedom.BoardState, peers []registry.Channel) {
		g.sendAll(gameID, peers, gamedom.StateMessage{State: board, Message: message})
	}
}

func (g *GameUseCase) persist(ctx context.Context, s *registry.Session) {
	phase, board, _ := s.Snapshot()
	if err := g.store.SaveState(ctx, s.ID, board, phase); err != nil {
		g.log.Warnf("persisting game %s failed, playing on: %v", s.ID, err)
	}
}

func (g *GameUseCase) publicIdentity(ctx context.Context, id string) user.Public {
	usr, err := g.users.GetUserByUserId(ctx, id)
	if err != nil {
		g.log.Warnf("resolving user %s failed: %v", id, err)
		return user.Public{ID: id}
	}
	return usr.Public()
}
