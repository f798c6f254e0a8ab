package registry

import (
	"sync"

	gamedom "mangala_backend/internal/domain/game"
	errs "mangala_backend/internal/errors"
	"mangala_backend/internal/statuses"
)

// Channel is one participant's outbound half. The websocket adapter lives
// in delivery; tests plug in fakes.
type Channel interface {
	Send(v any) error
	Close() error
}

// Mirror announces a state change to the given channels. It runs while the
// session lock is held, so consecutive changes reach every channel in the
// order they were applied.
type Mirror func(state gamedom.BoardState, peers []Channel)

// Session is one live game. The registry owns the set of sessions; every
// mutable field is guarded by mu, so connection handlers serialize against
// each other per session, never across sessions.
type Session struct {
	ID      string
	OwnerID string

	mu       sync.Mutex
	guestID  string
	phase    string
	board    gamedom.BoardState
	channels map[string]Channel
}

func newSession(id, ownerID string, board gamedom.BoardState) *Session {
	return &Session{
		ID:       id,
		OwnerID:  ownerID,
		phase:    statuses.StatusWaitOpponent,
		board:    board,
		channels: make(map[string]Channel),
	}
}

// Snapshot returns a consistent view of the mutable fields.
func (s *Session) Snapshot() (phase string, board gamedom.BoardState, guestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase, s.board, s.guestID
}

func (s *Session) GuestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guestID
}

func (s *Session) isParticipantLocked(playerID string) bool {
	return playerID == s.OwnerID || (s.guestID != "" && playerID == s.guestID)
}

func (s *Session) IsParticipant(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isParticipantLocked(playerID)
}

// setGuest records the second player. Rejects a third distinct player and
// the owner joining their own game.
func (s *Session) setGuest(guestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if guestID == s.OwnerID {
		return errs.ErrAlreadyInGame
	}
	if s.guestID != "" && s.guestID != guestID {
		return errs.ErrGameFull
	}
	s.guestID = guestID
	return nil
}

// Register wires a participant's channel into the session. A previous
// channel for the same player is returned so the caller can close it.
// started reports that this registration completed the pairing: the guest
// is set, both channels are live and the phase just moved to in progress.
func (s *Session) Register(playerID string, ch Channel) (replaced Channel, started bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isParticipantLocked(playerID) {
		return nil, false, errs.ErrNotInGame
	}

	replaced = s.channels[playerID]
	s.channels[playerID] = ch

	if s.phase == statuses.StatusWaitOpponent && s.guestID != "" && len(s.channels) == 2 {
		s.phase = statuses.StatusInProgress
		started = true
	}
	return replaced, started, nil
}

// Deregister removes the player's channel if it is still the one given
// (a reconnect may already have replaced it). removed reports whether this
// channel was actually detached; a superseded channel must not be mistaken
// for the player leaving.
func (s *Session) Deregister(playerID string, ch Channel) (removed bool, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channels[playerID] == ch {
		delete(s.channels, playerID)
		removed = true
	}
	return removed, len(s.channels)
}

func (s *Session) peersLocked() []Channel {
	peers := make([]Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		peers = append(peers, ch)
	}
	return peers
}

// Move applies one move under the session lock, so near-simultaneous moves
// from both players are serialized and the loser of the race is validated
// against the post-move state. mirror, when non-nil, runs before the lock
// is released.
func (s *Session) Move(playerID string, pit int, mirror Mirror) (gamedom.BoardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case statuses.StatusWaitOpponent:
		return s.board, errs.ErrGameNotStarted
	case statuses.StatusFinished:
		return s.board, errs.ErrGameFinished
	}

	player := 0
	if playerID == s.guestID {
		player = 1
	} else if playerID != s.OwnerID {
		return s.board, errs.ErrNotInGame
	}

	next, err := gamedom.ApplyMove(s.board, player, pit)
	if err != nil {
		return s.board, err
	}

	s.board = next
	if next.Finished() {
		s.phase = statuses.StatusFinished
	}
	if mirror != nil {
		mirror(next, s.peersLocked())
	}
	return next, nil
}

// ForceStart handles the explicit start_game control message. Re-applying
// it is a no-op.
func (s *Session) ForceStart(mirror Mirror) gamedom.BoardState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == statuses.StatusWaitOpponent {
		s.phase = statuses.StatusInProgress
	}
	if mirror != nil {
		mirror(s.board, s.peersLocked())
	}
	return s.board
}

// ForceEnd handles the explicit end_game control message. If the board is
// not already terminal the fuller kazan is adjudicated the winner, so a
// second end_game yields the same terminal state as the first.
func (s *Session) ForceEnd(mirror Mirror) gamedom.BoardState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = statuses.StatusFinished
	if !s.board.Finished() {
		switch {
		case s.board.Kazans[0] > s.board.Kazans[1]:
			winner := 0
			s.board.Winner = &winner
		case s.board.Kazans[1] > s.board.Kazans[0]:
			winner := 1
			s.board.Winner = &winner
		default:
			s.board.Draw = true
		}
	}
	if mirror != nil {
		mirror(s.board, s.peersLocked())
	}
	return s.board
}

// Peers lists the currently registered channels, optionally skipping one
// player. Sends happen outside the session lock.
func (s *Session) Peers(except string) []Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers := make([]Channel, 0, len(s.channels))
	for id, ch := range s.channels {
		if id == except {
			continue
		}
		peers = append(peers, ch)
	}
	return peers
}

// Registry is the process-wide set of live sessions. It replaces the
// ambient active-games map: nothing outside this package touches the map.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func New() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add creates a session for ownerID. An owner with an open session in this
// process is rejected; the storage-backed check in the usecase covers games
// surviving a restart.
func (r *Registry) Add(id, ownerID string, board gamedom.BoardState) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		phase, _, guestID := s.Snapshot()
		if phase == statuses.StatusFinished {
			continue
		}
		if s.OwnerID == ownerID || guestID == ownerID {
			return nil, errs.ErrAlreadyInGame
		}
	}

	s := newSession(id, ownerID, board)
	r.sessions[id] = s
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, errs.ErrGameNotFound
	}
	return s, nil
}

// Join records guestID as the session's second player.
func (r *Registry) Join(id, guestID string) (*Session, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.setGuest(guestID); err != nil {
		return nil, err
	}
	return s, nil
}

// Deregister detaches a channel and drops the session once nobody is left
// connected. A session with a remaining participant stays addressable for
// reconnection. It reports whether the channel was actually detached, which
// is false for a channel a reconnect already replaced.
func (r *Registry) Deregister(id, playerID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	removed, remaining := s.Deregister(playerID, ch)
	if removed && remaining == 0 {
		delete(r.sessions, id)
	}
	return removed
}

// ListWaiting summarizes the sessions still missing an opponent.
func (r *Registry) ListWaiting() []gamedom.GameSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]gamedom.GameSummary, 0)
	for _, s := range r.sessions {
		phase, _, guestID := s.Snapshot()
		if phase != statuses.StatusWaitOpponent {
			continue
		}
		players := []string{s.OwnerID}
		if guestID != "" {
			players = append(players, guestID)
		}
		summaries = append(summaries, gamedom.GameSummary{
			GameID:  s.ID,
			Owner:   s.OwnerID,
			Players: players,
		})
	}
	return summaries
}
