package game

import (
	errs "mangala_backend/internal/errors"
)

const (
	PitsPerPlayer  = 9
	TotalPits      = 2 * PitsPerPlayer
	StartingStones = 9
	TotalStones    = TotalPits * StartingStones
)

// BoardState is the authoritative snapshot of one game. It is a value type:
// ApplyMove works on a copy and either returns the fully updated state or
// leaves the caller's state untouched.
type BoardState struct {
	// Pits 0-8 belong to player 0, pits 9-17 to player 1, sown
	// counter-clockwise in index order around the ring.
	Pits   [TotalPits]int `json:"pits" bson:"pits"`
	Kazans [2]int         `json:"kazans" bson:"kazans"`
	// CurrentPlayer is 0 or 1, whose turn it is.
	CurrentPlayer int `json:"current_player" bson:"current_player"`
	// Tuzdyks[p] is the absolute pit index claimed by player p in the
	// opponent's row, nil while unclaimed. At most one per player.
	Tuzdyks [2]*int `json:"tuzdyks" bson:"tuzdyks"`
	Winner  *int    `json:"winner,omitempty" bson:"winner,omitempty"`
	Draw    bool    `json:"draw,omitempty" bson:"draw,omitempty"`
}

func NewBoard() BoardState {
	var s BoardState
	for i := range s.Pits {
		s.Pits[i] = StartingStones
	}
	return s
}

func (s BoardState) Finished() bool {
	return s.Winner != nil || s.Draw
}

// StoneTotal counts every stone on the board and in both kazans.
// It is TotalStones after any legal sequence of moves.
func (s BoardState) StoneTotal() int {
	total := s.Kazans[0] + s.Kazans[1]
	for _, n := range s.Pits {
		total += n
	}
	return total
}

func rowStart(player int) int {
	return player * PitsPerPlayer
}

func inRow(pit, player int) bool {
	return pit >= rowStart(player) && pit < rowStart(player)+PitsPerPlayer
}

func (s BoardState) rowEmpty(player int) bool {
	for i := rowStart(player); i < rowStart(player)+PitsPerPlayer; i++ {
		if s.Pits[i] > 0 {
			return false
		}
	}
	return true
}

// ApplyMove plays one move for player from their pit (relative index 0-8).
//
// Rules of the implemented variant: all stones are lifted from the chosen
// pit and sown one per pit in index order around the ring. If the last
// stone lands in a claimed tuzdyk, the pit goes to the claimant's kazan.
// Otherwise, landing in the opponent's row making exactly 3 stones claims
// the pit as the mover's tuzdyk (once per player, never the opponent's
// ninth pit) and captures it; landing in the opponent's row making an even
// count captures the pit into the mover's kazan.
func ApplyMove(s BoardState, player, pit int) (BoardState, error) {
	if s.Finished() {
		return s, errs.ErrGameFinished
	}
	if player != s.CurrentPlayer {
		return s, errs.ErrNotYourTurn
	}
	if pit < 0 || pit >= PitsPerPlayer {
		return s, errs.ErrInvalidPit
	}

	src := rowStart(player) + pit
	stones := s.Pits[src]
	if stones == 0 {
		return s, errs.ErrEmptyPit
	}

	s.Pits[src] = 0
	idx := src
	for i := 0; i < stones; i++ {
		idx = (idx + 1) % TotalPits
		s.Pits[idx]++
	}

	opponent := 1 - player
	switch {
	case s.tuzdykOwner(idx) >= 0:
		claimant := s.tuzdykOwner(idx)
		s.Kazans[claimant] += s.Pits[idx]
		s.Pits[idx] = 0
	case inRow(idx, opponent) && s.Pits[idx] == 3 &&
		s.Tuzdyks[player] == nil && idx != rowStart(opponent)+PitsPerPlayer-1:
		claimed := idx
		s.Tuzdyks[player] = &claimed
		s.Kazans[player] += s.Pits[idx]
		s.Pits[idx] = 0
	case inRow(idx, opponent) && s.Pits[idx]%2 == 0:
		s.Kazans[player] += s.Pits[idx]
		s.Pits[idx] = 0
	}

	s.CurrentPlayer = opponent
	s.checkTerminal()

	return s, nil
}

func (s BoardState) tuzdykOwner(pit int) int {
	for p := 0; p < 2; p++ {
		if s.Tuzdyks[p] != nil && *s.Tuzdyks[p] == pit {
			return p
		}
	}
	return -1
}

func (s *BoardState) checkTerminal() {
	const half = TotalStones / 2

	switch {
	case s.Kazans[0] > half:
		winner := 0
		s.Winner = &winner
	case s.Kazans[1] > half:
		winner := 1
		s.Winner = &winner
	case s.Kazans[0] == half && s.Kazans[1] == half:
		s.Draw = true
	case s.rowEmpty(s.CurrentPlayer):
		// the player to move has nothing to sow, the fuller kazan wins
		switch {
		case s.Kazans[0] > s.Kazans[1]:
			winner := 0
			s.Winner = &winner
		case s.Kazans[1] > s.Kazans[0]:
			winner := 1
			s.Winner = &winner
		default:
			s.Draw = true
		}
	}
}
