package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "mangala_backend/internal/errors"
)

func TestNewBoard(t *testing.T) {
	board := NewBoard()

	for i, n := range board.Pits {
		require.Equalf(t, StartingStones, n, "pit %d", i)
	}
	require.Equal(t, [2]int{0, 0}, board.Kazans)
	require.Equal(t, 0, board.CurrentPlayer)
	require.Nil(t, board.Tuzdyks[0])
	require.Nil(t, board.Tuzdyks[1])
	require.False(t, board.Finished())
	require.Equal(t, TotalStones, board.StoneTotal())
}

func TestApplyMove_SowsIntoFollowingPits(t *testing.T) {
	// Given: player 0's first pit holds 3 stones
	board := NewBoard()
	board.Pits = [TotalPits]int{3, 0, 0, 0, 0, 0, 0, 0, 0, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	total := board.StoneTotal()

	// When: player 0 sows from pit 0
	next, err := ApplyMove(board, 0, 0)
	require.NoError(t, err)

	// Then: one stone lands in each of pits 1, 2 and 3, nothing is captured
	require.Equal(t, 0, next.Pits[0])
	require.Equal(t, 1, next.Pits[1])
	require.Equal(t, 1, next.Pits[2])
	require.Equal(t, 1, next.Pits[3])
	require.Equal(t, [2]int{0, 0}, next.Kazans)
	require.Equal(t, 1, next.CurrentPlayer)
	require.Equal(t, total, next.StoneTotal())
}

func TestApplyMove_WrapsAroundTheRing(t *testing.T) {
	board := NewBoard()
	board.CurrentPlayer = 1

	// player 1's last pit (absolute 17) reaches back into player 0's row
	board.Pits = [TotalPits]int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 3}

	next, err := ApplyMove(board, 1, 8)
	require.NoError(t, err)

	require.Equal(t, 0, next.Pits[17])
	// stones fell into 0, 1 and 2; pit 2 became 2 (even, opponent row for
	// player 1) and was captured
	require.Equal(t, 2, next.Pits[0])
	require.Equal(t, 2, next.Pits[1])
	require.Equal(t, 0, next.Pits[2])
	require.Equal(t, 2, next.Kazans[1])
	require.Equal(t, 0, next.CurrentPlayer)
}

func TestApplyMove_EvenCountInOpponentRowIsCaptured(t *testing.T) {
	board := NewBoard()
	board.Pits = [TotalPits]int{9, 9, 9, 9, 9, 9, 9, 9, 2, 9, 9, 9, 9, 9, 9, 9, 9, 9}

	// two stones from pit 8 land in pits 9 and 10; pit 10 ends at 10 stones
	next, err := ApplyMove(board, 0, 8)
	require.NoError(t, err)

	require.Equal(t, 10, next.Pits[9])
	require.Equal(t, 0, next.Pits[10])
	require.Equal(t, 10, next.Kazans[0])
	require.Equal(t, board.StoneTotal(), next.StoneTotal())
}

func TestApplyMove_EvenCountInOwnRowIsNotCaptured(t *testing.T) {
	board := NewBoard()
	board.Pits = [TotalPits]int{2, 1, 0, 0, 0, 0, 0, 0, 0, 9, 9, 9, 9, 9, 9, 9, 9, 9}

	// both stones stay in player 0's own row, pit 2 ends at 2 stones
	next, err := ApplyMove(board, 0, 0)
	require.NoError(t, err)

	require.Equal(t, 2, next.Pits[1])
	require.Equal(t, 1, next.Pits[2])
	require.Equal(t, 0, next.Kazans[0])
}

func TestApplyMove_ThirdStoneClaimsTuzdyk(t *testing.T) {
	board := NewBoard()
	board.Pits = [TotalPits]int{9, 9, 9, 9, 9, 9, 9, 9, 1, 2, 9, 9, 9, 9, 9, 9, 9, 9}

	next, err := ApplyMove(board, 0, 8)
	require.NoError(t, err)

	require.NotNil(t, next.Tuzdyks[0])
	require.Equal(t, 9, *next.Tuzdyks[0])
	require.Equal(t, 0, next.Pits[9])
	require.Equal(t, 3, next.Kazans[0])
	require.Equal(t, board.StoneTotal(), next.StoneTotal())
}

func TestApplyMove_NoTuzdykOnOpponentsNinthPit(t *testing.T) {
	board := NewBoard()
	board.Pits = [TotalPits]int{0, 0, 0, 0, 0, 0, 0, 0, 9, 9, 9, 9, 9, 9, 9, 9, 9, 2}

	// nine stones from pit 8 end on absolute pit 17, making exactly 3
	next, err := ApplyMove(board, 0, 8)
	require.NoError(t, err)

	require.Nil(t, next.Tuzdyks[0])
	require.Equal(t, 3, next.Pits[17])
	require.Equal(t, 0, next.Kazans[0])
}

func TestApplyMove_OnlyOneTuzdykPerPlayer(t *testing.T) {
	board := NewBoard()
	claimed := 12
	board.Tuzdyks[0] = &claimed
	board.Pits = [TotalPits]int{9, 9, 9, 9, 9, 9, 9, 9, 1, 2, 9, 9, 0, 9, 9, 9, 9, 9}

	next, err := ApplyMove(board, 0, 8)
	require.NoError(t, err)

	// pit 9 reaches 3 stones but the claim is spent; 3 is odd, no capture
	require.Equal(t, &claimed, next.Tuzdyks[0])
	require.Equal(t, 3, next.Pits[9])
	require.Equal(t, 0, next.Kazans[0])
}

func TestApplyMove_LandingInTuzdykFeedsTheClaimant(t *testing.T) {
	t.Run("mover lands in their own claim", func(t *testing.T) {
		board := NewBoard()
		claimed := 10
		board.Tuzdyks[0] = &claimed
		board.Pits = [TotalPits]int{9, 9, 9, 9, 9, 9, 9, 9, 2, 9, 4, 9, 9, 9, 9, 9, 9, 9}

		next, err := ApplyMove(board, 0, 8)
		require.NoError(t, err)

		require.Equal(t, 0, next.Pits[10])
		require.Equal(t, 5, next.Kazans[0])
	})

	t.Run("opponent lands in the mover's claim", func(t *testing.T) {
		// player 1 ends a move in a pit of their own row claimed by player 0
		board := NewBoard()
		board.CurrentPlayer = 1
		claimed := 10
		board.Tuzdyks[0] = &claimed
		board.Pits = [TotalPits]int{9, 9, 9, 9, 9, 9, 9, 9, 9, 1, 4, 9, 9, 9, 9, 9, 9, 9}

		next, err := ApplyMove(board, 1, 0)
		require.NoError(t, err)

		require.Equal(t, 0, next.Pits[10])
		require.Equal(t, 5, next.Kazans[0])
		require.Equal(t, 0, next.Kazans[1])
	})
}

func TestApplyMove_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BoardState)
		player  int
		pit     int
		wantErr error
	}{
		{
			name:    "wrong turn",
			mutate:  func(*BoardState) {},
			player:  1,
			pit:     0,
			wantErr: errs.ErrNotYourTurn,
		},
		{
			name:    "negative pit index",
			mutate:  func(*BoardState) {},
			player:  0,
			pit:     -1,
			wantErr: errs.ErrInvalidPit,
		},
		{
			name:    "pit index past the row",
			mutate:  func(*BoardState) {},
			player:  0,
			pit:     9,
			wantErr: errs.ErrInvalidPit,
		},
		{
			name:    "empty pit",
			mutate:  func(s *BoardState) { s.Pits[4] = 0 },
			player:  0,
			pit:     4,
			wantErr: errs.ErrEmptyPit,
		},
		{
			name: "finished game",
			mutate: func(s *BoardState) {
				winner := 1
				s.Winner = &winner
			},
			player:  0,
			pit:     0,
			wantErr: errs.ErrGameFinished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := NewBoard()
			tt.mutate(&board)
			before := board

			next, err := ApplyMove(board, tt.player, tt.pit)

			require.ErrorIs(t, err, tt.wantErr)
			// a rejection leaves every field untouched
			require.Equal(t, before, next)
		})
	}
}

func TestApplyMove_WinByKazanMajority(t *testing.T) {
	board := NewBoard()
	board.Kazans[0] = 78
	board.Pits = [TotalPits]int{0, 0, 0, 0, 0, 0, 0, 0, 2, 9, 3, 9, 9, 9, 9, 9, 9, 11}

	// pit 10 ends at 4 stones and is captured, pushing the kazan past half
	next, err := ApplyMove(board, 0, 8)
	require.NoError(t, err)

	require.NotNil(t, next.Winner)
	require.Equal(t, 0, *next.Winner)
	require.Equal(t, 82, next.Kazans[0])
	require.True(t, next.Finished())
}

func TestApplyMove_ExactHalvesIsADraw(t *testing.T) {
	board := NewBoard()
	board.Kazans[0] = 79
	board.Kazans[1] = 81
	board.Pits = [TotalPits]int{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0}

	next, err := ApplyMove(board, 0, 8)
	require.NoError(t, err)

	require.True(t, next.Draw)
	require.Nil(t, next.Winner)
	require.Equal(t, 81, next.Kazans[0])
	require.Equal(t, 81, next.Kazans[1])
}

func TestApplyMove_EmptiedRowEndsTheGame(t *testing.T) {
	board := NewBoard()
	board.Kazans[0] = 50
	board.Kazans[1] = 40
	// player 1 has nothing left once player 0's move resolves
	board.Pits = [TotalPits]int{3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

	next, err := ApplyMove(board, 0, 0)
	require.NoError(t, err)

	require.True(t, next.Finished())
	require.NotNil(t, next.Winner)
	require.Equal(t, 0, *next.Winner)
}

// Random playouts exercise the conservation and alternation invariants on
// states no handcrafted case reaches.
func TestApplyMove_RandomPlayoutInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		board := NewBoard()
		for move := 0; move < 500 && !board.Finished(); move++ {
			player := board.CurrentPlayer

			pit := -1
			for _, candidate := range rng.Perm(PitsPerPlayer) {
				if board.Pits[rowStart(player)+candidate] > 0 {
					pit = candidate
					break
				}
			}
			require.GreaterOrEqual(t, pit, 0, "player to move must have stones while the game is live")

			next, err := ApplyMove(board, player, pit)
			require.NoError(t, err)

			assert.Equal(t, TotalStones, next.StoneTotal())
			if !next.Finished() {
				assert.Equal(t, 1-player, next.CurrentPlayer)
			}
			board = next
		}
	}
}
