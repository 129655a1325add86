package game

import (
	"testing"

	"github.com/matryer/is"
)

func TestMovableIDsAliveRoll(t *testing.T) {
	is := is.New(t)
	s := startState(t)
	for die := 1; die <= 6; die++ {
		is.Equal(s.MovableIDs(Red, die), []int8{int8(die)})
	}
}

func TestMovableIDsFallback(t *testing.T) {
	is := is.New(t)
	var board [BoardSize][BoardSize]int8
	board[0][0] = 3
	board[2][0] = 5
	board[0][4] = -1
	s, err := StateFromBoard(board, Red)
	is.NoErr(err)

	// Dead roll between two survivors: lower neighbor first.
	is.Equal(s.MovableIDs(Red, 4), []int8{3, 5})
	// Dead roll below every survivor.
	is.Equal(s.MovableIDs(Red, 1), []int8{3})
	// Dead roll above every survivor.
	is.Equal(s.MovableIDs(Red, 6), []int8{5})
	// An alive roll never falls back.
	is.Equal(s.MovableIDs(Red, 5), []int8{5})
}

func TestLegalMovesFromStart(t *testing.T) {
	is := is.New(t)
	s := startState(t)

	// Piece 1 sits on (0,0); all three diagonal-facing steps stay on
	// the board, and landing on a friendly piece is still legal.
	moves := s.LegalMoves(1)
	is.Equal(len(moves), 3)
	dests := map[Coord]bool{}
	for _, m := range moves {
		is.Equal(m.PieceID, int8(1))
		is.Equal(m.From, Coord{0, 0})
		dests[m.To] = true
	}
	is.True(dests[Coord{0, 1}])
	is.True(dests[Coord{1, 0}])
	is.True(dests[Coord{1, 1}])
}

func TestLegalMovesClippedAtEdge(t *testing.T) {
	is := is.New(t)
	var board [BoardSize][BoardSize]int8
	board[4][2] = 2 // red on the bottom row
	board[0][4] = -1
	s, err := StateFromBoard(board, Red)
	is.NoErr(err)

	moves := s.LegalMoves(2)
	is.Equal(len(moves), 1) // only the rightward step stays in bounds
	is.Equal(moves[0].To, Coord{4, 3})
}

func TestLegalMovesBlueDirections(t *testing.T) {
	is := is.New(t)
	var board [BoardSize][BoardSize]int8
	board[2][2] = -4
	board[4][4] = 1
	s, err := StateFromBoard(board, Blue)
	is.NoErr(err)

	moves := s.LegalMoves(4)
	is.Equal(len(moves), 3)
	dests := map[Coord]bool{}
	for _, m := range moves {
		dests[m.To] = true
	}
	// Blue moves toward (0,0).
	is.True(dests[Coord{1, 2}])
	is.True(dests[Coord{2, 1}])
	is.True(dests[Coord{1, 1}])
}

func TestGoalDistance(t *testing.T) {
	is := is.New(t)
	is.Equal(GoalDistance(Red, Coord{0, 0}), 8)
	is.Equal(GoalDistance(Red, Coord{4, 4}), 0)
	is.Equal(GoalDistance(Blue, Coord{4, 4}), 8)
	is.Equal(GoalDistance(Blue, Coord{1, 0}), 1)
}

func TestReachableSquaresIgnoresDice(t *testing.T) {
	is := is.New(t)
	var board [BoardSize][BoardSize]int8
	board[0][0] = 1
	board[2][2] = 6
	board[4][4] = -1
	s, err := StateFromBoard(board, Red)
	is.NoErr(err)

	squares := s.ReachableSquares(Red)
	is.Equal(len(squares), 6)
	is.True(squares[Coord{1, 1}])
	is.True(squares[Coord{3, 3}])
	is.True(!squares[Coord{0, 0}])
}

func TestMoveSigRoundTrip(t *testing.T) {
	is := is.New(t)
	m := Move{PieceID: 5, From: Coord{2, 3}, To: Coord{3, 4}}
	got := m.Sig().Decode()
	is.Equal(got, m)
	is.True(m.Sig() != NoMoveSig)
}
