package search

import (
	"errors"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/huashuozhou20-cpu/wtn-einstein/game"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func mustState(t *testing.T, board [game.BoardSize][game.BoardSize]int8, turn game.Player) *game.GameState {
	t.Helper()
	s, err := game.StateFromBoard(board, turn)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func startState(t *testing.T) *game.GameState {
	t.Helper()
	red := game.StartCells(game.Red)
	blue := game.StartCells(game.Blue)
	s, err := game.NewGame(red[:], blue[:], game.Red)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestChooseMoveNoLegalMoves(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[2][2] = -1 // red has nothing left to move
	s := mustState(t, board, game.Red)
	_, err := NewSolver().ChooseMove(s, 3, 100)
	is.True(errors.Is(err, game.ErrNoLegalMoves))
}

func TestChooseMoveFindsImmediateWin(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[3][3] = 3
	board[0][4] = -1
	board[1][4] = -2
	s := mustState(t, board, game.Red)

	solver := NewSolver()
	mv, err := solver.ChooseMove(s, 3, 500)
	is.NoErr(err)
	is.Equal(mv.To, game.Target(game.Red))
	// A proven win stops the deepening loop at once.
	is.Equal(solver.Stats().DepthReached, 1)
}

func TestChooseMoveFindsWinByElimination(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[2][2] = 4
	board[3][3] = -6 // blue's last piece, on red 4's diagonal
	s := mustState(t, board, game.Red)

	mv, err := NewSolver().ChooseMove(s, 4, 500)
	is.NoErr(err)
	is.Equal(mv.To, game.Coord{Row: 3, Col: 3})
}

func TestChooseMoveDeterministic(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[1][1] = 2
	board[2][0] = 4
	board[0][2] = 6
	board[3][3] = -1
	board[4][2] = -3
	board[2][4] = -5
	run := func() game.Move {
		s := mustState(t, board, game.Red)
		solver := NewSolver()
		solver.SetMaxDepth(3)
		mv, err := solver.ChooseMove(s, 2, 5000)
		is.NoErr(err)
		is.Equal(solver.Stats().DepthReached, 3)
		return mv
	}
	is.Equal(run(), run())
}

func TestChooseMoveTinyBudgetFallsBackToGreedy(t *testing.T) {
	is := is.New(t)
	s := startState(t)
	solver := NewSolver()
	mv, err := solver.ChooseMove(s, 5, 2)
	is.NoErr(err)
	// No tree search ran, but the move is legal for the die.
	is.Equal(solver.Stats().DepthReached, 0)
	found := false
	for _, m := range s.LegalMoves(5) {
		if m == mv {
			found = true
		}
	}
	is.True(found)
}

func TestChooseMoveLeavesStateUntouched(t *testing.T) {
	is := is.New(t)
	s := startState(t)
	before := s.Key()
	solver := NewSolver()
	solver.SetMaxDepth(2)
	_, err := solver.ChooseMove(s, 1, 1000)
	is.NoErr(err)
	is.Equal(s.Key(), before)
	is.Equal(s.Turn(), game.Red)
}

func TestChooseMovePopulatesStats(t *testing.T) {
	is := is.New(t)
	s := startState(t)
	solver := NewSolver()
	solver.SetMaxDepth(3)
	_, err := solver.ChooseMove(s, 4, 5000)
	is.NoErr(err)
	st := solver.Stats()
	is.True(st.Nodes > 0)
	is.True(st.TTStores > 0)
	is.True(st.TTLookups > 0)
	is.True(st.Elapsed > 0)
}

func TestGreedyMovePrefersWin(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[3][3] = 1
	board[0][4] = -2
	s := mustState(t, board, game.Red)
	mv := GreedyMove(s, s.LegalMoves(1))
	is.Equal(mv.To, game.Target(game.Red))
}

func TestGreedyMovePrefersCapture(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[1][1] = 6
	board[2][2] = -5
	board[4][0] = -1
	s := mustState(t, board, game.Red)
	mv := GreedyMove(s, s.LegalMoves(6))
	is.Equal(mv.To, game.Coord{Row: 2, Col: 2})
}

func TestOrderMovesWinFirst(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[3][3] = 1
	board[3][4] = -2
	board[0][4] = -3
	s := mustState(t, board, game.Red)

	// Generation order: capture (3,4), plain (4,3), win (4,4).
	moves := s.LegalMoves(1)
	is.Equal(len(moves), 3)

	solver := NewSolver()
	solver.orderMoves(s, moves, game.Red, 0, game.NoMoveSig)
	is.Equal(moves[0].To, game.Coord{Row: 4, Col: 4})
	is.Equal(moves[1].To, game.Coord{Row: 3, Col: 4}) // capture above plain
}

func TestOrderMovesHashMoveAboveCapture(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[2][2] = 1
	board[2][3] = -2
	board[0][4] = -3
	s := mustState(t, board, game.Red)

	moves := s.LegalMoves(1)
	plain := game.Move{PieceID: 1, From: game.Coord{Row: 2, Col: 2}, To: game.Coord{Row: 3, Col: 2}}
	solver := NewSolver()
	solver.orderMoves(s, moves, game.Red, 0, plain.Sig())
	is.Equal(moves[0], plain)
}

func TestOrderMovesKillersAboveCapture(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[2][2] = 1
	board[2][3] = -2
	board[0][4] = -3
	s := mustState(t, board, game.Red)

	moves := s.LegalMoves(1)
	plain := game.Move{PieceID: 1, From: game.Coord{Row: 2, Col: 2}, To: game.Coord{Row: 3, Col: 2}}
	solver := NewSolver()
	solver.storeKiller(0, plain.Sig())
	solver.orderMoves(s, moves, game.Red, 0, game.NoMoveSig)
	is.Equal(moves[0], plain)
	is.True(solver.Stats().KillerHits >= 1)
}

func TestOrderMovesHistoryAboveCapture(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[2][2] = 1
	board[2][3] = -2
	board[0][4] = -3
	s := mustState(t, board, game.Red)

	moves := s.LegalMoves(1)
	quiet := game.Move{PieceID: 1, From: game.Coord{Row: 2, Col: 2}, To: game.Coord{Row: 3, Col: 2}}
	capture := game.Move{PieceID: 1, From: game.Coord{Row: 2, Col: 2}, To: game.Coord{Row: 2, Col: 3}}
	solver := NewSolver()

	// Without history credit the capture leads.
	solver.orderMoves(s, moves, game.Red, 0, game.NoMoveSig)
	is.Equal(moves[0], capture)

	// Any accumulated cutoff credit lifts the quiet move past it,
	// even the smallest amount and even when saturated.
	for _, credit := range []float64{1, 20000} {
		solver.history[historyKey{game.Red, quiet.Sig()}] = credit
		moves = s.LegalMoves(1)
		solver.orderMoves(s, moves, game.Red, 0, game.NoMoveSig)
		is.Equal(moves[0], quiet)
		is.Equal(moves[1], capture)
	}

	// The history band stays below the killer slots.
	solver.storeKiller(0, capture.Sig())
	moves = s.LegalMoves(1)
	solver.orderMoves(s, moves, game.Red, 0, game.NoMoveSig)
	is.Equal(moves[0], capture)
}

func TestOrderMovesSelfCaptureLast(t *testing.T) {
	is := is.New(t)
	var board [game.BoardSize][game.BoardSize]int8
	board[2][2] = 1
	board[3][3] = 4 // own piece on the diagonal
	board[0][4] = -2
	s := mustState(t, board, game.Red)

	moves := s.LegalMoves(1)
	solver := NewSolver()
	solver.orderMoves(s, moves, game.Red, 0, game.NoMoveSig)
	last := moves[len(moves)-1]
	is.Equal(last.To, game.Coord{Row: 3, Col: 3})
}

func TestKillerTableShiftAndDecay(t *testing.T) {
	is := is.New(t)
	solver := NewSolver()
	sigA := game.Move{PieceID: 1, From: game.Coord{Row: 0, Col: 0}, To: game.Coord{Row: 1, Col: 1}}.Sig()
	sigB := game.Move{PieceID: 2, From: game.Coord{Row: 0, Col: 1}, To: game.Coord{Row: 1, Col: 2}}.Sig()

	solver.storeKiller(2, sigA)
	solver.storeKiller(2, sigB)
	is.Equal(solver.killers[2][0], sigB)
	is.Equal(solver.killers[2][1], sigA)

	// Re-storing the current primary killer must not duplicate it.
	solver.storeKiller(2, sigB)
	is.Equal(solver.killers[2][1], sigA)

	solver.storeKiller(10, sigA)
	solver.decayKillers()
	// Shallow plies survive between calls, deep ones are cleared.
	is.Equal(solver.killers[2][0], sigB)
	is.Equal(solver.killers[10][0], game.NoMoveSig)
}

func TestHistoryAccumulationAndDecay(t *testing.T) {
	is := is.New(t)
	solver := NewSolver()
	sig := game.Move{PieceID: 3, From: game.Coord{Row: 1, Col: 1}, To: game.Coord{Row: 2, Col: 2}}.Sig()

	solver.recordHistory(game.Red, sig, 3)
	solver.recordHistory(game.Red, sig, 2)
	key := historyKey{game.Red, sig}
	is.Equal(solver.history[key], 13.0) // 3*3 + 2*2

	solver.decayHistory()
	assert.InDelta(t, 13.0*historyDecay, solver.history[key], 1e-9)

	// Decay eventually drops the entry entirely.
	for i := 0; i < 32; i++ {
		solver.decayHistory()
	}
	_, ok := solver.history[key]
	is.True(!ok)

	// Sides accumulate independently.
	solver.recordHistory(game.Blue, sig, 4)
	_, ok = solver.history[historyKey{game.Red, sig}]
	is.True(!ok)
	is.Equal(solver.history[historyKey{game.Blue, sig}], 16.0)
}
