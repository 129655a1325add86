package game

import (
	"fmt"
	"strings"

	"github.com/huashuozhou20-cpu/wtn-einstein/zobrist"
)

// GameState is a full snapshot of a position. The board is the canonical
// occupancy view: 0 for an empty cell, +k for Red piece k, -k for Blue
// piece k. Position arrays are indexed by piece id; the alive masks are
// the authority on whether a position entry is meaningful (bit k-1 set
// iff piece k is alive).
//
// States are cloned where a branch must outlive its parent, and mutated
// in place (ApplyInPlace/UndoInPlace) on the search hot path.
type GameState struct {
	board     [BoardSize][BoardSize]int8
	posRed    [NumPieces + 1]Coord
	posBlue   [NumPieces + 1]Coord
	aliveRed  uint8
	aliveBlue uint8
	turn      Player

	key      uint64
	keyValid bool
}

func validateLayout(layout []Coord, allowed [NumPieces]Coord) error {
	if len(layout) != NumPieces {
		return fmt.Errorf("%w: need %d coordinates, got %d", ErrInvalidLayout, NumPieces, len(layout))
	}
	allowedSet := make(map[Coord]bool, NumPieces)
	for _, c := range allowed {
		allowedSet[c] = true
	}
	seen := make(map[Coord]bool, NumPieces)
	for _, c := range layout {
		if !allowedSet[c] {
			return fmt.Errorf("%w: cell (%d,%d) is not a start cell", ErrInvalidLayout, c.Row, c.Col)
		}
		if seen[c] {
			return fmt.Errorf("%w: cell (%d,%d) used more than once", ErrInvalidLayout, c.Row, c.Col)
		}
		seen[c] = true
	}
	return nil
}

// NewGame creates a starting position. layoutRed and layoutBlue list the
// coordinates of pieces 1..6 in order; each must be a bijection onto the
// side's fixed start cells, otherwise ErrInvalidLayout is returned.
func NewGame(layoutRed, layoutBlue []Coord, first Player) (*GameState, error) {
	if err := validateLayout(layoutRed, StartRedCells); err != nil {
		return nil, fmt.Errorf("red %w", err)
	}
	if err := validateLayout(layoutBlue, StartBlueCells); err != nil {
		return nil, fmt.Errorf("blue %w", err)
	}
	s := &GameState{
		aliveRed:  FullAliveMask,
		aliveBlue: FullAliveMask,
		turn:      first,
	}
	for i, c := range layoutRed {
		pid := int8(i + 1)
		s.posRed[pid] = c
		s.board[c.Row][c.Col] = pid
	}
	for i, c := range layoutBlue {
		pid := int8(i + 1)
		s.posBlue[pid] = c
		s.board[c.Row][c.Col] = -pid
	}
	return s, nil
}

// ArrangementToLayout converts a start-cell ordering (the permutation of
// piece ids placed on cells[0], cells[1], ...) into the layout slice that
// NewGame expects, indexed by piece id.
func ArrangementToLayout(order []int, cells [NumPieces]Coord) ([]Coord, error) {
	if len(order) != NumPieces {
		return nil, fmt.Errorf("%w: order must list %d ids", ErrInvalidLayout, NumPieces)
	}
	layout := make([]Coord, NumPieces)
	seen := uint8(0)
	for idx, pid := range order {
		if pid < 1 || pid > NumPieces {
			return nil, fmt.Errorf("%w: piece id %d out of range", ErrInvalidLayout, pid)
		}
		if seen&bitFor(int8(pid)) != 0 {
			return nil, fmt.Errorf("%w: piece id %d repeated", ErrInvalidLayout, pid)
		}
		seen |= bitFor(int8(pid))
		layout[pid-1] = cells[idx]
	}
	return layout, nil
}

// StateFromBoard reconstructs a state from a raw occupancy grid, as
// received over the wire protocol or built by tests. Duplicate piece
// ids on a side are rejected.
func StateFromBoard(board [BoardSize][BoardSize]int8, turn Player) (*GameState, error) {
	s := &GameState{turn: turn}
	for r := int8(0); r < BoardSize; r++ {
		for c := int8(0); c < BoardSize; c++ {
			v := board[r][c]
			if v == 0 {
				continue
			}
			pid := v
			side := Red
			if v < 0 {
				pid = -v
				side = Blue
			}
			if pid > NumPieces {
				return nil, fmt.Errorf("%w: piece id %d out of range", ErrInvalidLayout, pid)
			}
			if s.AliveMask(side)&bitFor(pid) != 0 {
				return nil, fmt.Errorf("%w: duplicate %s piece %d", ErrInvalidLayout, side, pid)
			}
			(*s.positionsFor(side))[pid] = Coord{r, c}
			if side == Red {
				s.aliveRed |= bitFor(pid)
			} else {
				s.aliveBlue |= bitFor(pid)
			}
			s.board[r][c] = v
		}
	}
	return s, nil
}

// Clone returns a deep copy of the state.
func (s *GameState) Clone() *GameState {
	c := *s
	return &c
}

func (s *GameState) Turn() Player { return s.turn }

// PieceAt returns the signed occupancy value at a coordinate.
func (s *GameState) PieceAt(c Coord) int8 {
	return s.board[c.Row][c.Col]
}

// AliveMask returns the six-bit alive set for a side.
func (s *GameState) AliveMask(p Player) uint8 {
	if p == Red {
		return s.aliveRed
	}
	return s.aliveBlue
}

// AliveCount returns how many of a side's pieces survive.
func (s *GameState) AliveCount(p Player) int {
	n := 0
	for mask := s.AliveMask(p); mask != 0; mask &= mask - 1 {
		n++
	}
	return n
}

// Position returns the coordinate of a piece, or ok=false if captured.
func (s *GameState) Position(p Player, pieceID int8) (Coord, bool) {
	if s.AliveMask(p)&bitFor(pieceID) == 0 {
		return Coord{}, false
	}
	if p == Red {
		return s.posRed[pieceID], true
	}
	return s.posBlue[pieceID], true
}

// Key returns the transposition key of the position, a zobrist hash over
// turn, board occupancy and both alive masks. It is memoized; mutation
// invalidates it and UndoInPlace restores the previous cached value.
func (s *GameState) Key() uint64 {
	if !s.keyValid {
		s.key = zobrist.HashPosition(func(cell int) int8 {
			return s.board[cell/BoardSize][cell%BoardSize]
		}, BoardSize*BoardSize, s.turn == Blue)
		s.keyValid = true
	}
	return s.key
}

// UndoRecord carries the minimal delta to reverse one in-place move.
// It is created by ApplyInPlace and consumed by UndoInPlace within the
// same search frame.
type UndoRecord struct {
	move         Move
	prevTurn     Player
	fromValue    int8
	toValue      int8
	movedPrevPos Coord
	capturedPos  Coord
	capturedID   int8
	capturedSide Player
	captured     bool
	aliveRed     uint8
	aliveBlue    uint8
	prevKey      uint64
	prevKeyValid bool
}

func (s *GameState) positionsFor(p Player) *[NumPieces + 1]Coord {
	if p == Red {
		return &s.posRed
	}
	return &s.posBlue
}

// ApplyInPlace mutates the state with the move, resolving any capture and
// flipping the turn. The returned record restores every field, including
// the cached key, bit for bit when passed to UndoInPlace.
func (s *GameState) ApplyInPlace(m Move) UndoRecord {
	mover := s.turn
	u := UndoRecord{
		move:         m,
		prevTurn:     mover,
		fromValue:    s.board[m.From.Row][m.From.Col],
		toValue:      s.board[m.To.Row][m.To.Col],
		movedPrevPos: (*s.positionsFor(mover))[m.PieceID],
		aliveRed:     s.aliveRed,
		aliveBlue:    s.aliveBlue,
		prevKey:      s.key,
		prevKeyValid: s.keyValid,
	}

	if u.toValue != 0 {
		side := Red
		id := u.toValue
		if u.toValue < 0 {
			side = Blue
			id = -u.toValue
		}
		u.captured = true
		u.capturedSide = side
		u.capturedID = id
		u.capturedPos = (*s.positionsFor(side))[id]
		if side == Red {
			s.aliveRed &^= bitFor(id)
		} else {
			s.aliveBlue &^= bitFor(id)
		}
	}

	(*s.positionsFor(mover))[m.PieceID] = m.To
	s.board[m.From.Row][m.From.Col] = 0
	s.board[m.To.Row][m.To.Col] = u.fromValue
	s.turn = mover.Opponent()
	s.keyValid = false
	return u
}

// UndoInPlace reverts a prior ApplyInPlace.
func (s *GameState) UndoInPlace(u UndoRecord) {
	s.turn = u.prevTurn
	s.aliveRed = u.aliveRed
	s.aliveBlue = u.aliveBlue

	(*s.positionsFor(u.prevTurn))[u.move.PieceID] = u.movedPrevPos
	if u.captured {
		(*s.positionsFor(u.capturedSide))[u.capturedID] = u.capturedPos
	}

	s.board[u.move.From.Row][u.move.From.Col] = u.fromValue
	s.board[u.move.To.Row][u.move.To.Col] = u.toValue

	s.key = u.prevKey
	s.keyValid = u.prevKeyValid
}

// Apply returns a new state with the move applied, leaving the receiver
// untouched. Used where branches must be retained.
func (s *GameState) Apply(m Move) *GameState {
	next := s.Clone()
	next.ApplyInPlace(m)
	return next
}

// Winner reports the winning side, if the game is over. A side wins by
// occupying the opponent's home corner or by capturing all opposing pieces.
func (s *GameState) Winner() (Player, bool) {
	if s.board[TargetRed.Row][TargetRed.Col] > 0 || s.aliveBlue == 0 {
		return Red, true
	}
	if s.board[TargetBlue.Row][TargetBlue.Col] < 0 || s.aliveRed == 0 {
		return Blue, true
	}
	return Red, false
}

func (s *GameState) IsTerminal() bool {
	_, over := s.Winner()
	return over
}

// String renders the board for logs and the shell.
func (s *GameState) String() string {
	var sb strings.Builder
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			switch v := s.board[r][c]; {
			case v == 0:
				sb.WriteString(" .")
			case v > 0:
				fmt.Fprintf(&sb, "R%d", v)
			default:
				fmt.Fprintf(&sb, "B%d", -v)
			}
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "turn: %s\n", s.turn)
	return sb.String()
}
