// Package game implements the board, pieces, and rules of
// EinStein würfelt nicht! on a 5x5 board.
//
// Red starts in the top-left corner and moves toward (4,4); Blue starts
// in the bottom-right corner and moves toward (0,0). Landing on any
// occupied square captures the occupant, including your own piece.
package game

import "errors"

const (
	// BoardSize is the board dimension; the board is BoardSize x BoardSize.
	BoardSize = 5
	// NumPieces is the number of pieces per side, numbered 1..NumPieces.
	NumPieces = 6
	// FullAliveMask has one bit set per living piece.
	FullAliveMask = uint8(1<<NumPieces - 1)
)

var (
	ErrInvalidLayout = errors.New("invalid opening layout")
	// ErrNoLegalMoves is returned by move-choosing entry points when a
	// die yields no destinations; it can occur only in contrived or
	// terminal positions.
	ErrNoLegalMoves = errors.New("no legal moves available")
)

// Player is one of the two sides.
type Player int8

const (
	Red Player = iota
	Blue
)

func (p Player) Opponent() Player {
	if p == Red {
		return Blue
	}
	return Red
}

func (p Player) String() string {
	if p == Red {
		return "Red"
	}
	return "Blue"
}

// Coord is a 0-based (row, column) board coordinate.
type Coord struct {
	Row, Col int8
}

// Cell returns the flattened board index of the coordinate.
func (c Coord) Cell() int {
	return int(c.Row)*BoardSize + int(c.Col)
}

func (c Coord) InBounds() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Col >= 0 && c.Col < BoardSize
}

// Move is a single one-step displacement of one piece.
type Move struct {
	PieceID int8
	From    Coord
	To      Coord
}

// MoveSig is a compact encoding of a Move, small enough to live inside
// transposition table entries and killer/history tables.
// Layout: 3 bits piece id, 5 bits origin cell, 5 bits destination cell.
type MoveSig uint16

const NoMoveSig MoveSig = 0xffff

func (m Move) Sig() MoveSig {
	return MoveSig(m.PieceID)<<10 | MoveSig(m.From.Cell())<<5 | MoveSig(m.To.Cell())
}

// Decode expands a signature back into a Move.
func (sig MoveSig) Decode() Move {
	fromCell := int8(sig >> 5 & 0x1f)
	toCell := int8(sig & 0x1f)
	return Move{
		PieceID: int8(sig >> 10 & 0x7),
		From:    Coord{fromCell / BoardSize, fromCell % BoardSize},
		To:      Coord{toCell / BoardSize, toCell % BoardSize},
	}
}

var (
	// StartRedCells and StartBlueCells are the fixed opening zones. An
	// opening layout is a bijection from piece ids 1..6 onto these cells.
	StartRedCells = [NumPieces]Coord{
		{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {2, 0},
	}
	StartBlueCells = [NumPieces]Coord{
		{4, 4}, {4, 3}, {4, 2}, {3, 4}, {3, 3}, {2, 4},
	}

	TargetRed  = Coord{4, 4}
	TargetBlue = Coord{0, 0}

	directionsRed  = [3]Coord{{0, 1}, {1, 0}, {1, 1}}
	directionsBlue = [3]Coord{{0, -1}, {-1, 0}, {-1, -1}}
)

// StartCells returns the six fixed start cells for a side.
func StartCells(p Player) [NumPieces]Coord {
	if p == Red {
		return StartRedCells
	}
	return StartBlueCells
}

// Target returns the goal corner for a side.
func Target(p Player) Coord {
	if p == Red {
		return TargetRed
	}
	return TargetBlue
}

// Directions returns the three one-step directions a side may move in.
func Directions(p Player) [3]Coord {
	if p == Red {
		return directionsRed
	}
	return directionsBlue
}

func bitFor(pieceID int8) uint8 {
	return 1 << (pieceID - 1)
}
