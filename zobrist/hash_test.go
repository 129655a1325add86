package zobrist

import (
	"testing"

	"github.com/matryer/is"
)

func emptyBoard(int) int8 { return 0 }

func TestHashDistinguishesPositions(t *testing.T) {
	is := is.New(t)
	z := Shared(25)

	a := z.Hash(func(cell int) int8 {
		if cell == 12 {
			return 3
		}
		return 0
	}, false)
	b := z.Hash(func(cell int) int8 {
		if cell == 13 {
			return 3
		}
		return 0
	}, false)
	c := z.Hash(func(cell int) int8 {
		if cell == 12 {
			return -3
		}
		return 0
	}, false)
	is.True(a != b) // same piece, different cell
	is.True(a != c) // same cell, other side's piece
}

func TestHashTurnMatters(t *testing.T) {
	is := is.New(t)
	z := Shared(25)
	red := z.Hash(emptyBoard, false)
	blue := z.Hash(emptyBoard, true)
	is.True(red != blue)
}

func TestNodeKeysNeverAlias(t *testing.T) {
	is := is.New(t)
	z := Shared(25)
	pos := z.Hash(func(cell int) int8 {
		if cell == 0 {
			return 1
		}
		return 0
	}, false)

	// Decision keys split by die, depth, and side to move.
	is.True(z.DecisionKey(pos, 1, 3, true) != z.DecisionKey(pos, 2, 3, true))
	is.True(z.DecisionKey(pos, 1, 3, true) != z.DecisionKey(pos, 1, 4, true))
	is.True(z.DecisionKey(pos, 1, 3, true) != z.DecisionKey(pos, 1, 3, false))

	// Chance keys split by depth and never collide with decision keys
	// at the same position and depth.
	is.True(z.ChanceKey(pos, 3, true) != z.ChanceKey(pos, 4, true))
	for die := 1; die <= 6; die++ {
		is.True(z.ChanceKey(pos, 3, true) != z.DecisionKey(pos, die, 3, true))
	}
}

func TestSharedIsSingleton(t *testing.T) {
	is := is.New(t)
	is.Equal(Shared(25), Shared(25))
}
