// Package zobrist hashes board positions for transposition lookups.
// https://en.wikipedia.org/wiki/Zobrist_hashing
package zobrist

import (
	"sync"

	"lukechampine.com/frand"
)

const bignum = 1<<63 - 2

// Piece values on the board run -6..+6 with 0 empty, so 13 encodings
// per cell cover every occupancy.
const pieceEncodings = 13

type Zobrist struct {
	blueTurn uint64
	posTable [][]uint64

	// Per-node search tags. Decision nodes at the same position differ
	// by die and depth; chance nodes carry their own tag so the two node
	// kinds can never collide in one table.
	dieKeys   [7]uint64
	depthKeys []uint64
	chanceTag uint64
	maximizer uint64
}

// Initialize fills the hash tables for a board with numCells squares and
// search trees up to maxDepth deep.
func (z *Zobrist) Initialize(numCells, maxDepth int) {
	z.posTable = make([][]uint64, numCells)
	for i := 0; i < numCells; i++ {
		z.posTable[i] = make([]uint64, pieceEncodings)
		for j := 0; j < pieceEncodings; j++ {
			z.posTable[i][j] = frand.Uint64n(bignum) + 1
		}
	}
	for i := 1; i <= 6; i++ {
		z.dieKeys[i] = frand.Uint64n(bignum) + 1
	}
	z.depthKeys = make([]uint64, maxDepth+1)
	for i := range z.depthKeys {
		z.depthKeys[i] = frand.Uint64n(bignum) + 1
	}
	z.chanceTag = frand.Uint64n(bignum) + 1
	z.maximizer = frand.Uint64n(bignum) + 1
	z.blueTurn = frand.Uint64n(bignum) + 1
}

// Hash computes the full position hash. pieceAt reports the signed
// occupancy of a flattened cell index.
func (z *Zobrist) Hash(pieceAt func(cell int) int8, blueTurn bool) uint64 {
	key := uint64(0)
	for cell := range z.posTable {
		v := pieceAt(cell)
		if v == 0 {
			continue
		}
		key ^= z.posTable[cell][int(v)+6]
	}
	if blueTurn {
		key ^= z.blueTurn
	}
	return key
}

// DecisionKey tags a position key with die, depth, and maximizing side so
// that distinct decision problems at the same position never share an
// entry.
func (z *Zobrist) DecisionKey(posKey uint64, die, depth int, maximizerToMove bool) uint64 {
	key := posKey ^ z.dieKeys[die] ^ z.depthKeys[depth]
	if maximizerToMove {
		key ^= z.maximizer
	}
	return key
}

// ChanceKey tags a position key for a chance node at a given depth.
func (z *Zobrist) ChanceKey(posKey uint64, depth int, maximizerToMove bool) uint64 {
	key := posKey ^ z.chanceTag ^ z.depthKeys[depth]
	if maximizerToMove {
		key ^= z.maximizer
	}
	return key
}

var (
	shared     *Zobrist
	sharedOnce sync.Once
)

// MaxSearchDepth bounds depth tags handed out by the shared instance.
const MaxSearchDepth = 64

// Shared returns the process-wide hasher, seeding it on first use.
func Shared(numCells int) *Zobrist {
	sharedOnce.Do(func() {
		shared = &Zobrist{}
		shared.Initialize(numCells, MaxSearchDepth)
	})
	return shared
}

// HashPosition hashes a position with the shared instance.
func HashPosition(pieceAt func(cell int) int8, numCells int, blueTurn bool) uint64 {
	return Shared(numCells).Hash(pieceAt, blueTurn)
}
