package search

import (
	"testing"

	"github.com/matryer/is"

	"github.com/huashuozhou20-cpu/wtn-einstein/game"
)

func TestTableSizeClamps(t *testing.T) {
	is := is.New(t)
	tt := &transpositionTable{}

	tt.reset(1e-9)
	is.Equal(tt.sizePowerOf2, minTablePower)
	is.Equal(len(tt.table), 1<<minTablePower)

	tt.reset(1e9)
	is.Equal(tt.sizePowerOf2, maxTablePower)
	is.Equal(len(tt.table), 1<<maxTablePower)
}

func TestTableStoreAndLookup(t *testing.T) {
	is := is.New(t)
	tt := &transpositionTable{}
	tt.reset(1e-9)

	sig := game.Move{PieceID: 2, From: game.Coord{Row: 1, Col: 1}, To: game.Coord{Row: 2, Col: 2}}.Sig()
	key := uint64(0xdeadbeefcafe)
	tt.store(key, tableEntry{
		score:        3.25,
		move:         sig,
		flagAndDepth: ttExact<<6 | 5,
	})

	entry := tt.lookup(key)
	is.True(entry.valid())
	is.Equal(entry.flag(), uint8(ttExact))
	is.Equal(entry.depth(), uint8(5))
	is.Equal(entry.score, float32(3.25))
	is.Equal(entry.move, sig)
}

func TestTableMissAndCollision(t *testing.T) {
	is := is.New(t)
	tt := &transpositionTable{}
	tt.reset(1e-9)

	key := uint64(0x12345)
	is.True(!tt.lookup(key).valid()) // empty slot

	tt.store(key, tableEntry{score: 1, flagAndDepth: ttLower<<6 | 3})

	// A different position hashing to the same slot must not be served
	// the stored entry.
	collider := key + (1 << tt.sizePowerOf2)
	is.True(!tt.lookup(collider).valid())
	is.Equal(tt.t2collisions, uint64(1))
}

func TestTableKeepsDeeperEntry(t *testing.T) {
	is := is.New(t)
	tt := &transpositionTable{}
	tt.reset(1e-9)

	key := uint64(0xabcdef)
	tt.store(key, tableEntry{score: 7, flagAndDepth: ttExact<<6 | 6})
	tt.store(key, tableEntry{score: 1, flagAndDepth: ttExact<<6 | 2})

	entry := tt.lookup(key)
	is.Equal(entry.depth(), uint8(6))
	is.Equal(entry.score, float32(7))

	// A deeper result for the same key does replace.
	tt.store(key, tableEntry{score: 9, flagAndDepth: ttExact<<6 | 8})
	is.Equal(tt.lookup(key).depth(), uint8(8))
}

func TestTableResetClears(t *testing.T) {
	is := is.New(t)
	tt := &transpositionTable{}
	tt.reset(1e-9)
	key := uint64(0x777)
	tt.store(key, tableEntry{score: 2, flagAndDepth: ttExact<<6 | 4})
	is.True(tt.lookup(key).valid())

	tt.reset(1e-9)
	is.True(!tt.lookup(key).valid())
	is.Equal(tt.created, uint64(0))
}
