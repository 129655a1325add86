package search

import (
	"math"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/huashuozhou20-cpu/wtn-einstein/game"
)

const (
	ttExact = 0x01
	ttLower = 0x02
	ttUpper = 0x03
)

const entrySize = 16

const depthMask = (1 << 6) - 1

// tableEntry is one transposition slot. Depth and flag share a byte:
// flag in the top two bits, depth (<= 63) in the bottom six.
type tableEntry struct {
	fullKey      uint64
	score        float32
	move         game.MoveSig
	flagAndDepth uint8
}

func (t tableEntry) flag() uint8 {
	return t.flagAndDepth >> 6
}

func (t tableEntry) depth() uint8 {
	return t.flagAndDepth & depthMask
}

func (t tableEntry) valid() bool {
	// a flag is 1, 2, or 3.
	return t.flag() != 0
}

// transpositionTable is a flat power-of-two table, rebuilt at the start
// of every top-level ChooseMove call. It is owned by a single Solver and
// never shared across in-flight searches.
type transpositionTable struct {
	table        []tableEntry
	sizePowerOf2 int
	sizeMask     uint64

	created uint64
	lookups uint64
	hits    uint64
	// "type 2" collisions: an unrelated position occupying the slot.
	t2collisions uint64
}

const (
	minTablePower = 16
	maxTablePower = 24
)

// reset clears or (re)allocates the table, sized as a fraction of system
// memory bounded to a range that suits a 5x5 game.
func (t *transpositionTable) reset(fractionOfMemory float64) {
	totalMem := memory.TotalMemory()
	desiredNElems := fractionOfMemory * (float64(totalMem) / float64(entrySize))
	t.sizePowerOf2 = int(math.Log2(desiredNElems))
	if t.sizePowerOf2 < minTablePower {
		t.sizePowerOf2 = minTablePower
	}
	if t.sizePowerOf2 > maxTablePower {
		t.sizePowerOf2 = maxTablePower
	}
	numElems := 1 << t.sizePowerOf2
	t.sizeMask = uint64(numElems - 1)
	if t.table != nil && len(t.table) == numElems {
		clear(t.table)
	} else {
		t.table = make([]tableEntry, numElems)
		log.Debug().Int("num-elems", numElems).
			Int("estimated-total-memory-bytes", numElems*entrySize).
			Msg("transposition-table-size")
	}
	t.created = 0
	t.lookups = 0
	t.hits = 0
	t.t2collisions = 0
}

// copyCounters publishes table activity into the per-search stats.
func (t *transpositionTable) copyCounters(st *Stats) {
	st.TTLookups = t.lookups
	st.TTStores = t.created
}

func (t *transpositionTable) lookup(key uint64) tableEntry {
	t.lookups++
	idx := key & t.sizeMask
	entry := t.table[idx]
	if entry.fullKey != key || !entry.valid() {
		if entry.valid() {
			t.t2collisions++
		}
		return tableEntry{}
	}
	t.hits++
	return entry
}

// store writes an entry unless the slot already holds a deeper result
// for the same key.
func (t *transpositionTable) store(key uint64, entry tableEntry) {
	idx := key & t.sizeMask
	existing := t.table[idx]
	if existing.valid() && existing.fullKey == key && existing.depth() > entry.depth() {
		return
	}
	entry.fullKey = key
	t.table[idx] = entry
	t.created++
}
