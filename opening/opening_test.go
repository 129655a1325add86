package opening

import (
	"math/rand"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/huashuozhou20-cpu/wtn-einstein/game"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func isPermutation(order []int) bool {
	if len(order) != game.NumPieces {
		return false
	}
	seen := [game.NumPieces + 1]bool{}
	for _, pid := range order {
		if pid < 1 || pid > game.NumPieces || seen[pid] {
			return false
		}
		seen[pid] = true
	}
	return true
}

func TestAllOrders(t *testing.T) {
	is := is.New(t)
	orders := AllOrders()
	is.Equal(len(orders), 720)

	unique := make(map[[game.NumPieces]int]bool, len(orders))
	for _, o := range orders {
		is.True(isPermutation(o))
		var key [game.NumPieces]int
		copy(key[:], o)
		unique[key] = true
	}
	is.Equal(len(unique), 720)
}

func TestStaticScoreFormula(t *testing.T) {
	is := is.New(t)
	// sum(pid*2) - sum(goal distances of the start cells): 42 - 40.
	is.Equal(StaticScore([]int{1, 2, 3, 4, 5, 6}, game.Red), 2.0)
	is.Equal(StaticScore([]int{1, 2, 3, 4, 5, 6}, game.Blue), 2.0)
}

func TestBestStaticOrder(t *testing.T) {
	is := is.New(t)
	for _, p := range []game.Player{game.Red, game.Blue} {
		best := BestStaticOrder(p)
		is.True(isPermutation(best))
		score := StaticScore(best, p)
		for _, o := range AllOrders() {
			is.True(StaticScore(o, p) <= score)
		}
	}
}

func TestMiniExpectiScoreTinyBudgetIsStatic(t *testing.T) {
	is := is.New(t)
	order := []int{3, 1, 2, 5, 4, 6}
	is.Equal(MiniExpectiScore(order, game.Red, 5, 42), StaticScore(order, game.Red))
}

func TestMiniExpectiScoreSeededReproducible(t *testing.T) {
	is := is.New(t)
	order := []int{2, 4, 1, 6, 3, 5}
	a := MiniExpectiScore(order, game.Blue, 150, 7)
	b := MiniExpectiScore(order, game.Blue, 150, 7)
	is.Equal(a, b)
}

func TestBestOrderReturnsValidPermutation(t *testing.T) {
	is := is.New(t)
	order := BestOrder(game.Red, 100, 11)
	is.True(isPermutation(order))

	// Reproducible under the same seed and budget.
	is.Equal(BestOrder(game.Blue, 100, 11), BestOrder(game.Blue, 100, 11))
}

func TestCandidatePoolIncludesBaselines(t *testing.T) {
	is := is.New(t)
	for _, p := range []game.Player{game.Red, game.Blue} {
		rng := rand.New(rand.NewSource(3))
		pool := candidatePool(p, 90, rng)

		wanted := [][]int{
			{1, 2, 3, 4, 5, 6},
			{6, 5, 4, 3, 2, 1},
			BestStaticOrder(p),
		}
		for _, w := range wanted {
			found := false
			for _, c := range pool {
				if sameOrder(c, w) {
					found = true
					break
				}
			}
			is.True(found)
		}

		// No duplicates: the pool never exceeds the sample plus the
		// missing baselines.
		is.True(len(pool) <= 93)
		seen := map[[6]int]bool{}
		for _, c := range pool {
			var key [6]int
			copy(key[:], c)
			is.True(!seen[key])
			seen[key] = true
		}
	}
}

func TestStateFromOrders(t *testing.T) {
	is := is.New(t)
	s, err := stateFromOrders([]int{1, 2, 3, 4, 5, 6}, []int{6, 5, 4, 3, 2, 1}, game.Red)
	is.NoErr(err)
	is.Equal(s.Turn(), game.Red)
	cells := game.StartCells(game.Red)
	is.Equal(s.PieceAt(cells[0]), int8(1))
	blueCells := game.StartCells(game.Blue)
	is.Equal(s.PieceAt(blueCells[0]), int8(-6))
}
