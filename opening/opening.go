// Package opening generates and scores opening layouts: a layout is the
// permutation of piece ids 1..6 placed onto the side's fixed start
// cells. Scoring is either a fast static heuristic or a "mini-expecti"
// rollout, a lighter-weight sibling of the main search.
package opening

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/huashuozhou20-cpu/wtn-einstein/eval"
	"github.com/huashuozhou20-cpu/wtn-einstein/game"
	"github.com/huashuozhou20-cpu/wtn-einstein/search"
)

// AllOrders returns every permutation of piece ids 1..6.
func AllOrders() [][]int {
	var orders [][]int
	ids := []int{1, 2, 3, 4, 5, 6}
	var permute func(k int)
	permute = func(k int) {
		if k == len(ids) {
			orders = append(orders, append([]int(nil), ids...))
			return
		}
		for i := k; i < len(ids); i++ {
			ids[k], ids[i] = ids[i], ids[k]
			permute(k + 1)
			ids[k], ids[i] = ids[i], ids[k]
		}
	}
	permute(0)
	return orders
}

// StaticScore is a fast heuristic for an opening order: it prefers
// placing higher ids closer to the target corner.
func StaticScore(order []int, p game.Player) float64 {
	cells := game.StartCells(p)
	score := 0.0
	for idx, pid := range order {
		dist := game.GoalDistance(p, cells[idx])
		score += float64(pid)*2 - float64(dist)
	}
	return score
}

// MiniExpectiScore rolls out short games from the layout against a few
// fixed opponent layouts under seeded dice, a shallow solver choosing the
// player's moves and a greedy policy answering; the mean evaluation of
// the end positions is the score. A budget at or below 5ms degrades to
// the static score.
func MiniExpectiScore(order []int, p game.Player, budgetMs int, seed int64) float64 {
	if budgetMs > 0 && budgetMs <= 5 {
		return StaticScore(order, p)
	}
	start := time.Now()
	rng := rand.New(rand.NewSource(seed))

	opponentOrders := [][]int{
		{1, 2, 3, 4, 5, 6},
		{6, 5, 4, 3, 2, 1},
		BestStaticOrder(p.Opponent()),
	}

	solver := search.NewSolver()
	solver.SetMaxDepth(2)

	diceSequences := make([][]int, 10)
	for i := range diceSequences {
		seq := make([]int, 6)
		for j := range seq {
			seq[j] = rng.Intn(6) + 1
		}
		diceSequences[i] = seq
	}
	seqsToUse := len(diceSequences)
	if budgetMs > 0 {
		seqsToUse = clampInt(budgetMs/12, 1, len(diceSequences))
	}

	var scores []float64
	for _, oppOrder := range opponentOrders {
		st, err := stateFromOrders(order, oppOrder, p)
		if err != nil {
			continue
		}
		for _, seq := range diceSequences[:seqsToUse] {
			sim := st.Clone()
			for _, die := range seq {
				var mv game.Move
				var merr error
				if sim.Turn() == p {
					mv, merr = solver.ChooseMove(sim, die, 8)
				} else {
					moves := sim.LegalMoves(die)
					if len(moves) == 0 {
						merr = game.ErrNoLegalMoves
					} else {
						mv = search.GreedyMove(sim, moves)
					}
				}
				if merr != nil {
					break
				}
				sim = sim.Apply(mv)
				if sim.IsTerminal() {
					break
				}
			}
			if winner, over := sim.Winner(); over {
				if winner == p {
					scores = append(scores, math.Inf(1))
				} else {
					scores = append(scores, math.Inf(-1))
				}
			} else {
				scores = append(scores, eval.Score(sim, p))
			}
		}
		if budgetMs > 0 && time.Since(start).Milliseconds() > int64(budgetMs) {
			break
		}
	}

	if len(scores) == 0 {
		return StaticScore(order, p)
	}
	if lo.Contains(scores, math.Inf(1)) {
		return math.Inf(1)
	}
	if lo.Contains(scores, math.Inf(-1)) {
		return math.Inf(-1)
	}
	return lo.Sum(scores) / float64(len(scores))
}

// BestStaticOrder returns the statically best layout order for a side.
func BestStaticOrder(p game.Player) []int {
	orders := AllOrders()
	return lo.MaxBy(orders, func(a, b []int) bool {
		return StaticScore(a, p) > StaticScore(b, p)
	})
}

// BestOrder searches opening layouts within a budget: static scoring
// prunes the 720 permutations to a candidate pool, mini-expecti rollouts
// rank the pool, and the leading finalists are re-scored once more with
// a fresh seed to damp rollout noise.
func BestOrder(p game.Player, budgetMs int, seed int64) []int {
	const (
		sampleSize       = 90
		topK             = 12
		perOrderBudgetMs = 300
	)
	if budgetMs <= 0 {
		budgetMs = 200
	}
	start := time.Now()
	rng := rand.New(rand.NewSource(seed))
	candidates := candidatePool(p, sampleSize, rng)

	maxCandidates := clampInt(budgetMs/90, 1, len(candidates))
	perCandidateBudget := clampInt(budgetMs/maxCandidates, 25, perOrderBudgetMs)

	scored := make([]scoredOrder, 0, maxCandidates)
	for _, o := range candidates[:maxCandidates] {
		scored = append(scored, scoredOrder{MiniExpectiScore(o, p, perCandidateBudget, seed), o})
	}
	if len(scored) == 0 {
		return BestStaticOrder(p)
	}
	sortDescending(scored)
	finalists := scored
	if len(finalists) > topK {
		finalists = finalists[:topK]
	}

	var best []int
	bestScore := math.Inf(-1)
	refineLimit := 3
	if refineLimit > len(finalists) {
		refineLimit = len(finalists)
	}
	for _, f := range finalists[:refineLimit] {
		if time.Since(start).Milliseconds() > int64(budgetMs) {
			break
		}
		refineBudget := clampInt(budgetMs/max(2, refineLimit), 5, perOrderBudgetMs)
		refined := MiniExpectiScore(f.order, p, refineBudget, seed+1)
		total := (f.score + refined) / 2
		if total > bestScore {
			bestScore = total
			best = f.order
		}
	}
	if best == nil {
		best = finalists[0].order
	}
	return best
}

func stateFromOrders(order, oppOrder []int, p game.Player) (*game.GameState, error) {
	myLayout, err := game.ArrangementToLayout(order, game.StartCells(p))
	if err != nil {
		return nil, err
	}
	oppLayout, err := game.ArrangementToLayout(oppOrder, game.StartCells(p.Opponent()))
	if err != nil {
		return nil, err
	}
	if p == game.Red {
		return game.NewGame(myLayout, oppLayout, p)
	}
	return game.NewGame(oppLayout, myLayout, p)
}

type scoredOrder struct {
	score float64
	order []int
}

func sortDescending(s []scoredOrder) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].score > s[j].score })
}

// candidatePool ranks all 720 orders statically and keeps the best
// sampleSize of them. The canonical placements and the static optimum
// always join the pool so the rollout stage never skips a baseline.
func candidatePool(p game.Player, sampleSize int, rng *rand.Rand) [][]int {
	orders := AllOrders()
	static := make([]scoredOrder, len(orders))
	for i, o := range orders {
		// A vanishing random jitter breaks static-score ties.
		static[i] = scoredOrder{StaticScore(o, p) + rng.Float64()*1e-6, o}
	}
	sortDescending(static)
	poolSize := sampleSize
	if poolSize > len(static) {
		poolSize = len(static)
	}
	candidates := lo.Map(static[:poolSize], func(so scoredOrder, _ int) []int { return so.order })

	baselines := [][]int{
		{1, 2, 3, 4, 5, 6},
		{6, 5, 4, 3, 2, 1},
		BestStaticOrder(p),
	}
	for _, b := range baselines {
		contains := lo.ContainsBy(candidates, func(c []int) bool {
			return sameOrder(c, b)
		})
		if !contains {
			candidates = append(candidates, b)
		}
	}
	return candidates
}

func sameOrder(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
