// Package agent defines the move-choosing interface and its concrete
// implementations: random, greedy, search-backed, and layout-searching
// variants.
package agent

import (
	"math/rand"

	"github.com/huashuozhou20-cpu/wtn-einstein/game"
	"github.com/huashuozhou20-cpu/wtn-einstein/opening"
	"github.com/huashuozhou20-cpu/wtn-einstein/search"
)

// Agent picks moves and opening layouts. budgetMs <= 0 means the agent
// decides its own spend.
type Agent interface {
	Name() string
	ChooseMove(s *game.GameState, die int, budgetMs int) (game.Move, error)
	ChooseInitialLayout(p game.Player, budgetMs int) []int
}

// Random selects uniformly among legal moves, reproducibly when seeded.
type Random struct {
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (a *Random) Name() string { return "random" }

func (a *Random) ChooseMove(s *game.GameState, die int, _ int) (game.Move, error) {
	moves := s.LegalMoves(die)
	if len(moves) == 0 {
		return game.Move{}, game.ErrNoLegalMoves
	}
	return moves[a.rng.Intn(len(moves))], nil
}

func (a *Random) ChooseInitialLayout(game.Player, int) []int {
	order := []int{1, 2, 3, 4, 5, 6}
	a.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// Greedy uses a lightweight priority: immediate win, then capture, then
// closeness to the goal corner. The RNG breaks ties.
type Greedy struct {
	rng *rand.Rand
}

func NewGreedy(seed int64) *Greedy {
	return &Greedy{rng: rand.New(rand.NewSource(seed))}
}

func (a *Greedy) Name() string { return "greedy" }

func (a *Greedy) ChooseMove(s *game.GameState, die int, _ int) (game.Move, error) {
	moves := s.LegalMoves(die)
	if len(moves) == 0 {
		return game.Move{}, game.ErrNoLegalMoves
	}
	mover := s.Turn()
	type ranked struct {
		win     bool
		capture bool
		dist    int
	}
	rank := func(m game.Move) ranked {
		next := s.Apply(m)
		winner, over := next.Winner()
		return ranked{
			win:     over && winner == mover,
			capture: s.IsCapture(m, mover),
			dist:    game.GoalDistance(mover, m.To),
		}
	}
	better := func(x, y ranked) bool {
		if x.win != y.win {
			return x.win
		}
		if x.capture != y.capture {
			return x.capture
		}
		return x.dist < y.dist
	}
	bestRank := rank(moves[0])
	best := []game.Move{moves[0]}
	for _, m := range moves[1:] {
		r := rank(m)
		if better(r, bestRank) {
			bestRank = r
			best = best[:0]
			best = append(best, m)
		} else if r == bestRank {
			best = append(best, m)
		}
	}
	return best[a.rng.Intn(len(best))], nil
}

func (a *Greedy) ChooseInitialLayout(p game.Player, _ int) []int {
	return opening.BestStaticOrder(p)
}

// Search wraps the expectiminimax solver.
type Search struct {
	solver          *search.Solver
	defaultBudgetMs int
}

func NewSearch(maxDepth, defaultBudgetMs int) *Search {
	s := search.NewSolver()
	if maxDepth > 0 {
		s.SetMaxDepth(maxDepth)
	}
	if defaultBudgetMs <= 0 {
		defaultBudgetMs = 1000
	}
	return &Search{solver: s, defaultBudgetMs: defaultBudgetMs}
}

func (a *Search) Name() string { return "expecti" }

func (a *Search) Solver() *search.Solver { return a.solver }

// Stats reports the solver diagnostics of the last move chosen.
func (a *Search) Stats() search.Stats { return a.solver.Stats() }

func (a *Search) ChooseMove(s *game.GameState, die int, budgetMs int) (game.Move, error) {
	if budgetMs <= 0 {
		budgetMs = a.defaultBudgetMs
	}
	return a.solver.ChooseMove(s, die, budgetMs)
}

func (a *Search) ChooseInitialLayout(p game.Player, _ int) []int {
	return opening.BestStaticOrder(p)
}

// LayoutSearch moves greedily but invests its opening budget in the
// mini-expecti layout search.
type LayoutSearch struct {
	Greedy
	seed int64
}

func NewLayoutSearch(seed int64) *LayoutSearch {
	return &LayoutSearch{Greedy: *NewGreedy(seed), seed: seed}
}

func (a *LayoutSearch) Name() string { return "layoutsearch" }

func (a *LayoutSearch) ChooseInitialLayout(p game.Player, budgetMs int) []int {
	return opening.BestOrder(p, budgetMs, a.seed)
}

// OpeningSearch combines the layout search opening with search-backed
// movement.
type OpeningSearch struct {
	Search
	seed int64
}

func NewOpeningSearch(maxDepth, defaultBudgetMs int, seed int64) *OpeningSearch {
	return &OpeningSearch{Search: *NewSearch(maxDepth, defaultBudgetMs), seed: seed}
}

func (a *OpeningSearch) Name() string { return "opening-expecti" }

func (a *OpeningSearch) ChooseInitialLayout(p game.Player, budgetMs int) []int {
	return opening.BestOrder(p, budgetMs, a.seed)
}

// New builds an agent by name: "random", "greedy", "expecti",
// "layoutsearch", or "opening-expecti".
func New(name string, seed int64) (Agent, bool) {
	switch name {
	case "random":
		return NewRandom(seed), true
	case "greedy", "heuristic":
		return NewGreedy(seed), true
	case "expecti":
		return NewSearch(0, 0), true
	case "layoutsearch":
		return NewLayoutSearch(seed), true
	case "opening-expecti", "opening_expecti":
		return NewOpeningSearch(0, 0, seed), true
	}
	return nil, false
}
