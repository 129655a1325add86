// Package search implements the expectiminimax move chooser: iterative
// deepening over alternating decision nodes (piece choice for a known
// die) and chance nodes (the unknown next die, uniform over six faces),
// with alpha-beta pruning inside decision nodes, a per-search
// transposition table, killer-move and history-heuristic ordering, and
// cooperative deadline cancellation.
package search

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huashuozhou20-cpu/wtn-einstein/eval"
	"github.com/huashuozhou20-cpu/wtn-einstein/game"
	"github.com/huashuozhou20-cpu/wtn-einstein/zobrist"
)

const (
	// DefaultMaxDepth bounds iterative deepening. One depth unit is a
	// decision node plus the chance node under it.
	DefaultMaxDepth = 12

	// minSearchBudgetMs is the threshold under which the tree search is
	// skipped entirely in favor of the greedy evaluator pick, to avoid
	// spending the whole allocation on setup overhead.
	minSearchBudgetMs = 10

	maxPly     = 64
	maxKillers = 2

	// killerKeepPlies is the window of plies whose killers survive
	// between top-level calls.
	killerKeepPlies = 4

	historyDecay = 0.8
	historyFloor = 0.5

	defaultTTFraction = 0.02
)

// Move-ordering offsets. Immediate wins first, then the hash move,
// killers, history, captures, goal progress; self-captures sink to the
// bottom and generation order breaks remaining ties (stable sort).
const (
	winOffset         = 1 << 20
	hashMoveOffset    = 1 << 18
	killer0Offset     = 1 << 17
	killer1Offset     = 1 << 16
	historyBase       = 1 << 11
	historyCeiling    = 1 << 14
	captureOffset     = 1 << 10
	progressOffset    = 1 << 4
	selfCaptureOffset = -(1 << 19)
)

// errTimedOut unwinds the current deepening iteration when the deadline
// fires. It never escapes ChooseMove.
var errTimedOut = errors.New("search deadline exceeded")

// Stats describes one top-level ChooseMove call. Diagnostics only.
type Stats struct {
	Nodes        uint64
	DepthReached int
	TTLookups    uint64
	TTHits       uint64
	TTStores     uint64
	TTExact      uint64
	TTLower      uint64
	TTUpper      uint64
	TTCutoffs    uint64
	KillerHits   uint64
	HistoryHits  uint64
	Elapsed      time.Duration
}

type historyKey struct {
	side game.Player
	sig  game.MoveSig
}

// Solver owns the search caches. A Solver is not reentrant: only one
// ChooseMove call may be in flight at a time, and the caches are never
// shared between instances. The transposition table is rebuilt per call;
// killers and history decay between calls.
type Solver struct {
	zobrist    *zobrist.Zobrist
	ttable     *transpositionTable
	killers    [maxPly][maxKillers]game.MoveSig
	history    map[historyKey]float64
	maxDepth   int
	ttFraction float64
	stats      Stats
}

// NewSolver returns a solver with default limits.
func NewSolver() *Solver {
	s := &Solver{
		zobrist:    zobrist.Shared(game.BoardSize * game.BoardSize),
		ttable:     &transpositionTable{},
		history:    make(map[historyKey]float64),
		maxDepth:   DefaultMaxDepth,
		ttFraction: defaultTTFraction,
	}
	s.clearKillers()
	return s
}

// SetMaxDepth bounds iterative deepening; depths above the zobrist tag
// range are rejected silently by clamping.
func (s *Solver) SetMaxDepth(d int) {
	if d < 1 {
		d = 1
	}
	if d > zobrist.MaxSearchDepth {
		d = zobrist.MaxSearchDepth
	}
	s.maxDepth = d
}

func (s *Solver) SetTTFraction(f float64) {
	s.ttFraction = f
}

// Stats returns the diagnostics of the last ChooseMove call.
func (s *Solver) Stats() Stats {
	return s.stats
}

func (s *Solver) clearKillers() {
	for ply := 0; ply < maxPly; ply++ {
		for k := 0; k < maxKillers; k++ {
			s.killers[ply][k] = game.NoMoveSig
		}
	}
}

// decayKillers prunes killers recorded at plies beyond the keep window.
func (s *Solver) decayKillers() {
	for ply := killerKeepPlies; ply < maxPly; ply++ {
		for k := 0; k < maxKillers; k++ {
			s.killers[ply][k] = game.NoMoveSig
		}
	}
}

// decayHistory fades accumulated cutoff credit so stale signal loses
// influence without vanishing instantly.
func (s *Solver) decayHistory() {
	for k, v := range s.history {
		v *= historyDecay
		if v < historyFloor {
			delete(s.history, k)
		} else {
			s.history[k] = v
		}
	}
}

func (s *Solver) storeKiller(ply int, sig game.MoveSig) {
	if ply >= maxPly {
		return
	}
	if s.killers[ply][0] != sig {
		s.killers[ply][1] = s.killers[ply][0]
		s.killers[ply][0] = sig
	}
}

func (s *Solver) recordHistory(side game.Player, sig game.MoveSig, depth int) {
	s.history[historyKey{side, sig}] += float64(depth * depth)
}

// ChooseMove runs an iteratively deepened expectiminimax search within
// the given millisecond budget and returns the best move found at the
// deepest completed depth. It returns game.ErrNoLegalMoves if the die
// admits no move; otherwise it always returns a legal move, falling back
// to the greedy evaluator pick when not even depth 1 completes.
func (s *Solver) ChooseMove(state *game.GameState, die int, budgetMs int) (game.Move, error) {
	moves := state.LegalMoves(die)
	if len(moves) == 0 {
		return game.Move{}, game.ErrNoLegalMoves
	}

	start := time.Now()
	s.stats = Stats{}
	s.decayKillers()
	s.decayHistory()

	if budgetMs < minSearchBudgetMs {
		mv := GreedyMove(state, moves)
		s.stats.Elapsed = time.Since(start)
		return mv, nil
	}

	s.ttable.reset(s.ttFraction)
	deadline := start.Add(time.Duration(budgetMs) * time.Millisecond)
	maximizing := state.Turn()

	best := game.Move{}
	bestVal := math.Inf(-1)
	haveResult := false

	for depth := 1; depth <= s.maxDepth; depth++ {
		val, mv, err := s.searchDecision(state, die, depth, maximizing, deadline, 0, math.Inf(-1), math.Inf(1))
		if err != nil {
			// Deadline fired mid-depth; keep the previous depth's result.
			break
		}
		best = mv
		bestVal = val
		haveResult = true
		s.stats.DepthReached = depth
		if math.IsInf(val, 1) {
			// Proven win; no point searching deeper.
			break
		}
	}

	s.stats.Elapsed = time.Since(start)
	s.ttable.copyCounters(&s.stats)

	if !haveResult {
		mv := GreedyMove(state, moves)
		log.Debug().Int("die", die).Int("budgetMs", budgetMs).
			Msg("no depth completed; greedy fallback")
		return mv, nil
	}
	log.Debug().
		Int("die", die).
		Int("depth", s.stats.DepthReached).
		Uint64("nodes", s.stats.Nodes).
		Float64("value", bestVal).
		Dur("elapsed", s.stats.Elapsed).
		Msg("choose-move")
	return best, nil
}

// GreedyMove ranks candidate moves by the evaluator's score of the
// resulting position and picks the best, with generation order as the
// tiebreak. It is the sub-budget and timeout fallback policy.
func GreedyMove(state *game.GameState, moves []game.Move) game.Move {
	mover := state.Turn()
	best := moves[0]
	bestScore := math.Inf(-1)
	for _, m := range moves {
		next := state.Apply(m)
		sc := eval.Score(next, mover)
		if sc > bestScore {
			bestScore = sc
			best = m
		}
	}
	return best
}

// searchDecision evaluates a decision node: the side to move picks among
// the legal moves for a known die, maximizing if it is the maximizing
// side and minimizing otherwise. Recurses into a chance node at depth-1.
func (s *Solver) searchDecision(state *game.GameState, die, depth int, maximizing game.Player,
	deadline time.Time, ply int, alpha, beta float64) (float64, game.Move, error) {

	if time.Now().After(deadline) {
		return 0, game.Move{}, errTimedOut
	}
	s.stats.Nodes++

	if depth == 0 || state.IsTerminal() {
		return eval.Score(state, maximizing), game.Move{}, nil
	}
	moves := state.LegalMoves(die)
	if len(moves) == 0 {
		return eval.Score(state, maximizing), game.Move{}, nil
	}

	alphaOrig, betaOrig := alpha, beta
	mover := state.Turn()
	isMax := mover == maximizing
	nodeKey := s.zobrist.DecisionKey(state.Key(), die, depth, isMax)

	ttMove := game.NoMoveSig
	if entry := s.ttable.lookup(nodeKey); entry.valid() && int(entry.depth()) >= depth {
		s.stats.TTHits++
		score := float64(entry.score)
		switch entry.flag() {
		case ttExact:
			s.stats.TTExact++
			return score, entry.move.Decode(), nil
		case ttLower:
			s.stats.TTLower++
			if score > alpha {
				alpha = score
			}
		case ttUpper:
			s.stats.TTUpper++
			if score < beta {
				beta = score
			}
		}
		if alpha >= beta {
			s.stats.TTCutoffs++
			return score, entry.move.Decode(), nil
		}
		ttMove = entry.move
	}

	s.orderMoves(state, moves, mover, ply, ttMove)

	// Seed with the first candidate so a position where every reply is a
	// proven loss still yields a legal move.
	best := moves[0]
	bestVal := math.Inf(-1)
	if !isMax {
		bestVal = math.Inf(1)
	}

	for _, m := range moves {
		undo := state.ApplyInPlace(m)
		val, err := s.searchChance(state, depth-1, maximizing, deadline, ply+1, alpha, beta)
		state.UndoInPlace(undo)
		if err != nil {
			return 0, game.Move{}, err
		}
		if isMax {
			if val > bestVal {
				bestVal = val
				best = m
			}
			if bestVal > alpha {
				alpha = bestVal
			}
		} else {
			if val < bestVal {
				bestVal = val
				best = m
			}
			if bestVal < beta {
				beta = bestVal
			}
		}
		if alpha >= beta {
			s.storeKiller(ply, m.Sig())
			s.recordHistory(mover, m.Sig(), depth)
			break
		}
	}

	s.storeEntry(nodeKey, bestVal, depth, alphaOrig, betaOrig, best.Sig())
	return bestVal, best, nil
}

// searchChance averages the decision-node value over the six possible
// next dice. Every branch is always evaluated: skipping one would bias
// the expectation, so no pruning happens across dice outcomes.
func (s *Solver) searchChance(state *game.GameState, depth int, maximizing game.Player,
	deadline time.Time, ply int, alpha, beta float64) (float64, error) {

	if time.Now().After(deadline) {
		return 0, errTimedOut
	}
	s.stats.Nodes++

	if depth == 0 || state.IsTerminal() {
		// The evaluator does not depend on the die, so the average over
		// dice collapses to a single static score.
		return eval.Score(state, maximizing), nil
	}

	isMax := state.Turn() == maximizing
	nodeKey := s.zobrist.ChanceKey(state.Key(), depth, isMax)
	if entry := s.ttable.lookup(nodeKey); entry.valid() && int(entry.depth()) >= depth {
		s.stats.TTHits++
		score := float64(entry.score)
		switch entry.flag() {
		case ttExact:
			s.stats.TTExact++
			return score, nil
		case ttLower:
			s.stats.TTLower++
			if score >= beta {
				s.stats.TTCutoffs++
				return score, nil
			}
		case ttUpper:
			s.stats.TTUpper++
			if score <= alpha {
				s.stats.TTCutoffs++
				return score, nil
			}
		}
	}

	sum := 0.0
	for die := 1; die <= 6; die++ {
		val, _, err := s.searchDecision(state, die, depth, maximizing, deadline, ply, alpha, beta)
		if err != nil {
			return 0, err
		}
		sum += val
	}
	avg := sum / 6

	s.storeEntry(nodeKey, avg, depth, alpha, beta, game.NoMoveSig)
	return avg, nil
}

func (s *Solver) storeEntry(key uint64, value float64, depth int, alphaOrig, betaOrig float64, bestSig game.MoveSig) {
	var flag uint8
	switch {
	case value <= alphaOrig:
		flag = ttUpper
	case value >= betaOrig:
		flag = ttLower
	default:
		flag = ttExact
	}
	s.ttable.store(key, tableEntry{
		score:        float32(value),
		move:         bestSig,
		flagAndDepth: flag<<6 | uint8(depth)&depthMask,
	})
}

// orderMoves sorts candidates best-first using estimated-value offsets;
// the sort is stable so generation order remains the final tiebreak.
func (s *Solver) orderMoves(state *game.GameState, moves []game.Move, mover game.Player, ply int, ttMove game.MoveSig) {
	estimates := make([]int, len(moves))
	oppAlive := state.AliveCount(mover.Opponent())
	for i, m := range moves {
		est := 0
		sig := m.Sig()
		isCapture := state.IsCapture(m, mover)
		if m.To == game.Target(mover) || (isCapture && oppAlive == 1) {
			est += winOffset
		}
		if ttMove != game.NoMoveSig && sig == ttMove {
			est += hashMoveOffset
		}
		if ply < maxPly {
			if s.killers[ply][0] == sig {
				est += killer0Offset
				s.stats.KillerHits++
			} else if s.killers[ply][1] == sig {
				est += killer1Offset
				s.stats.KillerHits++
			}
		}
		if h := s.history[historyKey{mover, sig}]; h > 0 {
			s.stats.HistoryHits++
			hi := int(h)
			if hi > historyCeiling-historyBase {
				hi = historyCeiling - historyBase
			}
			// Any history credit lifts a move above the capture band
			// while the ceiling keeps it below the killer slots.
			est += historyBase + hi
		}
		if isCapture {
			est += captureOffset
		}
		progress := game.GoalDistance(mover, m.From) - game.GoalDistance(mover, m.To)
		est += progress * progressOffset
		if state.IsSelfCapture(m, mover) {
			est += selfCaptureOffset
		}
		estimates[i] = est
	}
	type scored struct {
		m   game.Move
		est int
	}
	pairs := make([]scored, len(moves))
	for i := range moves {
		pairs[i] = scored{moves[i], estimates[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].est > pairs[j].est
	})
	for i := range pairs {
		moves[i] = pairs[i].m
	}
}
