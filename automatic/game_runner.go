// Package automatic plays full games and tournaments between agents,
// keeping clocks, budgets, statistics, and WTN records.
package automatic

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huashuozhou20-cpu/wtn-einstein/agent"
	"github.com/huashuozhou20-cpu/wtn-einstein/game"
	"github.com/huashuozhou20-cpu/wtn-einstein/search"
	"github.com/huashuozhou20-cpu/wtn-einstein/timemgr"
	"github.com/huashuozhou20-cpu/wtn-einstein/wtn"
)

// watchdogGraceMs is slack granted beyond the per-move budget before the
// hard ceiling fires and the greedy fallback plays instead.
const watchdogGraceMs = 250

// maxPlies aborts pathological games; normal games end far earlier.
const maxPlies = 400

// GameRunner drives one agent-vs-agent game.
type GameRunner struct {
	red, blue  agent.Agent
	timeCfg    timemgr.Config
	limitMs    float64 // per side; +Inf when unclocked
	seed       int64
	first      game.Player
	redOrder   []int // optional fixed opening orders
	blueOrder  []int
	emitBoards bool
}

// GameSummary is the outcome of one game.
type GameSummary struct {
	Winner    game.Player
	Plies     int
	Elapsed   time.Duration
	Record    *wtn.Game
	RedClock  float64 // remaining ms
	BlueClock float64
}

// Option configures a GameRunner.
type Option func(*GameRunner)

func WithClock(limitSeconds float64) Option {
	return func(r *GameRunner) {
		if limitSeconds > 0 {
			r.limitMs = limitSeconds * 1000
		}
	}
}

func WithTimeConfig(cfg timemgr.Config) Option {
	return func(r *GameRunner) { r.timeCfg = cfg }
}

func WithFirst(p game.Player) Option {
	return func(r *GameRunner) { r.first = p }
}

func WithOrders(red, blue []int) Option {
	return func(r *GameRunner) { r.redOrder, r.blueOrder = red, blue }
}

func WithBoardOutput() Option {
	return func(r *GameRunner) { r.emitBoards = true }
}

// NewGameRunner instantiates a runner. The seed drives dice and any
// agent tie-breaking the caller wired into the agents themselves.
func NewGameRunner(red, blue agent.Agent, seed int64, opts ...Option) *GameRunner {
	r := &GameRunner{
		red:     red,
		blue:    blue,
		seed:    seed,
		timeCfg: timemgr.Preset(timemgr.PresetDefault),
		limitMs: math.Inf(1),
		first:   game.Red,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *GameRunner) agentFor(p game.Player) agent.Agent {
	if p == game.Red {
		return r.red
	}
	return r.blue
}

// layoutBudget caps opening-search spend to a slice of the clock.
func (r *GameRunner) layoutBudget(remainingMs float64) int {
	if math.IsInf(remainingMs, 1) {
		return 0 // agent's own default
	}
	return int(math.Max(0, math.Min(remainingMs, 600)))
}

// Play runs the game to completion and returns its summary.
func (r *GameRunner) Play() (*GameSummary, error) {
	start := time.Now()
	rng := rand.New(rand.NewSource(r.seed))
	clocks := map[game.Player]float64{game.Red: r.limitMs, game.Blue: r.limitMs}

	redOrder := r.redOrder
	if redOrder == nil {
		redOrder = r.red.ChooseInitialLayout(game.Red, r.layoutBudget(clocks[game.Red]))
	}
	blueOrder := r.blueOrder
	if blueOrder == nil {
		blueOrder = r.blue.ChooseInitialLayout(game.Blue, r.layoutBudget(clocks[game.Blue]))
	}
	redLayout, err := game.ArrangementToLayout(redOrder, game.StartRedCells)
	if err != nil {
		return nil, err
	}
	blueLayout, err := game.ArrangementToLayout(blueOrder, game.StartBlueCells)
	if err != nil {
		return nil, err
	}
	state, err := game.NewGame(redLayout, blueLayout, r.first)
	if err != nil {
		return nil, err
	}

	record := &wtn.Game{
		Comments:   []string{fmt.Sprintf("# %s vs %s seed=%d", r.red.Name(), r.blue.Name(), r.seed)},
		RedLayout:  layoutMap(redLayout),
		BlueLayout: layoutMap(blueLayout),
	}

	ply := 0
	for !state.IsTerminal() && ply < maxPlies {
		ply++
		mover := state.Turn()
		ag := r.agentFor(mover)
		die := rng.Intn(6) + 1

		if len(state.LegalMoves(die)) == 0 {
			// Cannot happen with any piece alive; defensive for replays.
			continue
		}

		budget, flags := timemgr.ComputeBudget(state, die, clocks[mover], r.timeCfg)
		moveStart := time.Now()
		mv, err := r.chooseWithWatchdog(ag, state, die, budget)
		if err != nil {
			return nil, fmt.Errorf("ply %d (%s): %w", ply, mover, err)
		}
		elapsed := time.Since(moveStart)
		if !math.IsInf(clocks[mover], 1) {
			clocks[mover] -= float64(elapsed.Milliseconds())
			if clocks[mover] < 0 {
				clocks[mover] = 0
			}
		}

		logEvent := log.Debug().
			Int("ply", ply).
			Stringer("mover", mover).
			Int("die", die).
			Int("budgetMs", budget).
			Dur("took", elapsed).
			Bool("endgame", flags.Endgame)
		if sa, ok := ag.(*agent.Search); ok {
			st := sa.Stats()
			logEvent = logEvent.
				Int("depth", st.DepthReached).
				Uint64("nodes", st.Nodes).
				Uint64("ttHits", st.TTHits).
				Uint64("killerHits", st.KillerHits).
				Uint64("historyHits", st.HistoryHits)
		}
		logEvent.Msg("move-played")

		state = state.Apply(mv)
		record.Moves = append(record.Moves, wtn.MoveRecord{
			Ply: ply, Die: die, Side: mover, PieceID: mv.PieceID, To: mv.To,
		})
		if r.emitBoards {
			fmt.Println(state)
		}
	}

	winner, over := state.Winner()
	if !over {
		// Ply cap reached; score the stalemate-ish position statically.
		winner = game.Red
		if clocks[game.Blue] > clocks[game.Red] {
			winner = game.Blue
		}
	}
	digest, _ := wtn.Digest(record)
	log.Info().
		Stringer("winner", winner).
		Int("plies", ply).
		Str("red", r.red.Name()).
		Str("blue", r.blue.Name()).
		Uint64("record", digest).
		Dur("elapsed", time.Since(start)).
		Msg("game-over")

	return &GameSummary{
		Winner:    winner,
		Plies:     ply,
		Elapsed:   time.Since(start),
		Record:    record,
		RedClock:  clocks[game.Red],
		BlueClock: clocks[game.Blue],
	}, nil
}

// chooseWithWatchdog runs the agent on a cloned state in a worker and
// imposes a hard wall-clock ceiling independent of the engine's own
// deadline polling. If the worker misses the ceiling, the greedy pick
// plays instead; the worker's eventual result is discarded.
func (r *GameRunner) chooseWithWatchdog(ag agent.Agent, state *game.GameState, die, budgetMs int) (game.Move, error) {
	moves := state.LegalMoves(die)
	if len(moves) == 0 {
		return game.Move{}, game.ErrNoLegalMoves
	}
	if budgetMs <= 0 {
		return ag.ChooseMove(state, die, budgetMs)
	}

	ceiling := time.Duration(budgetMs+watchdogGraceMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), ceiling)
	defer cancel()

	type result struct {
		mv  game.Move
		err error
	}
	ch := make(chan result, 1)
	workerState := state.Clone()
	go func() {
		mv, err := ag.ChooseMove(workerState, die, budgetMs)
		ch <- result{mv, err}
	}()

	select {
	case res := <-ch:
		return res.mv, res.err
	case <-ctx.Done():
		log.Warn().Int("die", die).Int("budgetMs", budgetMs).
			Str("agent", ag.Name()).Msg("watchdog ceiling hit; greedy fallback")
		return search.GreedyMove(state, moves), nil
	}
}

// SaveWTN writes the game record to a file.
func SaveWTN(record *wtn.Game, path string) error {
	text, err := wtn.Dump(record)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0644)
}

func layoutMap(layout []game.Coord) map[int8]game.Coord {
	m := make(map[int8]game.Coord, len(layout))
	for i, c := range layout {
		m[int8(i+1)] = c
	}
	return m
}
