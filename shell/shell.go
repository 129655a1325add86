// Package shell implements the interactive console. It drives live
// games against the engine, self-play runs, tournaments, and the
// stdio protocol adapter.
package shell

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"

	"github.com/huashuozhou20-cpu/wtn-einstein/agent"
	"github.com/huashuozhou20-cpu/wtn-einstein/automatic"
	"github.com/huashuozhou20-cpu/wtn-einstein/config"
	"github.com/huashuozhou20-cpu/wtn-einstein/game"
	"github.com/huashuozhou20-cpu/wtn-einstein/protocol"
	"github.com/huashuozhou20-cpu/wtn-einstein/timemgr"
)

type Shell struct {
	cfg    *config.Config
	reader *readline.Instance
	rng    *rand.Rand

	state  *game.GameState
	die    int
	engine *agent.Search
}

func NewShell(cfg *config.Config) (*Shell, error) {
	r, err := readline.NewEx(&readline.Config{
		Prompt:          "einstein> ",
		HistoryFile:     "/tmp/wtn-einstein-history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	eng := agent.NewSearch(cfg.MaxDepth, cfg.DefaultBudgetMs)
	eng.Solver().SetTTFraction(cfg.TTFraction)
	return &Shell{
		cfg:    cfg,
		reader: r,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		engine: eng,
	}, nil
}

func (s *Shell) Loop() {
	defer s.reader.Close()
	fmt.Println("EinStein würfelt nicht! engine shell. Type `help` for commands.")
	for {
		line, err := s.reader.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]
		if cmd == "exit" || cmd == "quit" {
			break
		}
		if err := s.dispatch(cmd, args); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func (s *Shell) dispatch(cmd string, args []string) error {
	switch cmd {
	case "help":
		s.printHelp()
		return nil
	case "new":
		return s.handleNew(args)
	case "show":
		return s.handleShow()
	case "roll":
		return s.handleRoll()
	case "move":
		return s.handleMove(args)
	case "play":
		return s.handlePlay(args)
	case "auto":
		return s.handleAuto(args)
	case "tournament":
		return s.handleTournament(args)
	case "protocol":
		return s.handleProtocol()
	default:
		return fmt.Errorf("unknown command %q, try `help`", cmd)
	}
}

func (s *Shell) printHelp() {
	fmt.Print(`Commands:
  new [redorder] [blueorder]   start a game; orders are permutations like 312546
  show                         print the current board
  roll                         roll the die for the side to move
  move <piece> <row> <col>     apply a move by hand (after roll)
  play [budget_ms]             let the engine move for the side to move
  auto <red> <blue> [file.wtn] self-play one game, optionally save the record
  tournament <spec.yaml>       run a tournament from a yaml spec
  protocol                     enter stdio adapter mode (INIT/STATE/GO)
  exit                         leave the shell
Agents: random, greedy, expecti, layoutsearch, opening-expecti
`)
}

func parseOrder(arg string) ([]int, error) {
	if len(arg) != game.NumPieces {
		return nil, fmt.Errorf("order must be %d digits, got %q", game.NumPieces, arg)
	}
	order := make([]int, game.NumPieces)
	for i, ch := range arg {
		d := int(ch - '0')
		if d < 1 || d > game.NumPieces {
			return nil, fmt.Errorf("bad digit %q in order", string(ch))
		}
		order[i] = d
	}
	return order, nil
}

func defaultOrder() []int {
	order := make([]int, game.NumPieces)
	for i := range order {
		order[i] = i + 1
	}
	return order
}

func (s *Shell) handleNew(args []string) error {
	redOrder, blueOrder := defaultOrder(), defaultOrder()
	var err error
	if len(args) > 0 {
		if redOrder, err = parseOrder(args[0]); err != nil {
			return err
		}
	}
	if len(args) > 1 {
		if blueOrder, err = parseOrder(args[1]); err != nil {
			return err
		}
	}
	red, err := game.ArrangementToLayout(redOrder, game.StartCells(game.Red))
	if err != nil {
		return err
	}
	blue, err := game.ArrangementToLayout(blueOrder, game.StartCells(game.Blue))
	if err != nil {
		return err
	}
	st, err := game.NewGame(red, blue, game.Red)
	if err != nil {
		return err
	}
	s.state = st
	s.die = 0
	return s.handleShow()
}

func (s *Shell) handleShow() error {
	if s.state == nil {
		return fmt.Errorf("no game in progress, use `new`")
	}
	fmt.Print(s.state.String())
	if winner, over := s.state.Winner(); over {
		fmt.Printf("game over, %v wins\n", winner)
		return nil
	}
	fmt.Printf("%v to move", s.state.Turn())
	if s.die != 0 {
		fmt.Printf(", die %d", s.die)
	}
	fmt.Println()
	return nil
}

func (s *Shell) handleRoll() error {
	if s.state == nil {
		return fmt.Errorf("no game in progress, use `new`")
	}
	if s.state.IsTerminal() {
		return fmt.Errorf("game is over")
	}
	s.die = s.rng.Intn(6) + 1
	fmt.Printf("die: %d (movable pieces %v)\n", s.die, s.state.MovableIDs(s.state.Turn(), s.die))
	return nil
}

func (s *Shell) handleMove(args []string) error {
	if s.state == nil {
		return fmt.Errorf("no game in progress, use `new`")
	}
	if s.die == 0 {
		return fmt.Errorf("roll the die first")
	}
	if len(args) != 3 {
		return fmt.Errorf("usage: move <piece> <row> <col>")
	}
	pid, err1 := strconv.Atoi(args[0])
	row, err2 := strconv.Atoi(args[1])
	col, err3 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return fmt.Errorf("move arguments must be integers")
	}
	want := game.Move{
		PieceID: int8(pid),
		To:      game.Coord{Row: int8(row), Col: int8(col)},
	}
	for _, m := range s.state.LegalMoves(s.die) {
		if m.PieceID == want.PieceID && m.To == want.To {
			s.state = s.state.Apply(m)
			s.die = 0
			return s.handleShow()
		}
	}
	return fmt.Errorf("piece %d to (%d,%d) is not legal for die %d", pid, row, col, s.die)
}

func (s *Shell) handlePlay(args []string) error {
	if s.state == nil {
		return fmt.Errorf("no game in progress, use `new`")
	}
	if s.die == 0 {
		return fmt.Errorf("roll the die first")
	}
	budget := s.cfg.DefaultBudgetMs
	if len(args) > 0 {
		b, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("budget must be an integer: %w", err)
		}
		budget = b
	}
	mv, err := s.engine.ChooseMove(s.state, s.die, budget)
	if err != nil {
		return err
	}
	stats := s.engine.Stats()
	fmt.Printf("engine plays piece %d to (%d,%d) [depth %d, %d nodes, %v]\n",
		mv.PieceID, mv.To.Row, mv.To.Col, stats.DepthReached, stats.Nodes, stats.Elapsed)
	s.state = s.state.Apply(mv)
	s.die = 0
	return s.handleShow()
}

func (s *Shell) handleAuto(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: auto <red-agent> <blue-agent> [file.wtn]")
	}
	red, ok := agent.New(args[0], s.cfg.Seed)
	if !ok {
		return fmt.Errorf("unknown agent %q", args[0])
	}
	blue, ok := agent.New(args[1], s.cfg.Seed+1)
	if !ok {
		return fmt.Errorf("unknown agent %q", args[1])
	}
	runner := automatic.NewGameRunner(red, blue, s.cfg.Seed,
		automatic.WithTimeConfig(timemgr.Preset(s.cfg.TimePreset)),
		automatic.WithBoardOutput(),
	)
	result, err := runner.Play()
	if err != nil {
		return err
	}
	fmt.Printf("winner: %v in %d plies\n", result.Winner, result.Plies)
	if len(args) > 2 {
		if err := automatic.SaveWTN(result.Record, args[2]); err != nil {
			return err
		}
		fmt.Println("saved", args[2])
	}
	return nil
}

func (s *Shell) handleTournament(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tournament <spec.yaml>")
	}
	spec, err := automatic.LoadTournamentSpec(args[0])
	if err != nil {
		return err
	}
	res, err := automatic.RunTournament(*spec)
	if err != nil {
		return err
	}
	fmt.Printf("%s vs %s over %d games: red %d, blue %d\n",
		spec.Red, spec.Blue, spec.Games, res.RedWins, res.BlueWins)
	return nil
}

func (s *Shell) handleProtocol() error {
	fmt.Println("entering protocol mode; QUIT to return")
	eng, ok := agent.New(s.cfg.DefaultAgent, s.cfg.Seed)
	if !ok {
		return fmt.Errorf("unknown agent %q", s.cfg.DefaultAgent)
	}
	adapter := protocol.NewAdapter(eng, s.cfg.DefaultBudgetMs, os.Stdin, os.Stdout)
	if err := adapter.Run(); err != nil {
		log.Warn().Err(err).Msg("protocol session ended with error")
	}
	return nil
}
