// Package protocol implements the line-oriented stdio adapter used in
// competition environments. It consumes INIT/STATE/GO commands and
// emits one MOVE line per GO, guarding search stability with its own
// watchdog and a greedy fallback when the primary agent errors, times
// out, or produces an illegal move.
//
// Commands:
//
//	INIT <RED|BLUE> [layout-token]
//	STATE <RED|BLUE> <die> <25 comma-separated signed ints>
//	GO
//
// Replies: "MOVE <piece-id> <row> <col>" or "ERROR <message>".
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huashuozhou20-cpu/wtn-einstein/agent"
	"github.com/huashuozhou20-cpu/wtn-einstein/game"
	"github.com/huashuozhou20-cpu/wtn-einstein/search"
)

var ErrBadInput = errors.New("bad adapter input")

// Adapter runs the protocol loop over a reader/writer pair.
type Adapter struct {
	primary  agent.Agent
	budgetMs int
	in       *bufio.Scanner
	out      io.Writer

	player  game.Player
	hasInit bool
	pending *game.GameState
	die     int
}

func NewAdapter(primary agent.Agent, budgetMs int, in io.Reader, out io.Writer) *Adapter {
	if budgetMs <= 0 {
		budgetMs = 50
	}
	return &Adapter{
		primary:  primary,
		budgetMs: budgetMs,
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

func parsePlayer(token string) (game.Player, error) {
	switch strings.ToUpper(token) {
	case "RED":
		return game.Red, nil
	case "BLUE":
		return game.Blue, nil
	}
	return 0, fmt.Errorf("%w: unknown player %q", ErrBadInput, token)
}

func parseBoard(csv string) ([game.BoardSize][game.BoardSize]int8, error) {
	var board [game.BoardSize][game.BoardSize]int8
	parts := strings.Split(csv, ",")
	if len(parts) != game.BoardSize*game.BoardSize {
		return board, fmt.Errorf("%w: board must contain %d comma-separated integers",
			ErrBadInput, game.BoardSize*game.BoardSize)
	}
	for i, part := range parts {
		cell, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return board, fmt.Errorf("%w: board entries must be integers", ErrBadInput)
		}
		if cell < -game.NumPieces || cell > game.NumPieces {
			return board, fmt.Errorf("%w: piece ids must be within [-%d,%d]",
				ErrBadInput, game.NumPieces, game.NumPieces)
		}
		board[i/game.BoardSize][i%game.BoardSize] = int8(cell)
	}
	return board, nil
}

func (a *Adapter) handleInit(tokens []string) error {
	if len(tokens) < 2 {
		return fmt.Errorf("%w: INIT requires a player token", ErrBadInput)
	}
	p, err := parsePlayer(tokens[1])
	if err != nil {
		return err
	}
	a.player = p
	a.hasInit = true
	return nil
}

func (a *Adapter) handleState(tokens []string) error {
	if len(tokens) < 4 {
		return fmt.Errorf("%w: STATE requires turn, die, and board csv", ErrBadInput)
	}
	turn, err := parsePlayer(tokens[1])
	if err != nil {
		return err
	}
	die, err := strconv.Atoi(tokens[2])
	if err != nil || die < 1 || die > 6 {
		return fmt.Errorf("%w: die must be between 1 and 6", ErrBadInput)
	}
	board, err := parseBoard(tokens[3])
	if err != nil {
		return err
	}
	state, err := game.StateFromBoard(board, turn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	a.pending = state
	a.die = die
	return nil
}

func (a *Adapter) handleGo() error {
	if a.pending == nil {
		return fmt.Errorf("%w: GO received before STATE", ErrBadInput)
	}
	mv, err := a.selectMove(a.pending, a.die)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "MOVE %d %d %d\n", mv.PieceID, mv.To.Row, mv.To.Col)
	return err
}

// selectMove asks the primary agent under a hard deadline and verifies
// legality; anything short of a clean legal answer falls back to the
// greedy pick.
func (a *Adapter) selectMove(state *game.GameState, die int) (game.Move, error) {
	legal := state.LegalMoves(die)
	if len(legal) == 0 {
		return game.Move{}, fmt.Errorf("%w: no legal moves available", ErrBadInput)
	}

	type result struct {
		mv  game.Move
		err error
	}
	ch := make(chan result, 1)
	workerState := state.Clone()
	go func() {
		mv, err := a.primary.ChooseMove(workerState, die, a.budgetMs)
		ch <- result{mv, err}
	}()

	var mv game.Move
	var chooseErr error
	select {
	case res := <-ch:
		mv, chooseErr = res.mv, res.err
	case <-time.After(time.Duration(a.budgetMs+100) * time.Millisecond):
		chooseErr = errors.New("primary agent timed out")
	}

	if chooseErr != nil || !containsMove(legal, mv) {
		reason := "illegal move"
		if chooseErr != nil {
			reason = chooseErr.Error()
		}
		log.Warn().Str("reason", reason).Msg("falling back to greedy move")
		mv = search.GreedyMove(state, legal)
	}
	return mv, nil
}

func containsMove(moves []game.Move, m game.Move) bool {
	for _, cand := range moves {
		if cand == m {
			return true
		}
	}
	return false
}

// Run consumes commands until EOF. Protocol errors are reported on the
// output stream as an ERROR line and end the loop with a non-nil error.
func (a *Adapter) Run() error {
	for a.in.Scan() {
		line := strings.TrimSpace(a.in.Text())
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		var err error
		switch strings.ToUpper(tokens[0]) {
		case "INIT":
			err = a.handleInit(tokens)
		case "STATE":
			err = a.handleState(tokens)
		case "GO":
			err = a.handleGo()
		case "QUIT":
			return nil
		default:
			err = fmt.Errorf("%w: unknown command %q", ErrBadInput, tokens[0])
		}
		if err != nil {
			fmt.Fprintf(a.out, "ERROR %s\n", err)
			return err
		}
	}
	return a.in.Err()
}
