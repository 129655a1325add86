// Package timemgr converts a coarse remaining-clock budget into a
// per-move search allocation, using cheap positional urgency signals.
package timemgr

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/huashuozhou20-cpu/wtn-einstein/game"
)

// Config tunes the budget computation. The zero value is not useful;
// start from a Preset and override fields as needed.
type Config struct {
	BaseFrac     float64
	MinMs        int
	MaxMs        int
	CriticalMult float64
	CaptureMult  float64
	DangerMult   float64
	EndgameMult  float64
	HurryMult    float64
	SafeCapFrac  float64
	PliesBuffer  float64
}

// Preset names.
const (
	PresetFast    = "fast"
	PresetDefault = "default"
	PresetSlow    = "slow"
)

// Preset returns a pre-tuned configuration. Unknown names fall back to
// the default preset.
func Preset(name string) Config {
	switch name {
	case PresetFast:
		return Config{
			BaseFrac:     0.8,
			MinMs:        5,
			MaxMs:        400,
			CriticalMult: 2.0,
			CaptureMult:  1.1,
			DangerMult:   1.1,
			EndgameMult:  1.5,
			HurryMult:    0.7,
			SafeCapFrac:  0.10,
			PliesBuffer:  6,
		}
	case PresetSlow:
		return Config{
			BaseFrac:     1.4,
			MinMs:        10,
			MaxMs:        3000,
			CriticalMult: 3.0,
			CaptureMult:  1.3,
			DangerMult:   1.25,
			EndgameMult:  2.0,
			HurryMult:    0.75,
			SafeCapFrac:  0.25,
			PliesBuffer:  3,
		}
	default:
		return Config{
			BaseFrac:     1.0,
			MinMs:        8,
			MaxMs:        1200,
			CriticalMult: 2.5,
			CaptureMult:  1.2,
			DangerMult:   1.2,
			EndgameMult:  1.8,
			HurryMult:    0.7,
			SafeCapFrac:  0.20,
			PliesBuffer:  4,
		}
	}
}

// Flags records which urgency signals fired for a budget computation.
// Diagnostics only; the runner logs them next to the allocation.
type Flags struct {
	ImmediateWin  bool
	OpponentWin   bool
	Capture       bool
	Danger        bool
	Endgame       bool
	Hurry         bool
	PliesLeft     int
	BaselineMs    float64
	MultiplierOut float64
}

// ComputeBudget returns the per-move allocation in milliseconds for the
// side to move, given a die and the side's remaining clock. A negative
// or infinite remainingMs means no clock: the configured maximum is
// returned. The result is always within [0, remainingMs] on a bounded
// clock.
func ComputeBudget(s *game.GameState, die int, remainingMs float64, cfg Config) (int, Flags) {
	var f Flags
	if remainingMs < 0 || math.IsInf(remainingMs, 1) {
		return cfg.MaxMs, f
	}

	f.PliesLeft = estimatePliesLeft(s)
	baseline := remainingMs / (float64(f.PliesLeft) + cfg.PliesBuffer) * cfg.BaseFrac
	f.BaselineMs = baseline

	mover := s.Turn()
	f.ImmediateWin = hasImmediateWin(s, die, mover)
	f.OpponentWin = opponentWinThreat(s, mover)
	f.Capture = captureAvailable(s, die, mover)
	f.Danger = dangerIncoming(s, mover)
	f.Endgame = s.AliveCount(game.Red)+s.AliveCount(game.Blue) <= 4

	mult := 1.0
	if f.ImmediateWin || f.OpponentWin {
		mult *= cfg.CriticalMult
	}
	if f.Capture {
		mult *= cfg.CaptureMult
	}
	if f.Danger {
		mult *= cfg.DangerMult
	}
	if f.Endgame {
		mult *= cfg.EndgameMult
	}
	if !f.ImmediateWin && !f.OpponentWin && !f.Capture && !f.Danger && !f.Endgame {
		lead := s.AliveCount(mover) - s.AliveCount(mover.Opponent())
		if lead >= 2 {
			f.Hurry = true
			mult *= cfg.HurryMult
		}
	}
	f.MultiplierOut = mult

	budget := baseline * mult
	hardCap := math.Min(float64(cfg.MaxMs), remainingMs*cfg.SafeCapFrac)
	if budget > hardCap {
		budget = hardCap
	}

	if remainingMs < float64(cfg.MinMs) {
		// Clock nearly gone: spend what is left rather than stall.
		budget = remainingMs
	} else {
		if budget < float64(cfg.MinMs) {
			budget = float64(cfg.MinMs)
		}
		if budget > remainingMs {
			budget = remainingMs
		}
	}
	if budget < 0 {
		budget = 0
	}

	log.Debug().
		Int("pliesLeft", f.PliesLeft).
		Float64("baselineMs", baseline).
		Float64("mult", mult).
		Float64("budgetMs", budget).
		Bool("win", f.ImmediateWin).Bool("threat", f.OpponentWin).
		Bool("cap", f.Capture).Bool("danger", f.Danger).
		Bool("endgame", f.Endgame).Bool("hurry", f.Hurry).
		Msg("move-budget")

	return int(budget), f
}

// estimatePliesLeft guesses the remaining game length from how far each
// side's closest runner is from its goal plus total surviving material,
// clamped to [8, 60].
func estimatePliesLeft(s *game.GameState) int {
	closest := func(p game.Player) int {
		best := 2 * game.BoardSize
		for pid := int8(1); pid <= game.NumPieces; pid++ {
			if c, ok := s.Position(p, pid); ok {
				// A diagonal step closes both row and column distance,
				// so steps-to-goal is the Chebyshev distance.
				if d := chebyshev(p, c); d < best {
					best = d
				}
			}
		}
		return best
	}
	plies := closest(game.Red) + closest(game.Blue) +
		s.AliveCount(game.Red) + s.AliveCount(game.Blue)
	if plies < 8 {
		plies = 8
	}
	if plies > 60 {
		plies = 60
	}
	return plies
}

func chebyshev(p game.Player, c game.Coord) int {
	t := game.Target(p)
	dr := int(t.Row - c.Row)
	if dr < 0 {
		dr = -dr
	}
	dc := int(t.Col - c.Col)
	if dc < 0 {
		dc = -dc
	}
	if dr > dc {
		return dr
	}
	return dc
}

func hasImmediateWin(s *game.GameState, die int, mover game.Player) bool {
	for _, m := range s.LegalMoves(die) {
		if m.To == game.Target(mover) {
			return true
		}
	}
	// Wiping out the opponent's last piece also ends the game.
	if s.AliveCount(mover.Opponent()) == 1 {
		for _, m := range s.LegalMoves(die) {
			if s.IsCapture(m, mover) {
				return true
			}
		}
	}
	return false
}

// opponentWinThreat reports whether any opposing piece stands one step
// from its goal corner and could be selected by some die next ply.
func opponentWinThreat(s *game.GameState, mover game.Player) bool {
	opp := mover.Opponent()
	target := game.Target(opp)
	dirs := game.Directions(opp)
	for pid := int8(1); pid <= game.NumPieces; pid++ {
		c, ok := s.Position(opp, pid)
		if !ok {
			continue
		}
		for _, d := range dirs {
			if (game.Coord{Row: c.Row + d.Row, Col: c.Col + d.Col}) != target {
				continue
			}
			for die := 1; die <= 6; die++ {
				for _, cand := range s.MovableIDs(opp, die) {
					if cand == pid {
						return true
					}
				}
			}
		}
	}
	return false
}

func captureAvailable(s *game.GameState, die int, mover game.Player) bool {
	for _, m := range s.LegalMoves(die) {
		if s.IsCapture(m, mover) {
			return true
		}
	}
	return false
}

// dangerIncoming reports whether an opposing piece can reach one of the
// mover's occupied squares next ply, ignoring dice constraints.
func dangerIncoming(s *game.GameState, mover game.Player) bool {
	reach := s.ReachableSquares(mover.Opponent())
	for pid := int8(1); pid <= game.NumPieces; pid++ {
		if c, ok := s.Position(mover, pid); ok && reach[c] {
			return true
		}
	}
	return false
}
