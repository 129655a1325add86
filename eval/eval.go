// Package eval provides the static positional evaluation used by the
// search at depth zero and at terminal nodes.
package eval

import (
	"math"

	"github.com/huashuozhou20-cpu/wtn-einstein/game"
)

const (
	// proximityThreshold clips the proximity reward: pieces farther than
	// this from their goal contribute nothing.
	proximityThreshold = 6
	threatWeight       = 1.5
)

// Score evaluates a position from the given perspective; positive favors
// that side. Terminal positions score ±Inf. The function is zero-sum
// symmetric: Score(s, Red) == -Score(s, Blue).
func Score(s *game.GameState, perspective game.Player) float64 {
	if winner, over := s.Winner(); over {
		if winner == perspective {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	red := redScore(s)
	if perspective == game.Blue {
		return -red
	}
	return red
}

// redScore computes the Red-centric sum of material, proximity, and
// threat terms. Blue's score is its negation.
func redScore(s *game.GameState) float64 {
	score := 0.0

	// Material: higher ids weigh more, since only the rolled id or its
	// nearest surviving neighbors are ever movable.
	for pid := int8(1); pid <= game.NumPieces; pid++ {
		if _, ok := s.Position(game.Red, pid); ok {
			score += 2 + float64(pid)*0.5
		}
		if _, ok := s.Position(game.Blue, pid); ok {
			score -= 2 + float64(pid)*0.5
		}
	}

	score += proximity(s, game.Red) - proximity(s, game.Blue)

	// Threat: a piece standing on a square the opponent could step onto
	// next ply. Dice constraints are deliberately ignored here; the
	// search is tuned against this simplification.
	redReach := s.ReachableSquares(game.Red)
	blueReach := s.ReachableSquares(game.Blue)
	for pid := int8(1); pid <= game.NumPieces; pid++ {
		if c, ok := s.Position(game.Red, pid); ok && blueReach[c] {
			score -= threatWeight
		}
		if c, ok := s.Position(game.Blue, pid); ok && redReach[c] {
			score += threatWeight
		}
	}
	return score
}

// proximity rewards the two pieces of a side closest to its goal corner.
func proximity(s *game.GameState, p game.Player) float64 {
	best, second := math.MaxInt32, math.MaxInt32
	for pid := int8(1); pid <= game.NumPieces; pid++ {
		c, ok := s.Position(p, pid)
		if !ok {
			continue
		}
		d := game.GoalDistance(p, c)
		if d < best {
			best, second = d, best
		} else if d < second {
			second = d
		}
	}
	reward := 0.0
	if best != math.MaxInt32 && best < proximityThreshold {
		reward += float64(proximityThreshold - best)
	}
	if second != math.MaxInt32 && second < proximityThreshold {
		reward += float64(proximityThreshold - second)
	}
	return reward
}
