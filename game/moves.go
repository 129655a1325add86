package game

// MovableIDs returns the piece ids that may move for a die roll. If the
// rolled piece is alive it is the only candidate. Otherwise the nearest
// surviving lower id and nearest surviving higher id are candidates, in
// that order. The order is part of the contract: move generation order
// feeds ordering heuristics downstream.
func (s *GameState) MovableIDs(p Player, die int) []int8 {
	alive := s.AliveMask(p)
	d := int8(die)
	if alive&bitFor(d) != 0 {
		return []int8{d}
	}
	var candidates []int8
	for pid := d - 1; pid >= 1; pid-- {
		if alive&bitFor(pid) != 0 {
			candidates = append(candidates, pid)
			break
		}
	}
	for pid := d + 1; pid <= NumPieces; pid++ {
		if alive&bitFor(pid) != 0 {
			candidates = append(candidates, pid)
			break
		}
	}
	return candidates
}

// LegalMoves generates all legal one-step moves for the side to move
// given a die roll. Every in-bounds destination is legal; landing on an
// occupied square captures the occupant regardless of color.
func (s *GameState) LegalMoves(die int) []Move {
	mover := s.turn
	candidates := s.MovableIDs(mover, die)
	dirs := Directions(mover)
	moves := make([]Move, 0, len(candidates)*3)
	for _, pid := range candidates {
		from, ok := s.Position(mover, pid)
		if !ok {
			continue
		}
		for _, d := range dirs {
			to := Coord{from.Row + d.Row, from.Col + d.Col}
			if to.InBounds() {
				moves = append(moves, Move{PieceID: pid, From: from, To: to})
			}
		}
	}
	return moves
}

// IsCapture reports whether the move lands on an enemy piece of the
// given mover.
func (s *GameState) IsCapture(m Move, mover Player) bool {
	occ := s.board[m.To.Row][m.To.Col]
	return (occ > 0 && mover == Blue) || (occ < 0 && mover == Red)
}

// IsSelfCapture reports whether the move lands on the mover's own piece.
func (s *GameState) IsSelfCapture(m Move, mover Player) bool {
	occ := s.board[m.To.Row][m.To.Col]
	return (occ > 0 && mover == Red) || (occ < 0 && mover == Blue)
}

// GoalDistance is the Manhattan distance from a coordinate to a side's
// target corner.
func GoalDistance(p Player, c Coord) int {
	t := Target(p)
	dr := int(t.Row - c.Row)
	if dr < 0 {
		dr = -dr
	}
	dc := int(t.Col - c.Col)
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// ReachableSquares collects every square a side could step onto next ply,
// ignoring dice constraints.
func (s *GameState) ReachableSquares(p Player) map[Coord]bool {
	dirs := Directions(p)
	squares := make(map[Coord]bool)
	for pid := int8(1); pid <= NumPieces; pid++ {
		from, ok := s.Position(p, pid)
		if !ok {
			continue
		}
		for _, d := range dirs {
			to := Coord{from.Row + d.Row, from.Col + d.Col}
			if to.InBounds() {
				squares[to] = true
			}
		}
	}
	return squares
}
