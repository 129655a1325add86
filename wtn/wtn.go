// Package wtn reads and writes the WTN text notation for game records:
// comment lines starting with '#', one layout line per side
// (R:A1-1;B1-2;...), and one move line per ply (ply:die;(R3,C3)).
// Squares name the column with a letter A..E and the row with a digit
// 1..5, so (0,0) is "A1".
package wtn

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash"

	"github.com/huashuozhou20-cpu/wtn-einstein/game"
)

var ErrBadNotation = errors.New("bad wtn notation")

const (
	columns = "ABCDE"
	rows    = "12345"
)

// SquareName converts a coordinate to its WTN square, e.g. (0,0) -> A1.
func SquareName(c game.Coord) (string, error) {
	if !c.InBounds() {
		return "", fmt.Errorf("%w: coordinate (%d,%d) out of bounds", ErrBadNotation, c.Row, c.Col)
	}
	return string(columns[c.Col]) + string(rows[c.Row]), nil
}

// ParseSquare converts a WTN square like "C3" to a coordinate.
func ParseSquare(sq string) (game.Coord, error) {
	if len(sq) != 2 {
		return game.Coord{}, fmt.Errorf("%w: invalid square %q", ErrBadNotation, sq)
	}
	col := strings.IndexByte(columns, sq[0]&^0x20) // uppercase the letter
	row := strings.IndexByte(rows, sq[1])
	if col < 0 || row < 0 {
		return game.Coord{}, fmt.Errorf("%w: invalid square %q", ErrBadNotation, sq)
	}
	return game.Coord{Row: int8(row), Col: int8(col)}, nil
}

// MoveRecord is one recorded ply.
type MoveRecord struct {
	Ply     int
	Die     int
	Side    game.Player
	PieceID int8
	To      game.Coord
}

// Game is a parsed WTN record.
type Game struct {
	Comments   []string
	RedLayout  map[int8]game.Coord
	BlueLayout map[int8]game.Coord
	Moves      []MoveRecord
}

func sideLetter(p game.Player) string {
	if p == game.Red {
		return "R"
	}
	return "B"
}

// ParseLayoutLine parses a layout line such as "R:A1-1;B1-2;C1-3;A2-4;B2-5;A3-6"
// and validates that each piece id appears exactly once on a distinct
// cell of that side's start zone.
func ParseLayoutLine(line string) (game.Player, map[int8]game.Coord, error) {
	stripped := strings.TrimSpace(line)
	prefix, body, found := strings.Cut(stripped, ":")
	if !found {
		return 0, nil, fmt.Errorf("%w: layout line must start with 'R:' or 'B:'", ErrBadNotation)
	}
	var side game.Player
	switch strings.ToUpper(strings.TrimSpace(prefix)) {
	case "R":
		side = game.Red
	case "B":
		side = game.Blue
	default:
		return 0, nil, fmt.Errorf("%w: layout line must start with 'R:' or 'B:'", ErrBadNotation)
	}

	zone := make(map[game.Coord]bool, game.NumPieces)
	for _, c := range game.StartCells(side) {
		zone[c] = true
	}

	entries := strings.Split(body, ";")
	layout := make(map[int8]game.Coord, game.NumPieces)
	usedCells := make(map[game.Coord]bool, game.NumPieces)
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		sqPart, pidPart, found := strings.Cut(entry, "-")
		if !found {
			return 0, nil, fmt.Errorf("%w: invalid layout entry %q", ErrBadNotation, entry)
		}
		coord, err := ParseSquare(strings.TrimSpace(sqPart))
		if err != nil {
			return 0, nil, err
		}
		pid, err := parsePieceID(strings.TrimSpace(pidPart))
		if err != nil {
			return 0, nil, err
		}
		if !zone[coord] {
			return 0, nil, fmt.Errorf("%w: cell %s not in %s start zone", ErrBadNotation, sqPart, sideLetter(side))
		}
		if _, dup := layout[pid]; dup {
			return 0, nil, fmt.Errorf("%w: duplicate piece id %d in %s layout", ErrBadNotation, pid, sideLetter(side))
		}
		if usedCells[coord] {
			return 0, nil, fmt.Errorf("%w: cell %s used more than once", ErrBadNotation, sqPart)
		}
		layout[pid] = coord
		usedCells[coord] = true
	}
	if len(layout) != game.NumPieces {
		return 0, nil, fmt.Errorf("%w: %s layout must place exactly %d pieces", ErrBadNotation, sideLetter(side), game.NumPieces)
	}
	return side, layout, nil
}

func parsePieceID(s string) (int8, error) {
	pid, err := strconv.Atoi(s)
	if err != nil || pid < 1 || pid > game.NumPieces {
		return 0, fmt.Errorf("%w: piece id must be between 1 and %d", ErrBadNotation, game.NumPieces)
	}
	return int8(pid), nil
}

func parseMoveLine(line string) (MoveRecord, error) {
	var rec MoveRecord
	plyStr, rest, found := strings.Cut(line, ":")
	if !found {
		return rec, fmt.Errorf("%w: invalid move line %q", ErrBadNotation, line)
	}
	dieStr, movePart, found := strings.Cut(rest, ";")
	if !found {
		return rec, fmt.Errorf("%w: invalid move line %q", ErrBadNotation, line)
	}
	ply, err := strconv.Atoi(strings.TrimSpace(plyStr))
	if err != nil {
		return rec, fmt.Errorf("%w: invalid ply %q", ErrBadNotation, plyStr)
	}
	die, err := strconv.Atoi(strings.TrimSpace(dieStr))
	if err != nil || die < 1 || die > 6 {
		return rec, fmt.Errorf("%w: die must be between 1 and 6", ErrBadNotation)
	}
	movePart = strings.TrimSpace(movePart)
	if !strings.HasPrefix(movePart, "(") || !strings.HasSuffix(movePart, ")") {
		return rec, fmt.Errorf("%w: invalid move tuple %q", ErrBadNotation, movePart)
	}
	inside := movePart[1 : len(movePart)-1]
	piecePart, coordPart, found := strings.Cut(inside, ",")
	if !found || piecePart == "" {
		return rec, fmt.Errorf("%w: invalid move payload %q", ErrBadNotation, inside)
	}
	var side game.Player
	switch piecePart[0] &^ 0x20 {
	case 'R':
		side = game.Red
	case 'B':
		side = game.Blue
	default:
		return rec, fmt.Errorf("%w: invalid color %q", ErrBadNotation, piecePart[:1])
	}
	pid, err := parsePieceID(piecePart[1:])
	if err != nil {
		return rec, err
	}
	to, err := ParseSquare(strings.TrimSpace(coordPart))
	if err != nil {
		return rec, err
	}
	return MoveRecord{Ply: ply, Die: die, Side: side, PieceID: pid, To: to}, nil
}

// Parse reads WTN text into a structured record.
func Parse(text string) (*Game, error) {
	g := &Game{}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r\n")
		stripped := strings.TrimSpace(line)
		switch {
		case stripped == "":
			continue
		case strings.HasPrefix(stripped, "#"):
			g.Comments = append(g.Comments, line)
		case strings.HasPrefix(stripped, "R:"), strings.HasPrefix(stripped, "B:"):
			side, layout, err := ParseLayoutLine(stripped)
			if err != nil {
				return nil, err
			}
			if side == game.Red {
				g.RedLayout = layout
			} else {
				g.BlueLayout = layout
			}
		default:
			rec, err := parseMoveLine(stripped)
			if err != nil {
				return nil, err
			}
			g.Moves = append(g.Moves, rec)
		}
	}
	if g.RedLayout == nil || g.BlueLayout == nil {
		return nil, fmt.Errorf("%w: missing R: or B: layout lines", ErrBadNotation)
	}
	return g, nil
}

func dumpLayout(layout map[int8]game.Coord, side game.Player) (string, error) {
	pids := make([]int, 0, len(layout))
	for pid := range layout {
		pids = append(pids, int(pid))
	}
	sort.Ints(pids)
	parts := make([]string, 0, len(pids))
	for _, pid := range pids {
		sq, err := SquareName(layout[int8(pid)])
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s-%d", sq, pid))
	}
	return sideLetter(side) + ":" + strings.Join(parts, ";"), nil
}

// Dump serializes a record back to WTN text.
func Dump(g *Game) (string, error) {
	var lines []string
	lines = append(lines, g.Comments...)
	redLine, err := dumpLayout(g.RedLayout, game.Red)
	if err != nil {
		return "", err
	}
	blueLine, err := dumpLayout(g.BlueLayout, game.Blue)
	if err != nil {
		return "", err
	}
	lines = append(lines, redLine, blueLine)
	for _, rec := range g.Moves {
		sq, err := SquareName(rec.To)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("%d:%d;(%s%d,%s)", rec.Ply, rec.Die, sideLetter(rec.Side), rec.PieceID, sq))
	}
	return strings.Join(lines, "\n") + "\n", nil
}

// Digest returns a stable content hash of the record, used to identify
// games in runner logs.
func Digest(g *Game) (uint64, error) {
	text, err := Dump(g)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64String(text), nil
}

// LayoutForNewGame converts a parsed layout map into the piece-id-ordered
// slice that game.NewGame expects.
func LayoutForNewGame(layout map[int8]game.Coord) []game.Coord {
	out := make([]game.Coord, game.NumPieces)
	for pid, c := range layout {
		if pid >= 1 && int(pid) <= game.NumPieces {
			out[pid-1] = c
		}
	}
	return out
}
