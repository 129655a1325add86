package automatic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func TestLoadTournamentSpec(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "spec.yaml")
	is.NoErr(os.WriteFile(path, []byte(`games: 6
red: greedy
blue: random
seed: 99
limit_seconds: 2
time_preset: fast
parallel: true
alternate_first: true
`), 0644))

	spec, err := LoadTournamentSpec(path)
	is.NoErr(err)
	is.Equal(spec.Games, 6)
	is.Equal(spec.Red, "greedy")
	is.Equal(spec.Blue, "random")
	is.Equal(spec.Seed, int64(99))
	is.Equal(spec.LimitSeconds, 2.0)
	is.Equal(spec.TimePreset, "fast")
	is.True(spec.Parallel)
	is.True(spec.AlternateRed)
}

func TestLoadTournamentSpecDefaults(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "spec.yaml")
	is.NoErr(os.WriteFile(path, []byte("games: 0\n"), 0644))

	spec, err := LoadTournamentSpec(path)
	is.NoErr(err)
	is.Equal(spec.Games, 1)
	is.Equal(spec.Red, "greedy")
	is.Equal(spec.Blue, "random")
}

func TestLoadTournamentSpecErrors(t *testing.T) {
	is := is.New(t)
	_, err := LoadTournamentSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	is.True(err != nil)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	is.NoErr(os.WriteFile(path, []byte("games: [not a number\n"), 0644))
	_, err = LoadTournamentSpec(path)
	is.True(err != nil)
}

func TestRunTournamentSerial(t *testing.T) {
	is := is.New(t)
	res, err := RunTournament(TournamentSpec{
		Games: 4,
		Red:   "greedy",
		Blue:  "random",
		Seed:  31,
	})
	is.NoErr(err)
	is.Equal(res.RedWins+res.BlueWins, 4)
	is.True(res.TotalPlies > 0)
}

func TestRunTournamentParallelAlternating(t *testing.T) {
	is := is.New(t)
	res, err := RunTournament(TournamentSpec{
		Games:        4,
		Red:          "random",
		Blue:         "random",
		Seed:         5,
		Parallel:     true,
		AlternateRed: true,
	})
	is.NoErr(err)
	is.Equal(res.RedWins+res.BlueWins, 4)
}

func TestRunTournamentUnknownAgent(t *testing.T) {
	is := is.New(t)
	_, err := RunTournament(TournamentSpec{Games: 1, Red: "stockfish", Blue: "random"})
	is.True(err != nil)
}
