package automatic

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/huashuozhou20-cpu/wtn-einstein/agent"
	"github.com/huashuozhou20-cpu/wtn-einstein/game"
	"github.com/huashuozhou20-cpu/wtn-einstein/timemgr"
)

// TournamentSpec is the yaml description of a head-to-head series.
type TournamentSpec struct {
	Games        int     `yaml:"games"`
	Red          string  `yaml:"red"`
	Blue         string  `yaml:"blue"`
	Seed         int64   `yaml:"seed"`
	LimitSeconds float64 `yaml:"limit_seconds"`
	TimePreset   string  `yaml:"time_preset"`
	Parallel     bool    `yaml:"parallel"`
	AlternateRed bool    `yaml:"alternate_first"`
}

// TournamentResult aggregates a finished series.
type TournamentResult struct {
	Spec      TournamentSpec
	RedWins   int
	BlueWins  int
	TotalPlies int
	Elapsed   time.Duration
}

// LoadTournamentSpec reads a yaml spec file.
func LoadTournamentSpec(path string) (*TournamentSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	spec := &TournamentSpec{}
	if err := yaml.Unmarshal(raw, spec); err != nil {
		return nil, fmt.Errorf("parsing tournament spec: %w", err)
	}
	if spec.Games <= 0 {
		spec.Games = 1
	}
	if spec.Red == "" {
		spec.Red = "greedy"
	}
	if spec.Blue == "" {
		spec.Blue = "random"
	}
	return spec, nil
}

// RunTournament plays the series. Each game constructs fresh agents so
// that no solver caches are shared across concurrent games.
func RunTournament(spec TournamentSpec) (*TournamentResult, error) {
	start := time.Now()
	res := &TournamentResult{Spec: spec}
	var mu sync.Mutex

	g := errgroup.Group{}
	if spec.Parallel {
		g.SetLimit(runtime.NumCPU())
	} else {
		g.SetLimit(1)
	}

	for i := 0; i < spec.Games; i++ {
		i := i
		g.Go(func() error {
			redAgent, ok := agent.New(spec.Red, spec.Seed+int64(i)*2)
			if !ok {
				return fmt.Errorf("unknown agent %q", spec.Red)
			}
			blueAgent, ok := agent.New(spec.Blue, spec.Seed+int64(i)*2+1)
			if !ok {
				return fmt.Errorf("unknown agent %q", spec.Blue)
			}
			first := game.Red
			if spec.AlternateRed && i%2 == 1 {
				first = game.Blue
			}
			opts := []Option{
				WithTimeConfig(timemgr.Preset(spec.TimePreset)),
				WithFirst(first),
			}
			if spec.LimitSeconds > 0 {
				opts = append(opts, WithClock(spec.LimitSeconds))
			}
			runner := NewGameRunner(redAgent, blueAgent, spec.Seed+int64(i)*yieldPrime, opts...)
			summary, err := runner.Play()
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			mu.Lock()
			if summary.Winner == game.Red {
				res.RedWins++
			} else {
				res.BlueWins++
			}
			res.TotalPlies += summary.Plies
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	log.Info().
		Int("games", spec.Games).
		Int("redWins", res.RedWins).
		Int("blueWins", res.BlueWins).
		Dur("elapsed", res.Elapsed).
		Msg("tournament-over")
	return res, nil
}

// yieldPrime decorrelates per-game dice seeds from agent seeds.
const yieldPrime = 7919
