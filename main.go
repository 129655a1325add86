package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/huashuozhou20-cpu/wtn-einstein/agent"
	"github.com/huashuozhou20-cpu/wtn-einstein/config"
	"github.com/huashuozhou20-cpu/wtn-einstein/protocol"
	"github.com/huashuozhou20-cpu/wtn-einstein/shell"
)

func main() {
	cfgPath := flag.String("config", "", "path to a yaml config file")
	protocolMode := flag.Bool("protocol", false, "run the stdio protocol adapter instead of the shell")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *protocolMode {
		eng, ok := agent.New(cfg.DefaultAgent, cfg.Seed)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown agent %q\n", cfg.DefaultAgent)
			os.Exit(1)
		}
		adapter := protocol.NewAdapter(eng, cfg.DefaultBudgetMs, os.Stdin, os.Stdout)
		if err := adapter.Run(); err != nil {
			log.Error().Err(err).Msg("protocol session failed")
			os.Exit(1)
		}
		return
	}

	sh, err := shell.NewShell(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not start shell")
	}
	sh.Loop()
}
