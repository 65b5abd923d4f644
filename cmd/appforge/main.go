package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"appforge/cmd/appforge/commands"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := commands.New().Run(); err != nil {
		log.Error().Msg(err.Error())
		os.Exit(1)
	}
}
