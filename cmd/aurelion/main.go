package main

import (
	"os"

	"aurelion/internal/cli"
	"aurelion/internal/logging"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
