package main

import (
	"os"

	"github.com/mosaicnetworks/relayfold/src/cmd/relayfold/command"
)

func main() {
	if err := command.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
