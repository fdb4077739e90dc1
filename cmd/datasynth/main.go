package main

import (
	"os"

	"github.com/pterm/pterm"

	"github.com/datasynth/api/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
