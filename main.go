package main

import (
	"os"

	"github.com/vipertrack/vipertrack/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
