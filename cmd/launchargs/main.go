package main

import (
	"os"

	"github.com/abramin/launchargs/cmd/launchargs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
