package main

import (
	"os"

	"github.com/hirepilot/hirepilot/cmd/hirepilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
