package main

import (
	"os"

	"resin_tracker/cmd/resinctl/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.SetVersionInfo(version, commit)

	// errors are printed by the commands with color formatting
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
