package main

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/bootkit/cmd/bootkit/commands"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	err := commands.Execute(context.Background())
	if err != nil && !commands.Reported(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(commands.ExitCode(err))
}
