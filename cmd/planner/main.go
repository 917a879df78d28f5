// Package main provides the entry point for the planner CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nhle/agentic-planner/internal/cli"
	"github.com/nhle/agentic-planner/internal/theme"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx := context.Background()
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err != nil {
		fmt.Fprintln(os.Stderr, theme.ErrorStyle.Render("Error:"), err)
		os.Exit(cli.ExitCodeForError(err))
	}
}
