package main

import (
	"context"
	"os"

	"github.com/aki/parley/internal/cli/commands"
	"github.com/aki/parley/internal/cli/ui"
)

func main() {
	if err := commands.Execute(context.Background()); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}
