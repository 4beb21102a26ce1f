package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aki/parley/internal/app"
	"github.com/aki/parley/internal/cli/ui"
	"github.com/aki/parley/internal/core/config"
)

var flagRootDir string

// findProjectRoot honors --root-dir before searching upwards from the
// working directory
func findProjectRoot() (string, error) {
	if flagRootDir != "" {
		abs, err := filepath.Abs(flagRootDir)
		if err != nil {
			return "", fmt.Errorf("invalid root directory: %w", err)
		}
		return abs, nil
	}
	return config.FindProjectRoot()
}

// newContainer builds the application container for the current project.
// Logging goes to the configured file because the console owns the terminal.
func newContainer(opts app.Options) (*app.Container, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, err
	}

	if opts.LogLevel == "" {
		opts.LogLevel = flagLogLevel
	}
	if flagDebug {
		opts.LogLevel = "debug"
	}
	if opts.LogFormat == "" {
		opts.LogFormat = flagLogFormat
	}

	return app.NewContainer(projectRoot, opts)
}

// closeContainer finishes the transcript and reports where it was written
func closeContainer(cmd *cobra.Command, c *app.Container) {
	if err := c.Close(context.Background()); err != nil {
		ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Warning("%v", err)
		return
	}
	if c.Recorder == nil {
		return
	}
	if _, err := os.Stat(c.Recorder.Path()); err == nil {
		ui.NewPrinter(cmd.OutOrStdout(), nil).Info("Transcript saved to %s", c.Recorder.Path())
	}
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newFormatter creates a formatter writing to the command's output
func newFormatter(cmd *cobra.Command, format string) (ui.Formatter, error) {
	f, err := ui.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return ui.NewFormatter(f, cmd.OutOrStdout())
}
