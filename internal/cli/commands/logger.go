package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aki/parley/internal/core/logger"
)

// Global flags for logging configuration
var (
	flagLogLevel  string
	flagLogFormat string
	flagDebug     bool
)

// RegisterLoggerFlags registers global logging flags. Empty values defer to
// the logging section of config.yaml.
func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Shorthand for --log-level debug")
}

// CreateLogger creates a stderr logger based on CLI flags
func CreateLogger() logger.Logger {
	opts := []logger.Option{
		logger.WithLevelName(flagLogLevel),
		logger.WithFormatName(flagLogFormat),
		logger.WithOutput(os.Stderr),
	}
	if flagDebug {
		opts = append(opts, logger.WithDebug())
	}
	return logger.New(opts...)
}
