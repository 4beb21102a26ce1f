// Package commands provides CLI command implementations for parley.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aki/parley/internal/core/logger"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Timeout-aware mailbox between an automated agent and a person",
	Long: `Parley connects an automated side (a scripted negotiator or an MCP agent)
with a person typing at the console. Messages flow through an in-process
mailbox with one queue per direction, every wait is bounded by a timeout,
and the conversation history is kept in send order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Commands that do not own the terminal log to stderr through the
	// context logger; chat and serve switch to the configured log file.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmd.SetContext(logger.WithContext(cmd.Context(), CreateLogger()))
	},
}

func init() {
	RegisterLoggerFlags(rootCmd)
	rootCmd.PersistentFlags().StringVar(&flagRootDir, "root-dir", "", "Project root directory (default: nearest directory containing .parley)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
