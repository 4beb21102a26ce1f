package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aki/parley/internal/cli/ui"
	"github.com/aki/parley/internal/core/logger"
	"github.com/aki/parley/internal/core/transcript"
)

var transcriptCmd = &cobra.Command{
	Use:     "transcript",
	Aliases: []string{"tr"},
	Short:   "Browse exported conversation transcripts",
}

var transcriptFormat string

var transcriptListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List transcripts, most recently updated first",
	Args:    cobra.NoArgs,
	RunE:    runTranscriptList,
}

var transcriptShowCmd = &cobra.Command{
	Use:   "show <id|path>",
	Short: "Show one transcript",
	Long:  "Show a transcript by path, full ID or unique ID prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscriptShow,
}

var transcriptRemoveCmd = &cobra.Command{
	Use:     "rm <id|path>",
	Aliases: []string{"remove"},
	Short:   "Delete a transcript",
	Args:    cobra.ExactArgs(1),
	RunE:    runTranscriptRemove,
}

func init() {
	for _, cmd := range []*cobra.Command{transcriptListCmd, transcriptShowCmd} {
		cmd.Flags().StringVar(&transcriptFormat, "format", "pretty", "Output format (pretty, json, yaml)")
	}

	transcriptCmd.AddCommand(transcriptListCmd)
	transcriptCmd.AddCommand(transcriptShowCmd)
	transcriptCmd.AddCommand(transcriptRemoveCmd)
}

func transcriptDir() (string, error) {
	mgr, cfg, err := loadProjectConfig()
	if err != nil {
		return "", err
	}
	return mgr.GetTranscriptDir(cfg), nil
}

func runTranscriptList(cmd *cobra.Command, args []string) error {
	dir, err := transcriptDir()
	if err != nil {
		return err
	}

	logger.FromContext(cmd.Context()).Debug("listing transcripts", "dir", dir)
	summaries, err := transcript.List(cmd.Context(), dir)
	if err != nil {
		return err
	}
	if summaries == nil {
		summaries = []transcript.Summary{}
	}

	f, err := newFormatter(cmd, transcriptFormat)
	if err != nil {
		return err
	}
	return f.Output(summaries, func(p *ui.Printer) { p.PrintTranscriptList(summaries) })
}

func runTranscriptShow(cmd *cobra.Command, args []string) error {
	dir, err := transcriptDir()
	if err != nil {
		return err
	}

	path, err := transcript.Resolve(dir, args[0])
	if err != nil {
		return err
	}
	t, err := transcript.Load(cmd.Context(), path)
	if err != nil {
		return err
	}

	f, err := newFormatter(cmd, transcriptFormat)
	if err != nil {
		return err
	}
	return f.Output(t, func(p *ui.Printer) { p.PrintTranscript(t) })
}

func runTranscriptRemove(cmd *cobra.Command, args []string) error {
	dir, err := transcriptDir()
	if err != nil {
		return err
	}

	path, err := transcript.Resolve(dir, args[0])
	if err != nil {
		return err
	}
	logger.FromContext(cmd.Context()).Debug("deleting transcript", "path", path)
	if err := transcript.Delete(cmd.Context(), path); err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}

	ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success("Deleted transcript %s", path)
	return nil
}
