package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/aki/parley/internal/app"
	"github.com/aki/parley/internal/cli/console"
	"github.com/aki/parley/internal/cli/ui"
	"github.com/aki/parley/internal/core/negotiator"
	"github.com/aki/parley/internal/core/terminal"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Play a negotiation script against the console",
	Long: `Run the scripted negotiator as the automated side and the interactive
console as the manual side, both attached to the same mailbox.

The console reads replies from standard input. Type /help for commands and
/quit to leave.`,
	Example: `  # Use the built-in duplicate charge script
  parley chat

  # Use a custom script with a shorter reply timeout
  parley chat --script refund.yaml --reply-timeout 30s`,
	RunE: runChat,
}

var (
	chatScript       string
	chatReplyTimeout time.Duration
	chatWaitTimeout  time.Duration
	chatAttempts     int
	chatNoTranscript bool
)

func init() {
	chatCmd.Flags().StringVarP(&chatScript, "script", "s", "", "Negotiation script file (default: built-in script)")
	chatCmd.Flags().DurationVar(&chatReplyTimeout, "reply-timeout", 0, "How long the negotiator waits for each reply (default from config)")
	chatCmd.Flags().DurationVar(&chatWaitTimeout, "wait-timeout", 0, "How long the console waits for each customer message (default from config)")
	chatCmd.Flags().IntVar(&chatAttempts, "attempts", 0, "Reply waits per turn before the negotiator moves on (default from config)")
	chatCmd.Flags().BoolVar(&chatNoTranscript, "no-transcript", false, "Do not write a transcript")
}

type negotiationOutcome struct {
	result *negotiator.Result
	err    error
}

func runChat(cmd *cobra.Command, args []string) error {
	script := negotiator.DefaultScript()
	if chatScript != "" {
		s, err := negotiator.LoadScript(chatScript)
		if err != nil {
			return err
		}
		script = s
	}

	c, err := newContainer(app.Options{DisableTranscript: chatNoTranscript})
	if err != nil {
		return err
	}
	defer closeContainer(cmd, c)

	conv := c.Config.Conversation
	if cmd.Flags().Changed("reply-timeout") {
		conv.ReplyTimeout = chatReplyTimeout
	}
	if cmd.Flags().Changed("wait-timeout") {
		conv.ManualWaitTimeout = chatWaitTimeout
	}
	if cmd.Flags().Changed("attempts") {
		conv.ReplyAttempts = chatAttempts
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	neg := negotiator.New(c.Mailbox,
		negotiator.WithReplyTimeout(conv.ReplyTimeout),
		negotiator.WithAttempts(conv.ReplyAttempts),
		negotiator.WithLogger(c.Logger),
	)

	done := make(chan negotiationOutcome, 1)
	go func() {
		res, err := neg.Run(ctx, script)
		done <- negotiationOutcome{result: res, err: err}
	}()

	con := console.New(c.Mailbox, cmd.InOrStdin(), cmd.OutOrStdout(),
		console.WithWaitTimeout(conv.ManualWaitTimeout),
		console.WithWidth(terminal.RuleWidth()),
		console.WithTitle(script.Name),
		console.WithLogger(c.Logger),
	)
	consoleErr := con.Run(ctx)

	// Leaving the console abandons whatever the script still had to say
	cancel()
	outcome := <-done

	printChatSummary(ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr()), outcome.result)

	if consoleErr != nil {
		return consoleErr
	}
	if outcome.err != nil && !errors.Is(outcome.err, context.Canceled) {
		return outcome.err
	}
	return nil
}

func printChatSummary(p *ui.Printer, res *negotiator.Result) {
	if res == nil {
		return
	}
	p.Line("Script turns played: %d", len(res.Exchanges))
	p.Line("  Replies:     %d", res.Replies)
	p.Line("  Timeouts:    %d", res.Timeouts)
	p.Line("  Unanswered:  %d", res.Unanswered)
}
