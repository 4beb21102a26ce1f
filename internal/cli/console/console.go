// Package console is the interactive manual side of a conversation. It
// waits for automated messages, shows them and sends typed replies back.
package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aki/parley/internal/cli/ui"
	"github.com/aki/parley/internal/core/logger"
	"github.com/aki/parley/internal/core/mailbox"
)

// Mailbox is the manual side of a conversation
type Mailbox interface {
	WaitForAutomatedMessage(ctx context.Context, timeout time.Duration) (mailbox.Message, error)
	SendFromManual(text string) mailbox.Message
	History() []mailbox.Message
	Stats() mailbox.Stats
	EndConversation()
}

const (
	// DefaultWaitTimeout is how long each wait for an automated message lasts
	// before the console reports a timeout and waits again
	DefaultWaitTimeout = 5 * time.Minute

	defaultWidth = 70
)

// Console runs the interactive loop
type Console struct {
	box         Mailbox
	in          io.Reader
	printer     *ui.Printer
	waitTimeout time.Duration
	width       int
	title       string
	logger      logger.Logger
}

// Option configures a Console
type Option func(*Console)

// WithWaitTimeout sets the wait per attempt. Zero or less waits forever.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *Console) { c.waitTimeout = d }
}

// WithWidth sets the width of separators
func WithWidth(width int) Option {
	return func(c *Console) {
		if width > 0 {
			c.width = width
		}
	}
}

// WithTitle sets the header title
func WithTitle(title string) Option {
	return func(c *Console) {
		if title != "" {
			c.title = title
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(c *Console) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a console reading replies from in and writing to out
func New(box Mailbox, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		box:         box,
		in:          in,
		printer:     ui.NewPrinter(out, nil),
		waitTimeout: DefaultWaitTimeout,
		width:       defaultWidth,
		title:       "CUSTOMER SERVICE CONSOLE",
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "console")
	return c
}

// errQuit ends the loop without error
var errQuit = errors.New("quit")

// Run drives the console until /quit, end of input or ctx cancellation,
// all of which return nil.
func (c *Console) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	lines := readLines(c.in, done)

	c.printHeader()
	c.printer.Line("[Ready] Waiting for the customer to initiate contact...\n")

	defer c.printer.Line("\nConsole session ended. Conversation history is kept in the mailbox.\n")

	for {
		msg, err := c.awaitMessage(ctx, lines)
		if err != nil {
			if errors.Is(err, errQuit) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msg == nil {
			continue
		}

		c.printer.Separator("-", c.width)
		c.printer.PrintMessage(*msg)
		c.printer.Separator("-", c.width)

		if err := c.reply(ctx, lines); err != nil {
			if errors.Is(err, errQuit) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		c.printer.Line("\n[Waiting for next customer message...]\n")
	}
}

type waitResult struct {
	msg mailbox.Message
	err error
}

// awaitMessage waits for one automated message while still serving
// commands typed in the meantime. A nil message without error means the
// wait timed out or the conversation was ended locally.
func (c *Console) awaitMessage(ctx context.Context, lines <-chan string) (*mailbox.Message, error) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan waitResult, 1)
	go func() {
		msg, err := c.box.WaitForAutomatedMessage(waitCtx, c.waitTimeout)
		results <- waitResult{msg: msg, err: err}
	}()

	for {
		select {
		case res := <-results:
			if res.err == nil {
				return &res.msg, nil
			}
			if mailbox.IsTimeout(res.err) {
				c.printer.Line("\n[Timeout] No customer message received. Still waiting...")
				return nil, nil
			}
			return nil, res.err

		case line, ok := <-lines:
			if !ok {
				return nil, c.stopWaiting(cancel, results, errQuit)
			}
			cmd := strings.TrimSpace(line)
			if !isCommand(cmd) {
				if cmd != "" {
					c.printer.Warning("No customer message to reply to yet")
				}
				continue
			}
			if err := c.runCommand(cmd); err != nil {
				return nil, c.stopWaiting(cancel, results, err)
			}

		case <-ctx.Done():
			return nil, c.stopWaiting(cancel, results, ctx.Err())
		}
	}
}

// stopWaiting cancels the pending wait. A message that was dequeued in the
// meantime is shown rather than dropped silently.
func (c *Console) stopWaiting(cancel context.CancelFunc, results <-chan waitResult, err error) error {
	cancel()
	if res := <-results; res.err == nil {
		c.printer.Warning("Message received while exiting:")
		c.printer.PrintMessage(res.msg)
	}
	return err
}

// reply prompts until a non-empty reply is sent or a command ends the turn
func (c *Console) reply(ctx context.Context, lines <-chan string) error {
	for {
		c.printer.Raw("\n%s  %s: ", ui.ManualIcon, ui.ManualStyle.Render("YOU"))

		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				return errQuit
			}
			line = l
		case <-ctx.Done():
			return ctx.Err()
		}

		text := strings.TrimSpace(line)
		switch {
		case text == "":
			c.printer.Warning("Please enter a response or use /quit to exit")
			continue

		case isCommand(text):
			if err := c.runCommand(text); err != nil {
				return err
			}
			if strings.EqualFold(text, "/end") {
				return nil
			}
			continue
		}

		msg := c.box.SendFromManual(text)
		c.logger.Debug("reply sent", "id", msg.ID)
		c.printer.Success("Response sent to customer")
		return nil
	}
}

func isCommand(s string) bool {
	return strings.HasPrefix(s, "/")
}

// runCommand executes a slash command. It returns errQuit for /quit.
func (c *Console) runCommand(cmd string) error {
	switch strings.ToLower(cmd) {
	case "/quit", "/exit":
		c.printer.Line("\n[Exiting console...]")
		return errQuit
	case "/history":
		c.printer.PrintHistory(c.box.History())
	case "/status":
		c.printer.PrintStats(c.box.Stats())
	case "/end":
		c.box.EndConversation()
		c.printer.Info("Conversation marked as ended")
	case "/help":
		c.printCommands()
	default:
		c.printer.Warning("Unknown command %s (try /help)", cmd)
	}
	return nil
}

func (c *Console) printHeader() {
	c.printer.Line("")
	c.printer.Separator("=", c.width)
	c.printer.Line("  %s", ui.HeaderStyle.Render(c.title))
	c.printer.Separator("=", c.width)
	c.printer.Line("\nYou are the customer service representative.")
	c.printer.Line("Wait for customer messages and respond appropriately.")
	c.printCommands()
	c.printer.Separator("=", c.width)
	c.printer.Line("")
}

func (c *Console) printCommands() {
	c.printer.Line("\nCommands:")
	c.printer.Line("  /history  - Show conversation history")
	c.printer.Line("  /status   - Show queue and conversation status")
	c.printer.Line("  /end      - Mark the conversation as ended")
	c.printer.Line("  /quit     - Exit the console")
}

// readLines feeds lines from r into a channel that is closed at EOF. A read
// that is already blocked on r outlives done.
func readLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
