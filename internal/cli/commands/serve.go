package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aki/parley/internal/app"
	"github.com/aki/parley/internal/cli/console"
	"github.com/aki/parley/internal/cli/ui"
	"github.com/aki/parley/internal/core/terminal"
	"github.com/aki/parley/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the automated side as MCP tools",
	Long: `Start an MCP server whose tools send messages to and wait for replies
from the person at the console.

With the http transport the console runs in the same terminal. The stdio
transport needs standard input for the protocol, so no console is started
and the transcript is the only record of the conversation.`,
	Example: `  # SSE server on the configured port with the console attached
  parley serve

  # Require a bearer token
  parley serve --port 8080 --auth-token secret

  # Headless stdio server for an MCP client
  parley serve --transport stdio`,
	RunE: runServe,
}

var (
	serveTransport    string
	servePort         int
	serveAuthToken    string
	serveNoConsole    bool
	serveReplyTimeout time.Duration
	serveNoTranscript bool
)

func init() {
	serveCmd.Flags().StringVarP(&serveTransport, "transport", "t", mcp.TransportHTTP, "Transport type (http, stdio)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (default from config)")
	serveCmd.Flags().StringVar(&serveAuthToken, "auth-token", "", "Bearer token required by the HTTP transport")
	serveCmd.Flags().BoolVar(&serveNoConsole, "no-console", false, "Do not attach the interactive console")
	serveCmd.Flags().DurationVar(&serveReplyTimeout, "reply-timeout", 0, "Default wait_for_reply timeout (default from config)")
	serveCmd.Flags().BoolVar(&serveNoTranscript, "no-transcript", false, "Do not write a transcript")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveTransport != mcp.TransportHTTP && serveTransport != mcp.TransportStdio {
		return fmt.Errorf("unsupported transport: %s", serveTransport)
	}

	c, err := newContainer(app.Options{DisableTranscript: serveNoTranscript})
	if err != nil {
		return err
	}
	defer closeContainer(cmd, c)

	httpConfig := c.Config.MCP.HTTP
	if cmd.Flags().Changed("port") {
		httpConfig.Port = servePort
	}
	if cmd.Flags().Changed("auth-token") {
		httpConfig.Auth.Bearer = serveAuthToken
	}
	replyTimeout := c.Config.Conversation.ReplyTimeout
	if cmd.Flags().Changed("reply-timeout") {
		replyTimeout = serveReplyTimeout
	}

	opts := []mcp.Option{
		mcp.WithHTTPConfig(httpConfig),
		mcp.WithDefaultWaitTimeout(replyTimeout),
		mcp.WithLogger(c.Logger),
	}
	if c.Recorder != nil {
		opts = append(opts, mcp.WithRecorder(c.Recorder))
	}
	srv := mcp.NewServer(c.Mailbox, Version, opts...)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if serveTransport == mcp.TransportStdio {
		return srv.Serve(ctx, mcp.TransportStdio)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx, mcp.TransportHTTP)
	}()

	p := ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	p.Info("MCP server listening on http://localhost:%d/sse", httpConfig.Port)

	if serveNoConsole {
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			return err
		}
		return waitServer(serveErr)
	}

	con := console.New(c.Mailbox, cmd.InOrStdin(), cmd.OutOrStdout(),
		console.WithWaitTimeout(c.Config.Conversation.ManualWaitTimeout),
		console.WithWidth(terminal.RuleWidth()),
		console.WithLogger(c.Logger),
	)

	consoleDone := make(chan error, 1)
	go func() {
		consoleDone <- con.Run(ctx)
	}()

	select {
	case err := <-consoleDone:
		cancel()
		if serr := waitServer(serveErr); serr != nil {
			return serr
		}
		return err
	case err := <-serveErr:
		// The listener failed; stop the console with it
		cancel()
		<-consoleDone
		return err
	}
}

// waitServer collects the result of a server whose context was canceled
func waitServer(serveErr <-chan error) error {
	err := <-serveErr
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
