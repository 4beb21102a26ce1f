// Package mcp exposes the automated side of a conversation as MCP tools so
// that an external agent can talk to the person at the console.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aki/parley/internal/core/config"
	"github.com/aki/parley/internal/core/logger"
	"github.com/aki/parley/internal/core/mailbox"
	"github.com/aki/parley/internal/core/transcript"
)

// Transport names accepted by Serve
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Conversation is the mailbox surface used by the tools
type Conversation interface {
	SendFromAutomated(text string) mailbox.Message
	WaitForManualReply(ctx context.Context, timeout time.Duration) (mailbox.Message, error)
	History() []mailbox.Message
	Stats() mailbox.Stats
	EndConversation()
}

// Recorder stores outcomes and closes transcripts
type Recorder interface {
	RecordOutcome(ctx context.Context, o transcript.Outcome) error
	Finish(ctx context.Context) error
}

// Server serves the conversation tools over MCP
type Server struct {
	mcpServer   *server.MCPServer
	conv        Conversation
	recorder    Recorder
	httpConfig  config.HTTPConfig
	waitTimeout time.Duration
	logger      logger.Logger

	// Per-server counters reported by analyze_progress
	sent    atomic.Int64
	replies atomic.Int64
}

// Option configures a Server
type Option func(*Server)

// WithRecorder enables record_outcome and transcript finishing
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithHTTPConfig sets the listener and auth used by the http transport
func WithHTTPConfig(cfg config.HTTPConfig) Option {
	return func(s *Server) { s.httpConfig = cfg }
}

// WithDefaultWaitTimeout is used by wait_for_reply when no timeout is given
func WithDefaultWaitTimeout(d time.Duration) Option {
	return func(s *Server) { s.waitTimeout = d }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates an MCP server for conv
func NewServer(conv Conversation, version string, opts ...Option) *Server {
	s := &Server{
		conv:        conv,
		httpConfig:  config.HTTPConfig{Port: config.DefaultMCPPort},
		waitTimeout: config.DefaultReplyTimeout,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "mcp")

	s.mcpServer = server.NewMCPServer(
		"parley",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
		server.WithLogging(),
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Serve runs the server on transport until ctx is done
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch transport {
	case TransportStdio:
		return server.ServeStdio(s.mcpServer)
	case TransportHTTP, "":
		return s.serveHTTP(ctx)
	default:
		return fmt.Errorf("unsupported transport: %s", transport)
	}
}

// Handler returns the SSE and message endpoints behind bearer auth
func (s *Server) Handler() http.Handler {
	sseServer := server.NewSSEServer(s.mcpServer)

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	return s.authMiddleware(mux)
}

func (s *Server) serveHTTP(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.httpConfig.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("failed to shut down MCP server", "error", err)
		}
	}()

	s.logger.Info("MCP server listening",
		"sse", fmt.Sprintf("http://localhost:%d/sse", s.httpConfig.Port),
		"message", fmt.Sprintf("http://localhost:%d/message", s.httpConfig.Port),
		"auth", s.httpConfig.Auth.Bearer != "")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// authMiddleware requires the configured bearer token when one is set
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.httpConfig.Auth.Bearer == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+s.httpConfig.Auth.Bearer {
			s.logger.Warn("rejected unauthenticated request", "path", r.URL.Path, "remote", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// textResult wraps text in a tool result
func textResult(format string, args ...interface{}) *mcp.CallToolResult {
	return mcp.NewToolResultText(fmt.Sprintf(format, args...))
}
