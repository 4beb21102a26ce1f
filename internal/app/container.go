// Package app provides dependency injection container for the application
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aki/parley/internal/core/config"
	"github.com/aki/parley/internal/core/hooks"
	"github.com/aki/parley/internal/core/logger"
	"github.com/aki/parley/internal/core/mailbox"
	"github.com/aki/parley/internal/core/transcript"
)

// Container holds the conversation and everything wired around it
type Container struct {
	// ProjectRoot is the root directory of the parley project
	ProjectRoot string

	ConfigManager *config.Manager
	Config        *config.Config
	Logger        logger.Logger

	// Mailbox is shared by every side of the conversation in this process
	Mailbox *mailbox.Mailbox

	// Recorder is nil when transcripts are disabled
	Recorder *transcript.Recorder

	// Hooks is nil when no hooks are configured
	Hooks *hooks.Dispatcher

	logCloser io.Closer
}

// Options adjusts container construction
type Options struct {
	// Logger replaces the file logger configured in config.yaml
	Logger logger.Logger
	// LogLevel and LogFormat override the configured values when set
	LogLevel  string
	LogFormat string
	// DisableTranscript skips transcript recording
	DisableTranscript bool
}

// NewContainer loads the configuration of an initialized project and wires
// the logger, the mailbox and the transcript recorder in dependency order
func NewContainer(projectRoot string, opts Options) (*Container, error) {
	c := NewContainerWithoutInit(projectRoot)

	if !c.ConfigManager.IsInitialized() {
		return nil, fmt.Errorf("parley not initialized in %s: run 'parley init' first", projectRoot)
	}

	cfg, err := c.ConfigManager.Load()
	if err != nil {
		return nil, err
	}
	c.Config = cfg

	// Logger (depends on config)
	if opts.Logger != nil {
		c.Logger = opts.Logger
	} else {
		level := firstNonEmpty(opts.LogLevel, cfg.Logging.Level)
		format := firstNonEmpty(opts.LogFormat, cfg.Logging.Format)
		l, closer, err := logger.NewFile(c.ConfigManager.GetLogPath(cfg),
			logger.WithLevelName(level),
			logger.WithFormatName(format),
		)
		if err != nil {
			return nil, err
		}
		c.Logger = l
		c.logCloser = closer
	}

	// Transcript recorder (depends on config and logger)
	mailboxOpts := []mailbox.Option{mailbox.WithLogger(c.Logger)}
	if !cfg.Transcript.Disabled && !opts.DisableTranscript {
		c.Recorder = transcript.NewRecorder(
			c.ConfigManager.GetTranscriptDir(cfg),
			transcript.WithRecorderLogger(c.Logger),
		)
		mailboxOpts = append(mailboxOpts, mailbox.WithObserver(c.Recorder.Observe))
	}

	// Hooks (depend on config and logger)
	if len(cfg.Hooks) > 0 {
		executor := hooks.NewExecutor(projectRoot, map[string]string{"PARLEY_PROJECT_ROOT": projectRoot}, c.Logger)
		c.Hooks = hooks.NewDispatcher(executor, cfg.Hooks, c.Logger)
		mailboxOpts = append(mailboxOpts, mailbox.WithObserver(c.Hooks.Observe))
	}

	// Mailbox (depends on everything above)
	if limit := cfg.Conversation.HistoryLimit; limit > 0 {
		mailboxOpts = append(mailboxOpts, mailbox.WithRetention(mailbox.KeepLast(limit)))
	}
	c.Mailbox = mailbox.New(mailboxOpts...)

	return c, nil
}

// NewContainerWithoutInit creates a container without checking initialization status.
// This is useful for commands that don't require an initialized parley project (e.g., init, version).
func NewContainerWithoutInit(projectRoot string) *Container {
	return &Container{
		ProjectRoot:   projectRoot,
		ConfigManager: config.NewManager(projectRoot),
		Logger:        logger.Nop(),
	}
}

// Close finishes the transcript, runs the conversation_end hooks and
// releases the log file
func (c *Container) Close(ctx context.Context) error {
	var firstErr error
	vars := map[string]string{}
	if c.Recorder != nil {
		if err := c.Recorder.Finish(ctx); err != nil {
			firstErr = fmt.Errorf("failed to finish transcript: %w", err)
		}
		vars["PARLEY_CONVERSATION"] = c.Recorder.ID()
		if _, err := os.Stat(c.Recorder.Path()); err == nil {
			vars["PARLEY_TRANSCRIPT"] = c.Recorder.Path()
		}
	}
	if c.Hooks != nil {
		if err := c.Hooks.Close(ctx, vars); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("conversation_end hooks: %w", err)
		}
		c.Hooks = nil
	}
	if c.logCloser != nil {
		if err := c.logCloser.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close log file: %w", err)
		}
		c.logCloser = nil
	}
	return firstErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
