package config

import (
	"time"

	"github.com/aki/parley/internal/core/hooks"
)

// Config represents the main parley configuration
type Config struct {
	Version      string             `json:"version" yaml:"version"`
	Conversation ConversationConfig `json:"conversation,omitempty" yaml:"conversation,omitempty"`
	Logging      LoggingConfig      `json:"logging,omitempty" yaml:"logging,omitempty"`
	Transcript   TranscriptConfig   `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	MCP          MCPConfig          `json:"mcp,omitempty" yaml:"mcp,omitempty"`
	// Hooks maps conversation events to commands
	Hooks        hooks.Config       `json:"hooks,omitempty" yaml:"hooks,omitempty"`
}

// ConversationConfig holds timing for both sides of the mailbox
type ConversationConfig struct {
	// ManualWaitTimeout bounds each wait of the console for an automated message
	ManualWaitTimeout time.Duration `json:"manualWaitTimeout,omitempty" yaml:"manualWaitTimeout,omitempty"`
	// ReplyTimeout bounds each wait of the automated side for a manual reply
	ReplyTimeout time.Duration `json:"replyTimeout,omitempty" yaml:"replyTimeout,omitempty"`
	// ReplyAttempts is how many reply timeouts the scripted negotiator
	// tolerates per turn before moving on
	ReplyAttempts int `json:"replyAttempts,omitempty" yaml:"replyAttempts,omitempty"`
	// HistoryLimit keeps only the most recent entries when > 0
	HistoryLimit int `json:"historyLimit,omitempty" yaml:"historyLimit,omitempty"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// File is relative to the .parley directory unless absolute
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// TranscriptConfig controls transcript export
type TranscriptConfig struct {
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	// Dir is relative to the .parley directory unless absolute
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	HTTP HTTPConfig `json:"http,omitempty" yaml:"http,omitempty"`
}

// HTTPConfig represents the MCP HTTP/SSE listener
type HTTPConfig struct {
	Port int        `json:"port,omitempty" yaml:"port,omitempty"`
	Auth AuthConfig `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Bearer string `json:"bearer,omitempty" yaml:"bearer,omitempty"`
}

const (
	// DefaultManualWaitTimeout matches the five minute wait of the CS console
	DefaultManualWaitTimeout = 5 * time.Minute
	// DefaultReplyTimeout is the automated side's wait per attempt
	DefaultReplyTimeout = 2 * time.Minute
	// DefaultReplyAttempts is the number of reply waits per scripted turn
	DefaultReplyAttempts = 3
	// DefaultMCPPort is the default MCP HTTP port
	DefaultMCPPort = 3000
	// DefaultLogFile is the log file used while the console owns the terminal
	DefaultLogFile = "logs/parley.log"
	// DefaultTranscriptDir is where transcripts are exported
	DefaultTranscriptDir = "transcripts"
)

// DefaultConfig returns the default parley configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Conversation: ConversationConfig{
			ManualWaitTimeout: DefaultManualWaitTimeout,
			ReplyTimeout:      DefaultReplyTimeout,
			ReplyAttempts:     DefaultReplyAttempts,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   DefaultLogFile,
		},
		Transcript: TranscriptConfig{
			Dir: DefaultTranscriptDir,
		},
		MCP: MCPConfig{
			HTTP: HTTPConfig{
				Port: DefaultMCPPort,
			},
		},
	}
}
