// Package hooks runs user-configured shell commands on conversation events,
// for example to notify the person at the console that a customer message
// is waiting or to post-process a finished transcript.
package hooks

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorStrategy defines how to handle hook failures
type ErrorStrategy string

const (
	// ErrorStrategyFail stops the remaining hooks of the event
	ErrorStrategyFail ErrorStrategy = "fail"
	// ErrorStrategyWarn logs a warning and continues
	ErrorStrategyWarn ErrorStrategy = "warn"
	// ErrorStrategyIgnore continues silently
	ErrorStrategyIgnore ErrorStrategy = "ignore"
)

// Event names a point in the conversation that hooks can attach to
type Event string

const (
	// EventMessageToManual fires after the automated side sends a message
	EventMessageToManual Event = "message_to_manual"
	// EventMessageToAutomated fires after the console sends a reply
	EventMessageToAutomated Event = "message_to_automated"
	// EventConversationEnd fires once when the process closes the conversation
	EventConversationEnd Event = "conversation_end"
)

// Events lists every supported event
var Events = []Event{EventMessageToManual, EventMessageToAutomated, EventConversationEnd}

// DefaultTimeout bounds a hook without an explicit timeout
const DefaultTimeout = 30 * time.Second

// Hook is a single command bound to an event
type Hook struct {
	Name    string            `json:"name" yaml:"name"`
	Command string            `json:"command" yaml:"command"`
	Timeout time.Duration     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	OnError ErrorStrategy     `json:"onError,omitempty" yaml:"onError,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

func (h Hook) timeout() time.Duration {
	if h.Timeout <= 0 {
		return DefaultTimeout
	}
	return h.Timeout
}

func (h Hook) onError() ErrorStrategy {
	if h.OnError == "" {
		return ErrorStrategyWarn
	}
	return h.OnError
}

// Config maps event names to the hooks run for them, in order
type Config map[string][]Hook

// For returns the hooks registered for event
func (c Config) For(event Event) []Hook {
	return c[string(event)]
}

// Validate rejects unknown events and incomplete hooks
func (c Config) Validate() error {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !isEvent(name) {
			return fmt.Errorf("unknown hook event %q (want one of %s)", name, eventList())
		}
		for i, h := range c[name] {
			if strings.TrimSpace(h.Command) == "" {
				return fmt.Errorf("hook %s[%d]: command must not be empty", name, i)
			}
			switch h.OnError {
			case "", ErrorStrategyFail, ErrorStrategyWarn, ErrorStrategyIgnore:
			default:
				return fmt.Errorf("hook %s[%d]: invalid onError %q", name, i, h.OnError)
			}
		}
	}
	return nil
}

func isEvent(name string) bool {
	for _, e := range Events {
		if string(e) == name {
			return true
		}
	}
	return false
}

func eventList() string {
	names := make([]string, len(Events))
	for i, e := range Events {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

// ExecutionResult represents the result of one hook run
type ExecutionResult struct {
	Hook      Hook
	StartTime time.Time
	EndTime   time.Time
	Output    string
	ExitCode  int
	Error     error
}
