package mailbox

import (
	"time"

	"github.com/aki/parley/internal/core/logger"
)

// Observer is notified after every send, outside the mailbox lock.
// Observers are called one message at a time in history order; when sends
// race, the goroutine already notifying delivers the later messages too.
// Observers may call back into the mailbox, including sending.
type Observer func(msg Message)

// Option configures a Mailbox
type Option func(*Mailbox)

// WithLogger sets the logger used for mailbox diagnostics
func WithLogger(l logger.Logger) Option {
	return func(m *Mailbox) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp messages
func WithClock(now func() time.Time) Option {
	return func(m *Mailbox) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRetention sets the history retention policy (default KeepAll)
func WithRetention(r Retention) Option {
	return func(m *Mailbox) {
		if r != nil {
			m.retention = r
		}
	}
}

// WithObserver registers an observer called after each send
func WithObserver(obs Observer) Option {
	return func(m *Mailbox) {
		if obs != nil {
			m.observers = append(m.observers, obs)
		}
	}
}
