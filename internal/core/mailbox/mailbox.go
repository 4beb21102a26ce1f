package mailbox

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aki/parley/internal/core/logger"
)

// Mailbox coordinates one conversation between the automated and manual
// sides. It owns a channel per direction and a single history log ordered
// by send call order. A Mailbox is safe for concurrent use; only the
// WaitFor* methods block.
type Mailbox struct {
	// mu serializes sends so that history order matches channel order.
	// Lock order is mu, then a channel's own lock.
	mu           sync.Mutex
	history      []Message
	active       bool
	totals       map[Origin]int
	lastActivity time.Time

	toManual    *directionalChannel
	toAutomated *directionalChannel

	retention Retention
	observers []Observer
	logger    logger.Logger
	now       func() time.Time

	// unnotified holds sent messages not yet passed to observers, in
	// history order. notifying is set while a sender drains it.
	unnotified []Message
	notifying  bool
}

// New creates an empty, inactive mailbox
func New(opts ...Option) *Mailbox {
	m := &Mailbox{
		totals:      make(map[Origin]int),
		toManual:    newDirectionalChannel(DirectionToManual),
		toAutomated: newDirectionalChannel(DirectionToAutomated),
		retention:   KeepAll(),
		logger:      logger.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "mailbox")
	return m
}

// SendFromAutomated posts text from the automated side to the manual side
func (m *Mailbox) SendFromAutomated(text string) Message {
	return m.send(OriginAutomated, text)
}

// SendFromManual posts text from the manual side to the automated side.
// Like SendFromAutomated it never blocks.
func (m *Mailbox) SendFromManual(text string) Message {
	return m.send(OriginManual, text)
}

// WaitForManualReply blocks the automated side until the manual side
// replies, the timeout elapses or ctx is done. A timeout <= 0 waits without
// deadline. On timeout the error is a *WaitTimedOutError.
func (m *Mailbox) WaitForManualReply(ctx context.Context, timeout time.Duration) (Message, error) {
	return m.wait(ctx, m.toAutomated, timeout)
}

// WaitForAutomatedMessage blocks the manual side until the automated side
// sends, the timeout elapses or ctx is done.
func (m *Mailbox) WaitForAutomatedMessage(ctx context.Context, timeout time.Duration) (Message, error) {
	return m.wait(ctx, m.toManual, timeout)
}

// History returns a copy of the conversation log in send order
func (m *Mailbox) History() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

// IsActive reports whether a send happened since creation or the last
// EndConversation
func (m *Mailbox) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// EndConversation marks the conversation inactive. It does not touch
// history or pending messages, and sends remain allowed.
func (m *Mailbox) EndConversation() {
	m.mu.Lock()
	wasActive := m.active
	m.active = false
	m.mu.Unlock()

	if wasActive {
		m.logger.Info("conversation ended")
	}
}

// Pending returns the number of undelivered messages in a direction
func (m *Mailbox) Pending(d Direction) int {
	if ch := m.channel(d); ch != nil {
		return ch.len()
	}
	return 0
}

// Stats returns a consistent snapshot of counters and queue depths
func (m *Mailbox) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Active:             m.active,
		TotalAutomated:     m.totals[OriginAutomated],
		TotalManual:        m.totals[OriginManual],
		PendingToManual:    m.toManual.len(),
		PendingToAutomated: m.toAutomated.len(),
		HistoryLen:         len(m.history),
		LastActivity:       m.lastActivity,
	}
}

func (m *Mailbox) send(origin Origin, text string) Message {
	msg := Message{
		ID:     uuid.NewString(),
		Text:   text,
		Origin: origin,
	}

	m.mu.Lock()
	msg.Timestamp = m.now()
	m.history = m.retention.Trim(append(m.history, msg))
	m.channel(msg.Direction()).enqueue(msg)
	m.totals[origin]++
	m.active = true
	m.lastActivity = msg.Timestamp
	drain := false
	if len(m.observers) > 0 {
		m.unnotified = append(m.unnotified, msg)
		drain = !m.notifying
		m.notifying = true
	}
	m.mu.Unlock()

	m.logger.Debug("message sent",
		"id", msg.ID,
		"origin", string(origin),
		"direction", msg.Direction().String(),
		"bytes", len(text))

	if drain {
		m.notify()
	}
	return msg
}

// notify passes queued messages to the observers until none are left.
// Only one sender runs it at a time, so observers see history order.
func (m *Mailbox) notify() {
	for {
		m.mu.Lock()
		batch := m.unnotified
		m.unnotified = nil
		if len(batch) == 0 {
			m.notifying = false
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		for _, msg := range batch {
			for _, obs := range m.observers {
				obs(msg)
			}
		}
	}
}

func (m *Mailbox) wait(ctx context.Context, ch *directionalChannel, timeout time.Duration) (Message, error) {
	msg, err := ch.dequeue(ctx, timeout)
	if err != nil {
		if IsTimeout(err) {
			m.logger.Debug("wait timed out", "direction", ch.direction.String(), "timeout", timeout)
		}
		return Message{}, err
	}

	m.logger.Debug("message delivered", "id", msg.ID, "direction", ch.direction.String())
	return msg, nil
}

func (m *Mailbox) channel(d Direction) *directionalChannel {
	switch d {
	case DirectionToManual:
		return m.toManual
	case DirectionToAutomated:
		return m.toAutomated
	default:
		return nil
	}
}
