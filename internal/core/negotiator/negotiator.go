// Package negotiator drives the automated side of a conversation from a
// fixed script. It stands in for an agent in demos and tests.
package negotiator

import (
	"context"
	"fmt"
	"time"

	"github.com/aki/parley/internal/core/logger"
	"github.com/aki/parley/internal/core/mailbox"
)

// Conversation is the automated side of a mailbox
type Conversation interface {
	SendFromAutomated(text string) mailbox.Message
	WaitForManualReply(ctx context.Context, timeout time.Duration) (mailbox.Message, error)
	EndConversation()
}

// Exchange records one scripted turn
type Exchange struct {
	Sent     mailbox.Message
	Reply    *mailbox.Message
	Timeouts int
}

// Answered reports whether the turn received a reply
func (e Exchange) Answered() bool {
	return e.Reply != nil
}

// Result summarizes a run
type Result struct {
	Exchanges  []Exchange
	Replies    int
	Timeouts   int
	Unanswered int
}

// Negotiator plays a Script against a Conversation
type Negotiator struct {
	conv         Conversation
	replyTimeout time.Duration
	attempts     int
	logger       logger.Logger
	onReply      func(mailbox.Message)
}

// Option configures a Negotiator
type Option func(*Negotiator)

// WithReplyTimeout sets the wait per attempt
func WithReplyTimeout(d time.Duration) Option {
	return func(n *Negotiator) { n.replyTimeout = d }
}

// WithAttempts sets how many timed-out waits a turn tolerates
func WithAttempts(attempts int) Option {
	return func(n *Negotiator) {
		if attempts > 0 {
			n.attempts = attempts
		}
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(n *Negotiator) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithReplyHandler is called for every reply received
func WithReplyHandler(fn func(mailbox.Message)) Option {
	return func(n *Negotiator) { n.onReply = fn }
}

// New creates a negotiator for conv
func New(conv Conversation, opts ...Option) *Negotiator {
	n := &Negotiator{
		conv:         conv,
		replyTimeout: 2 * time.Minute,
		attempts:     3,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("component", "negotiator")
	return n
}

// Run sends each turn in order. A turn expecting a reply waits up to the
// configured attempts; when all of them time out the turn is counted as
// unanswered and the script moves on. The conversation is ended when Run
// returns, also on cancellation, in which case the partial result is
// returned with the context error.
func (n *Negotiator) Run(ctx context.Context, script *Script) (*Result, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}
	defer n.conv.EndConversation()

	result := &Result{}
	for i, turn := range script.Turns {
		sent := n.conv.SendFromAutomated(turn.Say)
		n.logger.Info("turn sent", "turn", i+1, "id", sent.ID)

		exchange := Exchange{Sent: sent}
		if turn.ExpectReply {
			reply, timeouts, err := n.awaitReply(ctx, i+1)
			exchange.Reply = reply
			exchange.Timeouts = timeouts
			result.Timeouts += timeouts
			if err != nil {
				result.Exchanges = append(result.Exchanges, exchange)
				return result, err
			}
			if reply != nil {
				result.Replies++
			} else {
				result.Unanswered++
			}
		}
		result.Exchanges = append(result.Exchanges, exchange)
	}

	n.logger.Info("script finished",
		"script", script.Name,
		"replies", result.Replies,
		"timeouts", result.Timeouts,
		"unanswered", result.Unanswered)
	return result, nil
}

func (n *Negotiator) awaitReply(ctx context.Context, turn int) (*mailbox.Message, int, error) {
	timeouts := 0
	for attempt := 1; attempt <= n.attempts; attempt++ {
		reply, err := n.conv.WaitForManualReply(ctx, n.replyTimeout)
		if err == nil {
			if n.onReply != nil {
				n.onReply(reply)
			}
			return &reply, timeouts, nil
		}
		if !mailbox.IsTimeout(err) {
			return nil, timeouts, fmt.Errorf("turn %d: %w", turn, err)
		}

		timeouts++
		n.logger.Warn("reply timed out", "turn", turn, "attempt", attempt, "of", n.attempts)
	}
	return nil, timeouts, nil
}
