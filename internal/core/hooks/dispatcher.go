package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/aki/parley/internal/core/logger"
	"github.com/aki/parley/internal/core/mailbox"
)

// Dispatcher runs message hooks in the background, in send order, so that
// a slow hook never holds up the mailbox. It is registered as a mailbox
// observer.
type Dispatcher struct {
	executor *Executor
	config   Config
	logger   logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queue  []mailbox.Message
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewDispatcher starts a dispatcher for cfg
func NewDispatcher(executor *Executor, cfg Config, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		executor: executor,
		config:   cfg,
		logger:   log.With("component", "hooks"),
		ctx:      ctx,
		cancel:   cancel,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go d.loop()
	return d
}

// Observe queues the message hooks for msg
func (d *Dispatcher) Observe(msg mailbox.Message) {
	if len(d.config.For(eventFor(msg))) == 0 {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, msg)
	d.mu.Unlock()

	d.signal()
}

// Close runs the hooks still queued, then the conversation_end hooks with
// vars. When ctx expires first, running message hooks are killed and the
// rest are dropped.
func (d *Dispatcher) Close(ctx context.Context, vars map[string]string) error {
	d.mu.Lock()
	alreadyClosed := d.closed
	d.closed = true
	d.mu.Unlock()
	if alreadyClosed {
		return nil
	}

	d.signal()
	select {
	case <-d.done:
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
	d.cancel()

	_, err := d.executor.Execute(ctx, EventConversationEnd, d.config.For(EventConversationEnd), vars)
	return err
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.mu.Unlock()
			<-d.wake
			d.mu.Lock()
		}
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, msg := range batch {
			if d.ctx.Err() != nil {
				return
			}
			event := eventFor(msg)
			if _, err := d.executor.Execute(d.ctx, event, d.config.For(event), MessageVars(msg)); err != nil {
				d.logger.Warn("message hooks aborted", "event", event, "id", msg.ID, "error", err)
			}
		}

		if closed && len(batch) == 0 {
			return
		}
	}
}

func eventFor(msg mailbox.Message) Event {
	if msg.Origin == mailbox.OriginManual {
		return EventMessageToAutomated
	}
	return EventMessageToManual
}

// MessageVars exports msg to a hook environment
func MessageVars(msg mailbox.Message) map[string]string {
	return map[string]string{
		"PARLEY_MESSAGE_ID":     msg.ID,
		"PARLEY_MESSAGE_ORIGIN": string(msg.Origin),
		"PARLEY_MESSAGE_TEXT":   msg.Text,
		"PARLEY_MESSAGE_TIME":   msg.Timestamp.Format(time.RFC3339Nano),
	}
}
