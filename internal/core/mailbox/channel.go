package mailbox

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// directionalChannel is an unbounded FIFO queue for one direction.
//
// Waiters park on ready, which is closed and replaced on every enqueue so
// that all of them wake. A woken waiter only owns a message if it pops one
// under mu; otherwise it parks again on the new ready channel.
type directionalChannel struct {
	direction Direction

	mu      sync.Mutex
	pending []Message
	ready   chan struct{}
}

func newDirectionalChannel(direction Direction) *directionalChannel {
	return &directionalChannel{
		direction: direction,
		ready:     make(chan struct{}),
	}
}

// enqueue appends msg and wakes every parked waiter. It never blocks.
func (c *directionalChannel) enqueue(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = append(c.pending, msg)
	close(c.ready)
	c.ready = make(chan struct{})
}

// tryDequeue pops the oldest message if there is one. When the queue is
// empty it returns the channel that the next enqueue will close.
func (c *directionalChannel) tryDequeue() (Message, <-chan struct{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return Message{}, c.ready, false
	}

	msg := c.pending[0]
	c.pending[0] = Message{}
	c.pending = c.pending[1:]
	return msg, nil, true
}

// dequeue returns the oldest pending message, parking until one arrives,
// the timeout elapses or ctx is done. A timeout <= 0 waits without deadline.
func (c *directionalChannel) dequeue(ctx context.Context, timeout time.Duration) (Message, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		msg, ready, ok := c.tryDequeue()
		if ok {
			return msg, nil
		}

		select {
		case <-ready:
			// Re-check: another waiter may have taken the message.
		case <-deadline:
			return Message{}, &WaitTimedOutError{Direction: c.direction, Timeout: timeout}
		case <-ctx.Done():
			return Message{}, fmt.Errorf("waiting for %s message: %w", c.direction, ctx.Err())
		}
	}
}

// len returns the number of pending messages
func (c *directionalChannel) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
