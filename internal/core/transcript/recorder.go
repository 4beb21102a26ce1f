package transcript

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aki/parley/internal/core/logger"
	"github.com/aki/parley/internal/core/mailbox"
	"github.com/aki/parley/internal/filemanager"
)

// Recorder appends every message sent through a mailbox to a transcript
// file. Register Observe with mailbox.WithObserver. Writes happen on a
// background goroutine in the order messages were observed, so a slow or
// locked transcript file never holds up a send.
type Recorder struct {
	id     string
	path   string
	files  *filemanager.Manager[Transcript]
	logger logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	queue   []mailbox.Message
	writing bool
	// idle is closed when the writer has drained the queue
	idle    chan struct{}
	lastErr error
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithID sets the conversation ID instead of a generated one
func WithID(id string) RecorderOption {
	return func(r *Recorder) {
		if id != "" {
			r.id = id
		}
	}
}

// WithRecorderLogger sets the recorder logger
func WithRecorderLogger(l logger.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorderClock overrides the time source for StartedAt/UpdatedAt
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder creates a recorder writing to a new transcript in dir
func NewRecorder(dir string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		id:     uuid.NewString(),
		files:  filemanager.NewManager[Transcript](),
		logger: logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.path = PathFor(dir, r.id)
	r.logger = r.logger.With("component", "transcript", "conversation", r.id)
	return r
}

// ID returns the conversation ID
func (r *Recorder) ID() string { return r.id }

// Path returns the transcript file path
func (r *Recorder) Path() string { return r.path }

// Observe queues msg for writing. It satisfies mailbox.Observer and
// returns without touching the file; failures are logged and reported by
// Flush and Err so that sends never fail because of the export.
func (r *Recorder) Observe(msg mailbox.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queue = append(r.queue, msg)
	if !r.writing {
		r.writing = true
		r.idle = make(chan struct{})
		go r.drain()
	}
}

// Flush waits until every observed message has been written and returns
// the error of the most recent write.
func (r *Recorder) Flush(ctx context.Context) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Finish marks the transcript as ended. A conversation without messages
// has no transcript and nothing is written.
func (r *Recorder) Finish(ctx context.Context) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil
	}
	return r.update(ctx, func(t *Transcript) {
		if t.EndedAt == nil {
			ended := t.UpdatedAt
			t.EndedAt = &ended
		}
	})
}

// RecordOutcome validates o and stores it, replacing any earlier outcome
func (r *Recorder) RecordOutcome(ctx context.Context, o Outcome) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := r.wait(ctx); err != nil {
		return err
	}
	return r.update(ctx, func(t *Transcript) {
		o.RecordedAt = t.UpdatedAt
		t.Outcome = &o
	})
}

// Err is Flush without a deadline
func (r *Recorder) Err() error {
	return r.Flush(context.Background())
}

func (r *Recorder) wait(ctx context.Context) error {
	r.mu.Lock()
	writing, idle := r.writing, r.idle
	r.mu.Unlock()
	if !writing {
		return nil
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain writes queued messages in batches until the queue is empty
func (r *Recorder) drain() {
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		if len(batch) == 0 {
			r.writing = false
			close(r.idle)
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		err := r.update(context.Background(), func(t *Transcript) {
			for _, msg := range batch {
				t.merge(msg)
			}
		})

		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()

		if err != nil {
			r.logger.Warn("failed to record messages", "count", len(batch), "first", batch[0].ID, "error", err)
		}
	}
}

func (r *Recorder) update(ctx context.Context, fn func(t *Transcript)) error {
	return r.files.Update(ctx, r.path, func(t *Transcript) error {
		now := r.now()
		if t.ID == "" {
			t.ID = r.id
			t.StartedAt = now
		}
		t.UpdatedAt = now
		fn(t)
		return nil
	})
}
