package mailbox

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/parley/internal/core/logger"
)

func TestMailbox_HistoryOrderAcrossDirections(t *testing.T) {
	mb := New()

	mb.SendFromAutomated("a")
	mb.SendFromManual("b")
	mb.SendFromAutomated("c")

	history := mb.History()
	require.Len(t, history, 3)

	var texts []string
	var origins []Origin
	for _, msg := range history {
		texts = append(texts, msg.Text)
		origins = append(origins, msg.Origin)
	}
	assert.Equal(t, []string{"a", "b", "c"}, texts)
	assert.Equal(t, []Origin{OriginAutomated, OriginManual, OriginAutomated}, origins)

	// Consuming messages does not change history
	ctx := context.Background()
	_, err := mb.WaitForAutomatedMessage(ctx, time.Second)
	require.NoError(t, err)
	_, err = mb.WaitForManualReply(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, history, mb.History())
}

func TestMailbox_HistoryIsSnapshot(t *testing.T) {
	mb := New()
	mb.SendFromAutomated("first")

	first := mb.History()
	second := mb.History()
	assert.Equal(t, first, second)

	first[0].Text = "mutated"
	assert.Equal(t, "first", mb.History()[0].Text)

	mb.SendFromManual("second")
	assert.Len(t, first, 1)
	assert.Len(t, mb.History(), 2)
}

func TestMailbox_WaitForManualReplyTimesOut(t *testing.T) {
	mb := New()
	mb.SendFromAutomated("Hello")

	start := time.Now()
	_, err := mb.WaitForManualReply(context.Background(), 50*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)

	var timeoutErr *WaitTimedOutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, DirectionToAutomated, timeoutErr.Direction)

	history := mb.History()
	require.Len(t, history, 1)
	assert.Equal(t, "Hello", history[0].Text)
}

func TestMailbox_WaiterReceivesLaterSend(t *testing.T) {
	mb := New()

	type result struct {
		msg Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := mb.WaitForAutomatedMessage(context.Background(), 5*time.Second)
		done <- result{msg, err}
	}()

	time.Sleep(10 * time.Millisecond)
	start := time.Now()
	mb.SendFromAutomated("ping")

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "ping", r.msg.Text)
		assert.Equal(t, OriginAutomated, r.msg.Origin)
		assert.Less(t, time.Since(start), time.Second)
	case <-time.After(6 * time.Second):
		t.Fatal("waiter never returned")
	}
}

func TestMailbox_DirectionsAreIndependent(t *testing.T) {
	mb := New()
	ctx := context.Background()

	mb.SendFromAutomated("for the human")

	// The automated side must not see its own message
	_, err := mb.WaitForManualReply(ctx, 20*time.Millisecond)
	assert.True(t, IsTimeout(err))

	msg, err := mb.WaitForAutomatedMessage(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "for the human", msg.Text)
}

func TestMailbox_EmptyTextAccepted(t *testing.T) {
	mb := New()
	sent := mb.SendFromManual("")

	msg, err := mb.WaitForManualReply(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, sent, msg)
	assert.Equal(t, "", msg.Text)
}

func TestMailbox_ConversationFlag(t *testing.T) {
	mb := New()
	assert.False(t, mb.IsActive())

	mb.SendFromManual("hi")
	assert.True(t, mb.IsActive())

	mb.EndConversation()
	assert.False(t, mb.IsActive())

	// Ending does not gate sends or waits
	mb.SendFromAutomated("still here")
	assert.True(t, mb.IsActive())
	assert.Len(t, mb.History(), 2)

	msg, err := mb.WaitForManualReply(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)
}

func TestMailbox_StatsAndPending(t *testing.T) {
	clock := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mb := New(WithClock(func() time.Time { return clock }))

	mb.SendFromAutomated("one")
	mb.SendFromAutomated("two")
	mb.SendFromManual("three")

	assert.Equal(t, 2, mb.Pending(DirectionToManual))
	assert.Equal(t, 1, mb.Pending(DirectionToAutomated))
	assert.Equal(t, 0, mb.Pending(Direction("bogus")))

	stats := mb.Stats()
	assert.True(t, stats.Active)
	assert.Equal(t, 2, stats.TotalAutomated)
	assert.Equal(t, 1, stats.TotalManual)
	assert.Equal(t, 3, stats.Total())
	assert.Equal(t, 2, stats.PendingToManual)
	assert.Equal(t, 1, stats.PendingToAutomated)
	assert.Equal(t, 3, stats.HistoryLen)
	assert.Equal(t, clock, stats.LastActivity)

	for _, msg := range mb.History() {
		assert.Equal(t, clock, msg.Timestamp)
		assert.NotEmpty(t, msg.ID)
	}
}

func TestMailbox_Observer(t *testing.T) {
	var mu sync.Mutex
	var observed []string

	var mb *Mailbox
	mb = New(WithObserver(func(msg Message) {
		// Observers run outside the lock and may read the mailbox
		n := len(mb.History())
		mu.Lock()
		observed = append(observed, msg.Text)
		mu.Unlock()
		assert.GreaterOrEqual(t, n, 1)
	}))

	mb.SendFromAutomated("x")
	mb.SendFromManual("y")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"x", "y"}, observed)
}

func TestMailbox_ObserverSeesHistoryOrderUnderConcurrentSends(t *testing.T) {
	const senders, perSender = 8, 50

	var mu sync.Mutex
	var observed []string
	mb := New(WithObserver(func(msg Message) {
		mu.Lock()
		observed = append(observed, msg.ID)
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				text := strconv.Itoa(s) + "-" + strconv.Itoa(i)
				if i%2 == 0 {
					mb.SendFromAutomated(text)
				} else {
					mb.SendFromManual(text)
				}
			}
		}(s)
	}
	wg.Wait()

	history := mb.History()
	require.Len(t, history, senders*perSender)
	want := make([]string, len(history))
	for i, msg := range history {
		want[i] = msg.ID
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, observed)
}

func TestMailbox_ObserverMaySend(t *testing.T) {
	var observed []string
	var mb *Mailbox
	mb = New(WithObserver(func(msg Message) {
		observed = append(observed, msg.Text)
		if msg.Text == "question" {
			mb.SendFromManual("auto-ack")
		}
	}))

	mb.SendFromAutomated("question")

	assert.Equal(t, []string{"question", "auto-ack"}, observed)
	history := mb.History()
	require.Len(t, history, 2)
	assert.Equal(t, "auto-ack", history[1].Text)
}

func TestMailbox_KeepLastRetention(t *testing.T) {
	mb := New(WithRetention(KeepLast(2)))

	mb.SendFromAutomated("1")
	mb.SendFromManual("2")
	mb.SendFromAutomated("3")

	history := mb.History()
	require.Len(t, history, 2)
	assert.Equal(t, "2", history[0].Text)
	assert.Equal(t, "3", history[1].Text)

	stats := mb.Stats()
	assert.Equal(t, 3, stats.Total())
	assert.Equal(t, 2, stats.HistoryLen)

	// Retention never drops undelivered messages
	assert.Equal(t, 2, mb.Pending(DirectionToManual))
}

func TestMailbox_ConcurrentSendersPreserveHistory(t *testing.T) {
	mb := New()
	const perSide = 100

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range perSide {
			mb.SendFromAutomated("auto")
		}
	}()
	go func() {
		defer wg.Done()
		for range perSide {
			mb.SendFromManual("manual")
		}
	}()
	wg.Wait()

	history := mb.History()
	assert.Len(t, history, 2*perSide)

	// Each direction drains in the same relative order as history
	ctx := context.Background()
	var autoIDs, manualIDs []string
	for _, msg := range history {
		if msg.Origin == OriginAutomated {
			autoIDs = append(autoIDs, msg.ID)
		} else {
			manualIDs = append(manualIDs, msg.ID)
		}
	}
	for _, want := range autoIDs {
		msg, err := mb.WaitForAutomatedMessage(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, msg.ID)
	}
	for _, want := range manualIDs {
		msg, err := mb.WaitForManualReply(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, msg.ID)
	}
}

func TestMailbox_LogsWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelDebug))
	mb := New(WithLogger(l))

	mb.SendFromAutomated("hello")
	_, _ = mb.WaitForManualReply(context.Background(), time.Millisecond)
	mb.EndConversation()

	out := buf.String()
	assert.Contains(t, out, "message sent")
	assert.Contains(t, out, "component=mailbox")
	assert.Contains(t, out, "wait timed out")
	assert.Contains(t, out, "conversation ended")
}
