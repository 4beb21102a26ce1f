package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/parley/internal/core/config"
	"github.com/aki/parley/internal/core/mailbox"
	"github.com/aki/parley/internal/core/transcript"
)

type fakeRecorder struct {
	outcomes []transcript.Outcome
	finished int
	err      error
}

func (f *fakeRecorder) RecordOutcome(ctx context.Context, o transcript.Outcome) error {
	if f.err != nil {
		return f.err
	}
	if err := o.Validate(); err != nil {
		return err
	}
	f.outcomes = append(f.outcomes, o)
	return nil
}

func (f *fakeRecorder) Finish(ctx context.Context) error {
	f.finished++
	return nil
}

func setupTestServer(t *testing.T, opts ...Option) (*Server, *mailbox.Mailbox) {
	t.Helper()
	box := mailbox.New()
	return NewServer(box, "test", opts...), box
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestSendMessage(t *testing.T) {
	s, box := setupTestServer(t)
	ctx := context.Background()

	result, err := s.handleSendMessage(ctx, callRequest("send_message", map[string]interface{}{
		"text": "Hi, I was charged twice",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Message sent")
	assert.Contains(t, resultText(t, result), "'Hi, I was charged twice'")

	msg, err := box.WaitForAutomatedMessage(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Hi, I was charged twice", msg.Text)
	assert.Equal(t, mailbox.OriginAutomated, msg.Origin)

	_, err = s.handleSendMessage(ctx, callRequest("send_message", map[string]interface{}{}))
	require.Error(t, err)
	var suggestErr *ErrorWithSuggestions
	assert.True(t, errors.As(err, &suggestErr))
}

func TestWaitForReply(t *testing.T) {
	ctx := context.Background()

	t.Run("returns reply", func(t *testing.T) {
		s, box := setupTestServer(t)
		box.SendFromManual("How can I help?")

		result, err := s.handleWaitForReply(ctx, callRequest("wait_for_reply", map[string]interface{}{
			"timeout_seconds": float64(1),
		}))
		require.NoError(t, err)
		assert.Equal(t, "Reply: 'How can I help?'", resultText(t, result))
	})

	t.Run("timeout is a normal result", func(t *testing.T) {
		s, box := setupTestServer(t)

		result, err := s.handleWaitForReply(ctx, callRequest("wait_for_reply", map[string]interface{}{
			"timeout_seconds": 0.05,
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, "Timeout: No response after 0.05 seconds", resultText(t, result))

		// A reply sent after the timeout is still delivered later
		box.SendFromManual("sorry, late")
		result, err = s.handleWaitForReply(ctx, callRequest("wait_for_reply", map[string]interface{}{
			"timeout_seconds": float64(1),
		}))
		require.NoError(t, err)
		assert.Equal(t, "Reply: 'sorry, late'", resultText(t, result))
	})

	t.Run("uses default timeout", func(t *testing.T) {
		s, _ := setupTestServer(t, WithDefaultWaitTimeout(20*time.Millisecond))

		result, err := s.handleWaitForReply(ctx, callRequest("wait_for_reply", nil))
		require.NoError(t, err)
		assert.Equal(t, "Timeout: No response after 0.02 seconds", resultText(t, result))
	})

	t.Run("rejects negative timeout", func(t *testing.T) {
		s, _ := setupTestServer(t)

		_, err := s.handleWaitForReply(ctx, callRequest("wait_for_reply", map[string]interface{}{
			"timeout_seconds": float64(-1),
		}))
		assert.ErrorContains(t, err, "invalid timeout_seconds")
	})

	t.Run("canceled context is an error", func(t *testing.T) {
		s, _ := setupTestServer(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.handleWaitForReply(cctx, callRequest("wait_for_reply", map[string]interface{}{
			"timeout_seconds": float64(0),
		}))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSecondsToTimeout(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    time.Duration
		wantErr bool
	}{
		{name: "zero waits without limit", seconds: 0, want: 0},
		{name: "whole seconds", seconds: 2, want: 2 * time.Second},
		{name: "fractional seconds", seconds: 0.25, want: 250 * time.Millisecond},
		{name: "sub-nanosecond rounds up", seconds: 1e-10, want: time.Nanosecond},
		{name: "smallest positive float", seconds: math.SmallestNonzeroFloat64, want: time.Nanosecond},
		{name: "one day allowed", seconds: 86400, want: 24 * time.Hour},
		{name: "above one day", seconds: 86401, wantErr: true},
		{name: "overflowing duration", seconds: 1e20, wantErr: true},
		{name: "infinity", seconds: math.Inf(1), wantErr: true},
		{name: "not a number", seconds: math.NaN(), wantErr: true},
		{name: "negative", seconds: -0.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := secondsToTimeout(tt.seconds)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid timeout_seconds")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWaitForReply_TinyTimeoutExpires(t *testing.T) {
	s, _ := setupTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	result, err := s.handleWaitForReply(ctx, callRequest("wait_for_reply", map[string]interface{}{
		"timeout_seconds": 1e-10,
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Timeout: No response")
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForReply_HugeTimeoutRejected(t *testing.T) {
	s, _ := setupTestServer(t)

	_, err := s.handleWaitForReply(context.Background(), callRequest("wait_for_reply", map[string]interface{}{
		"timeout_seconds": 1e20,
	}))
	assert.ErrorContains(t, err, "invalid timeout_seconds")
}

func TestGetHistory(t *testing.T) {
	s, box := setupTestServer(t)
	ctx := context.Background()

	result, err := s.handleGetHistory(ctx, callRequest("get_history", nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))

	box.SendFromAutomated("one")
	box.SendFromManual("two")

	result, err = s.handleGetHistory(ctx, callRequest("get_history", nil))
	require.NoError(t, err)

	var history []mailbox.Message
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "one", history[0].Text)
	assert.Equal(t, mailbox.OriginManual, history[1].Origin)
}

func TestAnalyzeProgress(t *testing.T) {
	s, box := setupTestServer(t)
	ctx := context.Background()

	result, err := s.handleAnalyzeProgress(ctx, callRequest("analyze_progress", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No conversation history yet")

	_, err = s.handleSendMessage(ctx, callRequest("send_message", map[string]interface{}{"text": "opening"}))
	require.NoError(t, err)
	box.SendFromManual("reply " + strings.Repeat("x", 200))
	for i := range 6 {
		box.SendFromAutomated("follow-up " + string(rune('a'+i)))
	}

	result, err = s.handleAnalyzeProgress(ctx, callRequest("analyze_progress", nil))
	require.NoError(t, err)
	text := resultText(t, result)

	assert.Contains(t, text, "- Total exchanges: 8")
	assert.Contains(t, text, "- Messages from automated side: 7")
	assert.Contains(t, text, "- Messages from manual side: 1")
	assert.Contains(t, text, "- Messages sent via tools: 1")
	assert.Contains(t, text, "- Pending for manual side: 7")
	assert.Contains(t, text, "- Pending for automated side: 1")
	assert.Contains(t, text, "AUTOMATED: follow-up f")
	// Only the last six entries are shown
	assert.NotContains(t, text, "AUTOMATED: opening")
	assert.NotContains(t, text, "reply xxx")
}

func TestEndConversation(t *testing.T) {
	rec := &fakeRecorder{}
	s, box := setupTestServer(t, WithRecorder(rec))
	box.SendFromAutomated("hello")
	require.True(t, box.IsActive())

	result, err := s.handleEndConversation(context.Background(), callRequest("end_conversation", nil))
	require.NoError(t, err)
	assert.Equal(t, "Conversation ended", resultText(t, result))
	assert.False(t, box.IsActive())
	assert.Len(t, box.History(), 1)
	assert.Equal(t, 1, rec.finished)
}

func TestRecordOutcome(t *testing.T) {
	ctx := context.Background()
	args := map[string]interface{}{
		"outcome":      "success",
		"resolution":   "duplicate charge refunded",
		"satisfaction": "satisfied",
	}

	t.Run("without recorder", func(t *testing.T) {
		s, _ := setupTestServer(t)
		_, err := s.handleRecordOutcome(ctx, callRequest("record_outcome", args))
		assert.ErrorContains(t, err, "transcripts are disabled")
	})

	t.Run("records", func(t *testing.T) {
		rec := &fakeRecorder{}
		s, _ := setupTestServer(t, WithRecorder(rec))

		result, err := s.handleRecordOutcome(ctx, callRequest("record_outcome", args))
		require.NoError(t, err)
		assert.Equal(t, "Outcome recorded: success - duplicate charge refunded", resultText(t, result))
		require.Len(t, rec.outcomes, 1)
		assert.Equal(t, "satisfied", rec.outcomes[0].Satisfaction)
	})

	t.Run("invalid value", func(t *testing.T) {
		rec := &fakeRecorder{}
		s, _ := setupTestServer(t, WithRecorder(rec))

		_, err := s.handleRecordOutcome(ctx, callRequest("record_outcome", map[string]interface{}{
			"outcome":      "won",
			"resolution":   "x",
			"satisfaction": "satisfied",
		}))
		assert.ErrorContains(t, err, "invalid outcome")
	})

	t.Run("missing argument", func(t *testing.T) {
		s, _ := setupTestServer(t, WithRecorder(&fakeRecorder{}))
		_, err := s.handleRecordOutcome(ctx, callRequest("record_outcome", map[string]interface{}{"outcome": "success"}))
		assert.ErrorContains(t, err, "invalid")
	})
}

func TestResources(t *testing.T) {
	s, box := setupTestServer(t)
	ctx := context.Background()
	box.SendFromAutomated("hello")

	contents, err := s.handleHistoryResource(ctx, mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: HistoryResourceURI},
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, HistoryResourceURI, text.URI)
	assert.Contains(t, text.Text, `"text": "hello"`)

	contents, err = s.handleStatusResource(ctx, mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: StatusResourceURI},
	})
	require.NoError(t, err)
	text, ok = contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)

	var status statusInfo
	require.NoError(t, json.Unmarshal([]byte(text.Text), &status))
	assert.True(t, status.Active)
	assert.Equal(t, 1, status.TotalAutomated)
	assert.Equal(t, 1, status.PendingToManual)
	assert.NotEmpty(t, status.LastActivity)
}

func TestNegotiatePrompt(t *testing.T) {
	s, _ := setupTestServer(t)
	ctx := context.Background()

	_, err := s.handleNegotiatePrompt(ctx, mcp.GetPromptRequest{})
	assert.ErrorContains(t, err, "issue is required")

	result, err := s.handleNegotiatePrompt(ctx, mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{
			Name:      "negotiate",
			Arguments: map[string]string{"issue": "charged twice", "goal": "full refund"},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	text, ok := result.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Issue: charged twice")
	assert.Contains(t, text.Text, "Goal: full refund")
	assert.Contains(t, text.Text, "wait_for_reply")
}

func TestAuthMiddleware(t *testing.T) {
	s, _ := setupTestServer(t, WithHTTPConfig(config.HTTPConfig{
		Port: 3000,
		Auth: config.AuthConfig{Bearer: "secret"},
	}))
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/message", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Authorized requests reach the MCP handler, which rejects the missing session
	req = httptest.NewRequest(http.MethodPost, "/message", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	s, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestServe_UnsupportedTransport(t *testing.T) {
	s, _ := setupTestServer(t)
	err := s.Serve(context.Background(), "carrier-pigeon")
	assert.ErrorContains(t, err, "unsupported transport")
}

func TestErrorWithSuggestions(t *testing.T) {
	err := TranscriptsDisabledError()
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "transcripts are disabled"))
	assert.Contains(t, msg, "Did you mean to use one of these tools instead?")
	assert.Contains(t, msg, "  - analyze_progress")

	plain := NewErrorWithSuggestions("plain")
	assert.Equal(t, "plain", plain.Error())
}
