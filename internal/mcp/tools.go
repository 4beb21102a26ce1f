package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aki/parley/internal/cli/ui"
	"github.com/aki/parley/internal/core/mailbox"
	"github.com/aki/parley/internal/core/transcript"
)

const (
	recentEntries  = 6
	recentMaxRunes = 100

	// maxWaitSeconds bounds timeout_seconds (one day)
	maxWaitSeconds = float64(24 * 60 * 60)
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to the person at the console. Returns immediately; use wait_for_reply to receive the answer."),
		mcp.WithString("text",
			mcp.Description("Message text"),
			mcp.Required(),
		),
	), s.handleSendMessage)

	s.mcpServer.AddTool(mcp.NewTool("wait_for_reply",
		mcp.WithDescription("Wait for the next reply from the console. A timeout is reported as a normal result, not an error."),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Maximum time to wait in seconds, up to 86400 (optional, 0 waits without limit)"),
		),
	), s.handleWaitForReply)

	s.mcpServer.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Get the full conversation history in send order"),
	), s.handleGetHistory)

	s.mcpServer.AddTool(mcp.NewTool("analyze_progress",
		mcp.WithDescription("Summarize the conversation: message counts per side, pending messages and the most recent exchanges"),
	), s.handleAnalyzeProgress)

	s.mcpServer.AddTool(mcp.NewTool("end_conversation",
		mcp.WithDescription("Mark the conversation as ended. History is kept."),
	), s.handleEndConversation)

	s.mcpServer.AddTool(mcp.NewTool("record_outcome",
		mcp.WithDescription("Record the outcome of the negotiation in the transcript"),
		mcp.WithString("outcome",
			mcp.Description("Overall outcome"),
			mcp.Required(),
			mcp.Enum(transcript.OutcomeSuccess, transcript.OutcomePartialSuccess, transcript.OutcomeFailure),
		),
		mcp.WithString("resolution",
			mcp.Description("What was achieved"),
			mcp.Required(),
		),
		mcp.WithString("satisfaction",
			mcp.Description("Customer satisfaction"),
			mcp.Required(),
			mcp.Enum(transcript.SatisfactionSatisfied, transcript.SatisfactionNeutral, transcript.SatisfactionDissatisfied),
		),
	), s.handleRecordOutcome)
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	text, ok := args["text"].(string)
	if !ok {
		return nil, InvalidParameterError("text", "string")
	}

	msg := s.conv.SendFromAutomated(text)
	s.sent.Add(1)

	return textResult("Message sent (id %s): '%s'", msg.ID, text), nil
}

func (s *Server) handleWaitForReply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	timeout := s.waitTimeout
	if raw, present := args["timeout_seconds"]; present {
		seconds, ok := raw.(float64)
		if !ok {
			return nil, InvalidParameterError("timeout_seconds", "non-negative number")
		}
		d, err := secondsToTimeout(seconds)
		if err != nil {
			return nil, err
		}
		timeout = d
	}

	reply, err := s.conv.WaitForManualReply(ctx, timeout)
	if err != nil {
		if mailbox.IsTimeout(err) {
			return textResult("Timeout: No response after %s seconds", formatSeconds(timeout)), nil
		}
		return nil, fmt.Errorf("failed to wait for reply: %w", err)
	}
	s.replies.Add(1)

	return textResult("Reply: '%s'", reply.Text), nil
}

func (s *Server) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	history := s.conv.History()
	if history == nil {
		history = []mailbox.Message{}
	}
	return jsonResult(history)
}

func (s *Server) handleAnalyzeProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	history := s.conv.History()
	if len(history) == 0 {
		return textResult("No conversation history yet. The conversation has not started."), nil
	}

	stats := s.conv.Stats()

	var sb strings.Builder
	sb.WriteString("Conversation progress:\n")
	fmt.Fprintf(&sb, "- Total exchanges: %d\n", len(history))
	fmt.Fprintf(&sb, "- Messages from automated side: %d\n", stats.TotalAutomated)
	fmt.Fprintf(&sb, "- Messages from manual side: %d\n", stats.TotalManual)
	fmt.Fprintf(&sb, "- Messages sent via tools: %d\n", s.sent.Load())
	fmt.Fprintf(&sb, "- Replies received via tools: %d\n", s.replies.Load())
	fmt.Fprintf(&sb, "- Pending for manual side: %d\n", stats.PendingToManual)
	fmt.Fprintf(&sb, "- Pending for automated side: %d\n", stats.PendingToAutomated)
	fmt.Fprintf(&sb, "- Active: %t\n", stats.Active)
	sb.WriteString("\nRecent conversation:\n")

	recent := history
	if len(recent) > recentEntries {
		recent = recent[len(recent)-recentEntries:]
	}
	for _, msg := range recent {
		fmt.Fprintf(&sb, "\n  %s: %s", ui.RoleLabel(msg.Origin), ui.Truncate(msg.Text, recentMaxRunes))
	}

	return textResult("%s", sb.String()), nil
}

func (s *Server) handleEndConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.conv.EndConversation()

	if s.recorder != nil {
		if err := s.recorder.Finish(ctx); err != nil {
			s.logger.Warn("failed to finish transcript", "error", err)
		}
	}

	return textResult("Conversation ended"), nil
}

func (s *Server) handleRecordOutcome(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.recorder == nil {
		return nil, TranscriptsDisabledError()
	}

	args := request.GetArguments()
	outcome := transcript.Outcome{}
	for key, dst := range map[string]*string{
		"outcome":      &outcome.Result,
		"resolution":   &outcome.Resolution,
		"satisfaction": &outcome.Satisfaction,
	} {
		v, ok := args[key].(string)
		if !ok {
			return nil, InvalidParameterError(key, "string")
		}
		*dst = v
	}

	if err := s.recorder.RecordOutcome(ctx, outcome); err != nil {
		return nil, fmt.Errorf("failed to record outcome: %w", err)
	}

	return textResult("Outcome recorded: %s - %s", outcome.Result, outcome.Resolution), nil
}

// jsonResult marshals content into an indented JSON text result
func jsonResult(content interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// secondsToTimeout converts a timeout_seconds argument. Zero keeps the
// "no deadline" meaning; any positive value maps to at least 1ns so that
// rounding never turns a short wait into an unbounded one.
func secondsToTimeout(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || seconds < 0 || seconds > maxWaitSeconds {
		return 0, InvalidParameterError("timeout_seconds",
			fmt.Sprintf("number between 0 and %d", int(maxWaitSeconds)))
	}
	if seconds == 0 {
		return 0, nil
	}
	d := time.Duration(seconds * float64(time.Second))
	if d <= 0 {
		d = time.Nanosecond
	}
	return d, nil
}

// formatSeconds prints a duration in seconds without trailing zeros
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
