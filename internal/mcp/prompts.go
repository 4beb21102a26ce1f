package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"negotiate",
		mcp.WithPromptDescription("Guide an agent through negotiating with the customer service representative at the console"),
		mcp.WithArgument("issue",
			mcp.ArgumentDescription("The customer's issue, e.g. a duplicate charge"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("The outcome the customer wants"),
		),
	), s.handleNegotiatePrompt)
}

func (s *Server) handleNegotiatePrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	issue := strings.TrimSpace(request.Params.Arguments["issue"])
	if issue == "" {
		return nil, fmt.Errorf("issue is required")
	}
	goal := strings.TrimSpace(request.Params.Arguments["goal"])
	if goal == "" {
		goal = "a fair resolution"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are negotiating with customer service on behalf of a customer.\n\n")
	fmt.Fprintf(&sb, "Issue: %s\nGoal: %s\n\n", issue, goal)
	sb.WriteString("Workflow:\n")
	sb.WriteString("1. Open with a clear statement of the issue using send_message\n")
	sb.WriteString("2. Call wait_for_reply after every message. On a timeout, wait again or follow up politely\n")
	sb.WriteString("3. Adapt to each reply and support your case with evidence\n")
	sb.WriteString("4. Use analyze_progress when you need to review where the conversation stands\n")
	sb.WriteString("5. When resolved, call record_outcome and then end_conversation\n\n")
	sb.WriteString("Be professional, clear and persistent.")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Negotiate: %s", issue),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: sb.String(),
				},
			},
		},
	}, nil
}
