package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aki/parley/internal/core/mailbox"
)

// Resource URIs
const (
	HistoryResourceURI = "parley://conversation/history"
	StatusResourceURI  = "parley://conversation/status"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		HistoryResourceURI,
		"Conversation History",
		mcp.WithResourceDescription("All messages of the conversation in send order"),
		mcp.WithMIMEType("application/json"),
	), s.handleHistoryResource)

	s.mcpServer.AddResource(mcp.NewResource(
		StatusResourceURI,
		"Conversation Status",
		mcp.WithResourceDescription("Activity flag, totals per side and pending messages per direction"),
		mcp.WithMIMEType("application/json"),
	), s.handleStatusResource)
}

func (s *Server) handleHistoryResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	history := s.conv.History()
	if history == nil {
		history = []mailbox.Message{}
	}
	return jsonResource(request.Params.URI, history)
}

// statusInfo is the JSON shape of the status resource
type statusInfo struct {
	Active             bool   `json:"active"`
	TotalAutomated     int    `json:"totalAutomated"`
	TotalManual        int    `json:"totalManual"`
	PendingToManual    int    `json:"pendingToManual"`
	PendingToAutomated int    `json:"pendingToAutomated"`
	HistoryLength      int    `json:"historyLength"`
	LastActivity       string `json:"lastActivity,omitempty"`
}

func (s *Server) handleStatusResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats := s.conv.Stats()

	info := statusInfo{
		Active:             stats.Active,
		TotalAutomated:     stats.TotalAutomated,
		TotalManual:        stats.TotalManual,
		PendingToManual:    stats.PendingToManual,
		PendingToAutomated: stats.PendingToAutomated,
		HistoryLength:      stats.HistoryLen,
	}
	if !stats.LastActivity.IsZero() {
		info.LastActivity = stats.LastActivity.Format("2006-01-02T15:04:05Z07:00")
	}

	return jsonResource(request.Params.URI, info)
}

func jsonResource(uri string, content interface{}) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
