// Package mailbox provides the in-process message handoff between the
// automated and manual sides of a conversation.
package mailbox

import (
	"time"
)

// Origin identifies which side of the conversation sent a message
type Origin string

const (
	// OriginAutomated marks messages sent by the automated side (the agent)
	OriginAutomated Origin = "automated"
	// OriginManual marks messages sent by the manual side (the human)
	OriginManual Origin = "manual"
)

// Direction identifies one of the two directional channels
type Direction string

const (
	// DirectionToManual carries automated -> manual messages
	DirectionToManual Direction = "to-manual"
	// DirectionToAutomated carries manual -> automated messages
	DirectionToAutomated Direction = "to-automated"
)

// String returns a human readable form such as "automated->manual"
func (d Direction) String() string {
	switch d {
	case DirectionToManual:
		return "automated->manual"
	case DirectionToAutomated:
		return "manual->automated"
	default:
		return string(d)
	}
}

// Message is a single immutable conversation entry
type Message struct {
	// ID uniquely identifies the message
	ID string `json:"id" yaml:"id"`
	// Text is the message body; empty text is valid
	Text string `json:"text" yaml:"text"`
	// Timestamp is when the message was sent
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	// Origin is the side that sent the message
	Origin Origin `json:"origin" yaml:"origin"`
}

// Direction returns the channel a message with this origin travels on
func (m Message) Direction() Direction {
	if m.Origin == OriginManual {
		return DirectionToAutomated
	}
	return DirectionToManual
}

// Stats is a point-in-time summary of the mailbox
type Stats struct {
	Active             bool      `json:"active"`
	TotalAutomated     int       `json:"total_automated"`
	TotalManual        int       `json:"total_manual"`
	PendingToManual    int       `json:"pending_to_manual"`
	PendingToAutomated int       `json:"pending_to_automated"`
	HistoryLen         int       `json:"history_len"`
	LastActivity       time.Time `json:"last_activity,omitempty"`
}

// Total returns the number of sends ever made in either direction
func (s Stats) Total() int {
	return s.TotalAutomated + s.TotalManual
}
