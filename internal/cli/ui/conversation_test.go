package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aki/parley/internal/core/mailbox"
	"github.com/aki/parley/internal/core/transcript"
)

func testMessages() []mailbox.Message {
	ts := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	return []mailbox.Message{
		{ID: "1", Text: "I was charged twice", Origin: mailbox.OriginAutomated, Timestamp: ts},
		{ID: "2", Text: "Let me check that", Origin: mailbox.OriginManual, Timestamp: ts.Add(time.Minute)},
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)

	p.PrintHistory(nil)
	if !strings.Contains(buf.String(), "[No conversation history yet]") {
		t.Errorf("empty history output = %q", buf.String())
	}

	buf.Reset()
	p.PrintHistory(testMessages())
	out := buf.String()
	for _, want := range []string{
		"Conversation history (2)",
		"[1] AUTOMATED – 2026-03-04 10:00:00",
		"\n  I was charged twice\n",
		"[2] MANUAL – 2026-03-04 10:01:00",
		"\n  Let me check that\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "   I was charged twice") {
		t.Errorf("message text indented by more than two spaces:\n%s", out)
	}
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, nil).PrintStats(mailbox.Stats{
		Active:             true,
		TotalAutomated:     3,
		TotalManual:        1,
		PendingToManual:    2,
		PendingToAutomated: 0,
		HistoryLen:         4,
	})

	out := buf.String()
	for _, want := range []string{"active", "automated->manual", "manual->automated", "History:", "never"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTranscript(t *testing.T) {
	started := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	ended := started.Add(90 * time.Minute)
	tr := &transcript.Transcript{
		ID:        "conv-9",
		StartedAt: started,
		UpdatedAt: ended,
		EndedAt:   &ended,
		Outcome:   &transcript.Outcome{Result: "success", Resolution: "refunded", Satisfaction: "satisfied"},
		Messages:  testMessages(),
	}

	var buf bytes.Buffer
	NewPrinter(&buf, nil).PrintTranscript(tr)

	out := buf.String()
	for _, want := range []string{"Transcript conv-9", "Ended:", "(1h)", "1 automated, 1 manual", "success – refunded (satisfied)", "[2] MANUAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTranscriptList(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, nil)

	p.PrintTranscriptList(nil)
	if !strings.Contains(buf.String(), "No transcripts found") {
		t.Errorf("empty list output = %q", buf.String())
	}

	buf.Reset()
	p.PrintTranscriptList([]transcript.Summary{
		{ID: "conv-1", StartedAt: time.Now(), UpdatedAt: time.Now(), Messages: 5, Ended: true},
	})
	out := buf.String()
	for _, want := range []string{"Transcripts (1)", "conv-1", "ended", "5"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTimeAt(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-1 * time.Minute), "1 minute ago"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-3 * time.Hour), "3 hours ago"},
		{now.Add(-24 * time.Hour), "1 day ago"},
		{now.Add(-30 * 24 * time.Hour), "2026-04-01 12:00"},
	}
	for _, tt := range tests {
		if got := formatTimeAt(tt.t, now); got != tt.want {
			t.Errorf("formatTimeAt(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 8); got != "hello..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		30 * time.Second: "< 1m",
		5 * time.Minute:  "5m",
		2 * time.Hour:    "2h",
		72 * time.Hour:   "3d",
	}
	for d, want := range tests {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
