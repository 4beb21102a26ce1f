package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aki/parley/internal/core/mailbox"
	"github.com/aki/parley/internal/core/transcript"
)

// TimestampLayout is used for message timestamps
const TimestampLayout = "2006-01-02 15:04:05"

// RoleLabel returns the upper-case role shown for an origin
func RoleLabel(origin mailbox.Origin) string {
	return strings.ToUpper(string(origin))
}

func styledRole(origin mailbox.Origin) string {
	label := RoleLabel(origin)
	if origin == mailbox.OriginManual {
		return ManualStyle.Render(label)
	}
	return AutomatedStyle.Render(label)
}

// PrintHistory prints a numbered conversation log
func (p *Printer) PrintHistory(history []mailbox.Message) {
	if len(history) == 0 {
		p.Line("\n[No conversation history yet]\n")
		return
	}

	p.PrintSectionHeader(ConversationIcon, "Conversation history", len(history))
	for i, msg := range history {
		p.Line("\n[%d] %s – %s", i+1, styledRole(msg.Origin), msg.Timestamp.Format(TimestampLayout))
		p.Line("  %s", msg.Text)
	}
	p.Line("")
}

// PrintMessage prints a single incoming message
func (p *Printer) PrintMessage(msg mailbox.Message) {
	icon := AutomatedIcon
	if msg.Origin == mailbox.OriginManual {
		icon = ManualIcon
	}
	p.Line("\n%s  %s: %s\n", icon, styledRole(msg.Origin), msg.Text)
}

// PrintStats prints queue depths and totals per direction
func (p *Printer) PrintStats(stats mailbox.Stats) {
	state := "inactive"
	if stats.Active {
		state = "active"
	}

	p.Line("\n%s Conversation %s", ConversationIcon, BoldStyle.Render(state))

	tbl := NewTableTo(p.out, "DIRECTION", "SENT", "PENDING")
	tbl.AddRow(mailbox.DirectionToManual.String(), stats.TotalAutomated, stats.PendingToManual)
	tbl.AddRow(mailbox.DirectionToAutomated.String(), stats.TotalManual, stats.PendingToAutomated)
	tbl.Print()

	last := "never"
	if !stats.LastActivity.IsZero() {
		last = FormatTime(stats.LastActivity)
	}
	p.Line("%s %d   %s %s\n",
		DimStyle.Render("History:"), stats.HistoryLen,
		DimStyle.Render("Last activity:"), last)
}

// PrintTranscriptList prints a table of transcript summaries
func (p *Printer) PrintTranscriptList(summaries []transcript.Summary) {
	if len(summaries) == 0 {
		p.Info("No transcripts found")
		return
	}

	tbl := NewTableTo(p.out, "ID", "STARTED", "MESSAGES", "STATUS", "UPDATED")
	for _, s := range summaries {
		status := "open"
		if s.Ended {
			status = "ended"
		}
		tbl.AddRow(s.ID, s.StartedAt.Format(TimestampLayout), strconv.Itoa(s.Messages), status, FormatTime(s.UpdatedAt))
	}

	p.PrintSectionHeader(TranscriptIcon, "Transcripts", len(summaries))
	tbl.Print()
	p.Line("")
}

// PrintTranscript prints a transcript header followed by its messages
func (p *Printer) PrintTranscript(t *transcript.Transcript) {
	p.Line("%s Transcript %s", TranscriptIcon, BoldStyle.Render(t.ID))
	p.Line("   %s %s", DimStyle.Render("Started:"), t.StartedAt.Format(TimestampLayout))
	if t.EndedAt != nil {
		p.Line("   %s %s (%s)", DimStyle.Render("Ended:"), t.EndedAt.Format(TimestampLayout),
			FormatDuration(t.EndedAt.Sub(t.StartedAt)))
	}
	p.Line("   %s %d automated, %d manual",
		DimStyle.Render("Messages:"), t.Count(mailbox.OriginAutomated), t.Count(mailbox.OriginManual))
	if o := t.Outcome; o != nil {
		p.Line("   %s %s – %s (%s)", DimStyle.Render("Outcome:"), o.Result, o.Resolution, o.Satisfaction)
	}
	p.PrintHistory(t.Messages)
}

// FormatWait renders a wait timeout for prompts
func FormatWait(d time.Duration) string {
	if d <= 0 {
		return "no timeout"
	}
	return fmt.Sprintf("timeout %s", d)
}
