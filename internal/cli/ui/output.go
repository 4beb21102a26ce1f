package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Printer writes styled lines to a writer. The console uses its own Printer
// so that it can run against any io.Writer.
type Printer struct {
	out io.Writer
	err io.Writer
}

// NewPrinter creates a Printer. Errors go to errOut, or out when nil.
func NewPrinter(out, errOut io.Writer) *Printer {
	if errOut == nil {
		errOut = out
	}
	return &Printer{out: out, err: errOut}
}

// Writer returns the main output writer
func (p *Printer) Writer() io.Writer { return p.out }

func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintf(p.err, "%s %s\n", ErrorIcon, ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", SuccessIcon, SuccessStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", InfoIcon, InfoStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Warning(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", WarningIcon, WarningStyle.Render(fmt.Sprintf(format, args...)))
}

// Line prints a formatted line
func (p *Printer) Line(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Raw prints without a trailing newline
func (p *Printer) Raw(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

// Separator prints a rule of the given width
func (p *Printer) Separator(char string, width int) {
	fmt.Fprintln(p.out, DimStyle.Render(strings.Repeat(char, width)))
}

// Stdout is the Printer used outside of commands, e.g. for fatal errors
var Stdout = NewPrinter(os.Stdout, os.Stderr)

// Error prints an error message to stderr
func Error(format string, args ...interface{}) {
	Stdout.Error(format, args...)
}

// FormatDuration formats a duration into a human-readable string
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "< 1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// FormatTime formats a time relative to now for display
func FormatTime(t time.Time) string {
	return formatTimeAt(t, time.Now())
}

func formatTimeAt(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Truncate shortens s to at most n runes, marking the cut with "..."
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
