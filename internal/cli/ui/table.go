package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/rodaine/table"
)

// NewTable creates a new table with consistent styling
func NewTable(headers ...interface{}) table.Table {
	tbl := table.New(headers...)

	// Header formatters break the layout with lipgloss output, so only the
	// first column is styled
	tbl.WithFirstColumnFormatter(func(format string, vals ...interface{}) string {
		return BoldStyle.Render(fmt.Sprintf(format, vals...))
	})

	tbl.WithPadding(2)

	// lipgloss.Width ignores ANSI codes when measuring cells
	tbl.WithWidthFunc(lipgloss.Width)

	return tbl
}

// NewTableTo creates a table that prints to w
func NewTableTo(w io.Writer, headers ...interface{}) table.Table {
	return NewTable(headers...).WithWriter(w)
}

// PrintSectionHeader prints a consistent section header
func (p *Printer) PrintSectionHeader(icon string, title string, count int) {
	p.Line("\n%s %s (%d)", icon, title, count)
}
