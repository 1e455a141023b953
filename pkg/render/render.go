// Package render formats command output for terminals. When the destination
// is not a terminal the plain text is written unchanged so output stays
// pipeable.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	minWrapWidth = 20
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))

	statusColors = map[string]lipgloss.Color{
		"PENDING":     lipgloss.Color("#e0af68"),
		"IN_PROGRESS": lipgloss.Color("#7dcfff"),
		"COMPLETED":   lipgloss.Color("#9ece6a"),
		"CANCELLED":   lipgloss.Color("#f7768e"),
	}
)

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of w, or a default when unknown.
func Width(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// Markdown writes md to w, styled with glamour when w is a terminal.
func Markdown(w io.Writer, md string) error {
	if !IsTerminal(w) {
		_, err := io.WriteString(w, md)
		return err
	}

	out, err := RenderMarkdown(md, Width(w))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// RenderMarkdown styles md with the dark glamour theme wrapped to width.
func RenderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(max(width-4, minWrapWidth)),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render(md)
}

// Status colors a status label. Unknown labels are returned as is.
func Status(s string) string {
	c, ok := statusColors[s]
	if !ok {
		return s
	}
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

// Table writes rows under headers. Terminals get a bordered lipgloss table;
// anything else gets tab separated lines.
func Table(w io.Writer, headers []string, rows [][]string) error {
	if !IsTerminal(w) {
		_, err := io.WriteString(w, PlainTable(headers, rows))
		return err
	}

	_, err := fmt.Fprintln(w, StyledTable(headers, rows, Width(w)))
	return err
}

// StyledTable renders a bordered table constrained to width.
func StyledTable(headers []string, rows [][]string, width int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		Width(width).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

// PlainTable renders tab separated lines with a header row.
func PlainTable(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(headers, "\t"))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join(r, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}
