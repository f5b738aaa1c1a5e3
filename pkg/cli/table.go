package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors of table output.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Header lipgloss.Style
	Border lipgloss.Style
	Cell   lipgloss.Style
	Empty  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border: lipgloss.NewStyle().Foreground(t.Dim),
		Cell:   lipgloss.NewStyle(),
		Empty:  lipgloss.NewStyle().Foreground(t.Dim).Italic(true),
	}
}

// Table is tabular output. Results that implement Tabler render through it
// when the table format is selected.
type Table struct {
	Header []string
	Rows   [][]string
}

// Tabler is implemented by results with a table rendering.
type Tabler interface {
	Table() Table
}

// Render draws the table with a rounded border:
//
//	╭────┬───────╮
//	│ ID │ LABEL │
//	├────┼───────┤
//	│ 1  │ State │
//	╰────┴───────╯
func (t Table) Render(st Styles) string {
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	bc := st.Border
	rule := func(left, mid, right string) string {
		segs := make([]string, len(widths))
		for i, w := range widths {
			segs[i] = strings.Repeat("─", w+2)
		}
		return bc.Render(left + strings.Join(segs, mid) + right)
	}
	line := func(cells []string, style lipgloss.Style) string {
		var sb strings.Builder
		sb.WriteString(bc.Render("│"))
		for i, w := range widths {
			text := ""
			if i < len(cells) {
				text = cells[i]
			}
			sb.WriteString(" " + style.Render(text) + strings.Repeat(" ", w-lipgloss.Width(text)) + " ")
			sb.WriteString(bc.Render("│"))
		}
		return sb.String()
	}

	lines := []string{rule("╭", "┬", "╮"), line(t.Header, st.Header), rule("├", "┼", "┤")}
	for _, row := range t.Rows {
		lines = append(lines, line(row, st.Cell))
	}
	lines = append(lines, rule("╰", "┴", "╯"))
	if len(t.Rows) == 0 {
		lines = append(lines, st.Empty.Render("(no rows)"))
	}
	return strings.Join(lines, "\n") + "\n"
}
