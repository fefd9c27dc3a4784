package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	maxColumnWidth = 24
	minColumnWidth = 4
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	cursorStyle   = lipgloss.NewStyle().Reverse(true).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	emptyStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.titleLine())
	b.WriteByte('\n')

	if m.loading {
		b.WriteString(emptyStyle.Render(fmt.Sprintf("Reading %s...", m.pendingName)))
		b.WriteByte('\n')
		return b.String()
	}

	if m.win.Empty {
		b.WriteString(emptyStyle.Render("No records to show."))
		b.WriteByte('\n')
	} else {
		b.WriteString(m.renderTable())
	}

	b.WriteString(m.statusLine())
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) titleLine() string {
	st := m.sess.State()
	title := "sheetview"
	if st.Source != "" {
		title += " - " + st.Source
	}
	parts := []string{fmt.Sprintf("%d of %d records", st.Count, st.Total)}
	if st.Sort.Key != "" {
		parts = append(parts, fmt.Sprintf("sort %s %s", st.Sort.Key, st.Sort.Direction))
	}
	if len(st.Filters) > 0 {
		parts = append(parts, fmt.Sprintf("%d filters", len(st.Filters)))
	}
	if st.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", st.Search))
	}
	return titleStyle.Render(title) + "  " + statusStyle.Render(strings.Join(parts, " | "))
}

func (m Model) statusLine() string {
	switch m.mode {
	case modeSearch:
		return m.search.View()
	case modeFilter:
		return fmt.Sprintf("[%s] %s", m.currentColumn(), m.filter.View())
	}
	if m.err != nil {
		return errorStyle.Render(m.status)
	}
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	if m.win.Count > 0 {
		return statusStyle.Render(fmt.Sprintf("row %d/%d  column %s", m.cursorRow+1, m.win.Count, m.currentColumn()))
	}
	return ""
}

// renderTable draws the column header and the rows inside the viewport. The window carries
// overscan rows on both sides; only the ones on screen are drawn.
func (m Model) renderTable() string {
	widths := m.columnWidths()
	first, last := m.visibleColumnSpan(widths)

	var b strings.Builder
	header := make([]string, 0, last-first)
	for c := first; c < last; c++ {
		header = append(header, pad(m.win.Columns[c], widths[c]))
	}
	b.WriteString(headerStyle.Render(strings.Join(header, " ")))
	b.WriteByte('\n')

	page := m.bodyHeight()
	drawn := 0
	for _, row := range m.win.Rows {
		if row.Index < m.offset || row.Index >= m.offset+page {
			continue
		}
		cells := make([]string, 0, last-first)
		for c := first; c < last; c++ {
			text := pad(row.Record.Get(m.win.Columns[c]).String(), widths[c])
			if row.Index == m.cursorRow && c == m.cursorCol {
				text = cursorStyle.Render(text)
			}
			cells = append(cells, text)
		}
		line := strings.Join(cells, " ")
		if row.Index == m.cursorRow {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
		drawn++
	}
	for ; drawn < page; drawn++ {
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) columnWidths() []int {
	widths := make([]int, len(m.win.Columns))
	for i, c := range m.win.Columns {
		widths[i] = lipgloss.Width(c)
	}
	for _, row := range m.win.Rows {
		for i, c := range m.win.Columns {
			if w := lipgloss.Width(row.Record.Get(c).String()); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		widths[i] = min(max(widths[i], minColumnWidth), maxColumnWidth)
	}
	return widths
}

// visibleColumnSpan picks the columns that fit the terminal, starting at the scroll column and
// sliding right until the cursor column is on screen
func (m Model) visibleColumnSpan(widths []int) (first, last int) {
	first = min(m.colOffset, len(widths))
	for {
		last = first
		used := 0
		for last < len(widths) && (last == first || used+widths[last]+1 <= m.width) {
			used += widths[last] + 1
			last++
		}
		if m.cursorCol < last || first >= m.cursorCol {
			return first, last
		}
		first++
	}
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width <= 1 {
			return string(r[:width])
		}
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}
