// Package tui is a terminal browser over a session: the same engine and windowed renderer as the
// HTTP surface, one row per terminal line.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"sheetview/internal/dataset"
	"sheetview/internal/session"
	"sheetview/internal/window"
)

// chrome is the number of lines around the table body: title, column header, status, help
const chrome = 4

// SessionOptions sizes the renderer for terminal rows
func SessionOptions() session.Options {
	return session.Options{Window: window.Options{EstimateSize: 1, Overscan: 5}}
}

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeFilter
)

// loadedMsg reports the end of a background decode
type loadedMsg struct {
	result *session.UploadResult
	err    error
}

// Model is the bubbletea model of the browser
type Model struct {
	sess *session.Session

	pendingName string
	pendingData []byte
	loading     bool

	keys     keyMap
	help     help.Model
	search   textinput.Model
	filter   textinput.Model
	mode     mode
	showHelp bool

	width     int
	height    int
	cursorRow int
	cursorCol int
	colOffset int
	offset    int

	win    session.Window
	status string
	err    error
}

// New creates a browser over sess
func New(sess *session.Session) Model {
	search := textinput.New()
	search.Placeholder = "search all visible columns"
	search.Prompt = "/ "

	filter := textinput.New()
	filter.Placeholder = "text, or min..max"
	filter.Prompt = "filter: "

	m := Model{
		sess:   sess,
		keys:   defaultKeyMap(),
		help:   help.New(),
		search: search,
		filter: filter,
		width:  80,
		height: 24,
	}
	m.refresh()
	return m
}

// WithFile makes the browser decode a file on start
func (m Model) WithFile(name string, data []byte) Model {
	m.pendingName = name
	m.pendingData = data
	m.loading = true
	return m
}

func (m Model) Init() tea.Cmd {
	if !m.loading {
		return nil
	}
	sess, name, data := m.sess, m.pendingName, m.pendingData
	return func() tea.Msg {
		res, err := sess.Upload(context.Background(), name, data)
		return loadedMsg{result: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case loadedMsg:
		m.loading = false
		m.pendingData = nil
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("could not read %s: %v", m.pendingName, msg.err)
		} else {
			m.err = nil
			m.status = fmt.Sprintf("%s: header on row %d, %d records", msg.result.FileName, msg.result.HeaderRow+1, msg.result.Total)
		}
		m.cursorRow, m.cursorCol, m.colOffset, m.offset = 0, 0, 0, 0
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeFilter:
			return m.updateFilter(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Apply), key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	prev := m.search.Value()
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != prev {
		m.sess.SetSearchTerm(m.search.Value())
		m.cursorRow, m.offset = 0, 0
		m.refresh()
	}
	return m, cmd
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.filter.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Apply):
		m.mode = modeBrowse
		m.filter.Blur()
		column := m.currentColumn()
		if column == "" {
			return m, nil
		}
		if err := m.sess.SetFilter(column, dataset.ParseFilterExpr(m.filter.Value())); err != nil {
			m.status = err.Error()
		} else {
			m.status = ""
		}
		m.cursorRow, m.offset = 0, 0
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := m.bodyHeight()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-page)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(page)
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-m.win.Count)
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(m.win.Count)
	case key.Matches(msg, m.keys.Left):
		if m.cursorCol > 0 {
			m.cursorCol--
		}
	case key.Matches(msg, m.keys.Right):
		if m.cursorCol < len(m.win.Columns)-1 {
			m.cursorCol++
		}
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Filter):
		if m.currentColumn() == "" {
			return m, nil
		}
		m.mode = modeFilter
		m.filter.SetValue("")
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.ClearFilter):
		m.sess.ClearFilters()
		m.status = "filters cleared"
	case key.Matches(msg, m.keys.Sort):
		if column := m.currentColumn(); column != "" {
			sv, err := m.sess.ToggleSort(column)
			if err != nil {
				m.status = err.Error()
			} else {
				m.status = fmt.Sprintf("sorted by %s %s", sv.Key, sv.Direction)
			}
		}
	case key.Matches(msg, m.keys.Hide):
		if column := m.currentColumn(); column != "" && len(m.win.Columns) > 1 {
			if err := m.sess.ToggleColumn(column); err != nil {
				m.status = err.Error()
			}
		}
	case key.Matches(msg, m.keys.ShowAll):
		all := m.sess.State().Fields
		if _, err := m.sess.ApplyQuery(session.QueryUpdate{Visible: all}); err != nil {
			m.status = err.Error()
		}
	case key.Matches(msg, m.keys.Profile):
		if column := m.currentColumn(); column != "" {
			p, err := m.sess.Profile(column)
			if err != nil {
				m.status = err.Error()
			} else {
				m.status = describeProfile(p)
			}
		}
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	m.cursorRow += delta
	if m.cursorRow >= m.win.Count {
		m.cursorRow = m.win.Count - 1
	}
	if m.cursorRow < 0 {
		m.cursorRow = 0
	}
	page := m.bodyHeight()
	if m.cursorRow < m.offset {
		m.offset = m.cursorRow
	}
	if m.cursorRow >= m.offset+page {
		m.offset = m.cursorRow - page + 1
	}
}

// refresh pulls the window for the current scroll position from the session
func (m *Model) refresh() {
	m.win = m.sess.Window(m.offset, m.bodyHeight())
	m.offset = m.win.Offset
	if m.cursorRow >= m.win.Count {
		m.cursorRow = max(m.win.Count-1, 0)
	}
	if m.cursorCol >= len(m.win.Columns) {
		m.cursorCol = max(len(m.win.Columns)-1, 0)
	}
	if m.cursorCol < m.colOffset {
		m.colOffset = m.cursorCol
	}
}

func (m Model) bodyHeight() int {
	h := m.height - chrome
	if m.showHelp {
		h -= 4
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) currentColumn() string {
	if m.cursorCol < 0 || m.cursorCol >= len(m.win.Columns) {
		return ""
	}
	return m.win.Columns[m.cursorCol]
}

// CursorRow returns the index of the selected row in the visible sequence
func (m Model) CursorRow() int { return m.cursorRow }

// CurrentColumn returns the selected column
func (m Model) CurrentColumn() string { return m.currentColumn() }

// Err returns the last load error
func (m Model) Err() error { return m.err }

func describeProfile(p dataset.Profile) string {
	if p.Numeric && p.Min != nil && p.Max != nil {
		mean := 0.0
		if p.Mean != nil {
			mean = *p.Mean
		}
		return fmt.Sprintf("%s: min %g, max %g, mean %.2f, %d blank", p.Field, *p.Min, *p.Max, mean, p.Blank)
	}
	more := ""
	if p.Truncated {
		more = "+"
	}
	return fmt.Sprintf("%s: %d%s distinct values, %d blank", p.Field, len(p.Options), more, p.Blank)
}
