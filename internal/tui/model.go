// Package tui implements the interactive application picker.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/tw93/appsweep/internal/apps"
)

const defaultVisibleRows = 15

// Model is a multi-select list over the scanned applications, idle-longest
// first, with fuzzy filtering.
type Model struct {
	records []apps.Record
	checked map[int]bool

	// visible holds indices into records, narrowed by the active filter.
	visible []int
	cursor  int

	filtering bool
	filter    textinput.Model

	keys   keyMap
	help   help.Model
	height int

	confirmed bool
	aborted   bool
}

// New builds the picker over records. The record order is preserved, so the
// caller's sort shows through.
func New(records []apps.Record) Model {
	filter := textinput.New()
	filter.Placeholder = "type to filter"
	filter.Prompt = "/ "
	filter.CharLimit = 64

	m := Model{
		records: records,
		checked: make(map[int]bool),
		keys:    defaultKeyMap(),
		help:    help.New(),
		filter:  filter,
		height:  defaultVisibleRows,
	}
	m.applyFilter()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height - 6
		if m.height < 3 {
			m.height = 3
		}
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFiltering(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Confirm):
		m.confirmed = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if len(m.visible) > 0 {
			idx := m.visible[m.cursor]
			m.checked[idx] = !m.checked[idx]
		}
	case key.Matches(msg, m.keys.All):
		for _, idx := range m.visible {
			m.checked[idx] = true
		}
	case key.Matches(msg, m.keys.None):
		for _, idx := range m.visible {
			delete(m.checked, idx)
		}
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filter.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) updateFiltering(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filter.SetValue("")
		m.filter.Blur()
		m.applyFilter()
		return m, nil
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

// applyFilter rebuilds the visible index list from the filter text and keeps
// the cursor in range.
func (m *Model) applyFilter() {
	query := strings.TrimSpace(m.filter.Value())
	if query == "" {
		m.visible = make([]int, len(m.records))
		for i := range m.records {
			m.visible[i] = i
		}
	} else {
		names := make([]string, len(m.records))
		for i, rec := range m.records {
			names[i] = rec.DisplayName
		}
		m.visible = m.visible[:0]
		for _, match := range fuzzy.Find(query, names) {
			m.visible = append(m.visible, match.Index)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Applications (%d, %d selected)", len(m.records), len(m.Selected()))))
	b.WriteString("\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}

	from, to := m.window()
	if len(m.visible) == 0 {
		b.WriteString(dimStyle.Render("  no matches"))
		b.WriteString("\n")
	}
	for i := from; i < to; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderRow(i int) string {
	idx := m.visible[i]
	rec := m.records[idx]

	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("> ")
	}
	box := "[ ]"
	if m.checked[idx] {
		box = checkedStyle.Render("[x]")
	}

	line := fmt.Sprintf("%s%s %-32s %s  %s",
		cursor, box,
		truncate(rec.DisplayName, 32),
		sizeStyle.Render(fmt.Sprintf("%8s", rec.SizeHuman)),
		dimStyle.Render(rec.LastUsedLabel),
	)
	return line
}

// window clips the visible rows around the cursor so long lists scroll.
func (m Model) window() (int, int) {
	if len(m.visible) <= m.height {
		return 0, len(m.visible)
	}
	from := m.cursor - m.height/2
	if from < 0 {
		from = 0
	}
	to := from + m.height
	if to > len(m.visible) {
		to = len(m.visible)
		from = to - m.height
	}
	return from, to
}

// truncate clips to n runes, not bytes, so multibyte names stay valid UTF-8.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}

// Selected returns the checked records in list order. Empty when the user
// aborted or checked nothing.
func (m Model) Selected() []apps.Record {
	if m.aborted {
		return nil
	}
	var out []apps.Record
	for i, rec := range m.records {
		if m.checked[i] {
			out = append(out, rec)
		}
	}
	return out
}

// Aborted reports whether the user quit without confirming.
func (m Model) Aborted() bool { return m.aborted }

// Pick runs the picker and returns the confirmed selection. A quit without
// confirming returns an empty selection and no error.
func Pick(records []apps.Record) ([]apps.Record, error) {
	p := tea.NewProgram(New(records))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(Model)
	if !ok || m.aborted || !m.confirmed {
		return nil, nil
	}
	return m.Selected(), nil
}
