package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("white")).Bold(true)
)

var menuChoices = []struct {
	label  string
	choice Choice
}{
	{"Show diff and decide", ShowDiff},
	{"Keep (leave the biz file as it is)", Keep},
	{"Apply (write the merged content, with backup)", Apply},
	{"Cancel review", Cancel},
}

type menuModel struct {
	path     string
	current  int
	merged   int
	cursor   int
	selected *Choice
}

func newMenuModel(path, current, merged string) menuModel {
	return menuModel{
		path:    path,
		current: lineCount(current),
		merged:  lineCount(merged),
	}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menuChoices)-1 {
			m.cursor++
		}
	case "enter":
		c := menuChoices[m.cursor].choice
		m.selected = &c
		return m, tea.Quit
	}
	return m, nil
}

func (m menuModel) View() string {
	var b strings.Builder

	b.WriteString(warningStyle.Render("⚠️  Merge needs review: ") + titleStyle.Render(m.path) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("    Current: %d lines    Merged: %d lines", m.current, m.merged)) + "\n\n")
	b.WriteString(mutedStyle.Render("    [↑/↓] Navigate    [Enter] Select    [q] Cancel") + "\n\n")

	for i, c := range menuChoices {
		if m.cursor == i {
			b.WriteString("    " + selectedStyle.Render("> "+c.label) + "\n")
		} else {
			b.WriteString("      " + c.label + "\n")
		}
	}
	return b.String()
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
