package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	headerHeight = 1
	footerHeight = 1
)

// Pager is a full-screen, scrollable view of a diff.
type Pager struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
}

// NewPager creates a pager. It sizes itself on the first WindowSizeMsg.
func NewPager(title, content string) Pager {
	return Pager{title: title, content: content}
}

func (p Pager) Init() tea.Cmd {
	return nil
}

func (p Pager) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return p, tea.Quit
		case "g", "home":
			p.viewport.GotoTop()
			return p, nil
		case "G", "end":
			p.viewport.GotoBottom()
			return p, nil
		}

	case tea.WindowSizeMsg:
		height := max(1, msg.Height-headerHeight-footerHeight)
		if !p.ready {
			p.viewport = viewport.New(msg.Width, height)
			p.viewport.SetContent(p.content)
			p.ready = true
		} else {
			p.viewport.Width = msg.Width
			p.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p Pager) View() string {
	if !p.ready {
		return "Initializing..."
	}

	title := fmt.Sprintf("─ Diff: %s ", p.title)
	header := borderStyle.Render(title + strings.Repeat("─", max(0, p.viewport.Width-lipgloss.Width(title))))

	info := fmt.Sprintf(" %3.f%%  [↑/↓] Scroll  [q] Back ", p.viewport.ScrollPercent()*100)
	footer := borderStyle.Render(strings.Repeat("─", max(0, p.viewport.Width-lipgloss.Width(info))) + info)

	return header + "\n" + p.viewport.View() + "\n" + footer
}
