package ui

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m tea.Model, keys ...string) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = m.Update(key(k))
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestMenuSelection(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want *Choice
	}{
		{name: "first entry", keys: []string{"enter"}, want: ptr(ShowDiff)},
		{name: "keep", keys: []string{"down", "enter"}, want: ptr(Keep)},
		{name: "apply with vim keys", keys: []string{"j", "j", "enter"}, want: ptr(Apply)},
		{name: "cursor stops at bottom", keys: []string{"down", "down", "down", "down", "down", "enter"}, want: ptr(Cancel)},
		{name: "cursor stops at top", keys: []string{"up", "k", "enter"}, want: ptr(ShowDiff)},
		{name: "quit selects nothing", keys: []string{"down", "q"}},
		{name: "escape selects nothing", keys: []string{"esc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := press(newMenuModel("biz/user.service.ts", "a\n", "a\nb\n"), tt.keys...)
			assert.True(t, isQuit(cmd))
			assert.Equal(t, tt.want, m.(menuModel).selected)
		})
	}
}

func TestMenuView(t *testing.T) {
	m, _ := press(newMenuModel("biz/user.service.ts", "a\nb", "a\nb\nc\n"), "down")
	view := m.View()

	assert.Contains(t, view, "biz/user.service.ts")
	assert.Contains(t, view, "Current: 2 lines")
	assert.Contains(t, view, "Merged: 3 lines")
	assert.Contains(t, view, "> Keep")
}

func TestPager(t *testing.T) {
	var lines []string
	for i := 1; i <= 50; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	p := NewPager("user.service.ts", strings.Join(lines, "\n"))
	assert.Equal(t, "Initializing...", p.View())

	m, _ := p.Update(tea.WindowSizeMsg{Width: 60, Height: 12})
	view := m.View()
	assert.Contains(t, view, "Diff: user.service.ts")
	assert.Contains(t, view, "line 1")
	assert.NotContains(t, view, "line 50")

	m, _ = press(m, "G")
	assert.Contains(t, m.View(), "line 50")
	m, _ = press(m, "g")
	assert.Contains(t, m.View(), "line 2")
	assert.NotContains(t, m.View(), "line 50")

	m, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 8})
	assert.Equal(t, 6, m.(Pager).viewport.Height)

	_, cmd := press(m, "q")
	assert.True(t, isQuit(cmd))
}

func TestNewStrategy(t *testing.T) {
	_, err := NewStrategy(true, true, nil)
	assert.Error(t, err)

	s, err := NewStrategy(true, false, nil)
	require.NoError(t, err)
	c, err := s.Resolve("p", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, Apply, c)

	s, err = NewStrategy(false, true, nil)
	require.NoError(t, err)
	c, _ = s.Resolve("p", "a", "b")
	assert.Equal(t, Keep, c)

	s, err = NewStrategy(false, false, nil)
	require.NoError(t, err)
	assert.IsType(t, &Interactive{}, s)
}

// scripted answers menu runs in order and records pager runs.
type scripted struct {
	answers []*Choice
	pagers  int
}

func (s *scripted) run(m tea.Model, _ bool) (tea.Model, error) {
	switch m := m.(type) {
	case menuModel:
		m.selected = s.answers[0]
		s.answers = s.answers[1:]
		return m, nil
	case Pager:
		s.pagers++
		return m, nil
	}
	return m, nil
}

func TestInteractiveShowsDiffThenAsksAgain(t *testing.T) {
	var out bytes.Buffer
	script := &scripted{answers: []*Choice{ptr(ShowDiff), ptr(Apply)}}
	s := &Interactive{out: &out, run: script.run}

	c, err := s.Resolve("biz/user.service.ts", "a\nb\n", "a\nc\n")
	require.NoError(t, err)
	assert.Equal(t, Apply, c)
	assert.Contains(t, out.String(), "@@")
	assert.Zero(t, script.pagers)
	assert.Empty(t, script.answers)
}

func TestInteractiveLongDiffUsesPager(t *testing.T) {
	var current, merged strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&current, "old %d\n", i)
		fmt.Fprintf(&merged, "new %d\n", i)
	}
	var out bytes.Buffer
	script := &scripted{answers: []*Choice{ptr(ShowDiff), ptr(Keep)}}
	s := &Interactive{out: &out, run: script.run}

	c, err := s.Resolve("biz/user.service.ts", current.String(), merged.String())
	require.NoError(t, err)
	assert.Equal(t, Keep, c)
	assert.Equal(t, 1, script.pagers)
	assert.Empty(t, out.String())
}

func TestInteractiveCancelled(t *testing.T) {
	script := &scripted{answers: []*Choice{nil}}
	s := &Interactive{out: &bytes.Buffer{}, run: script.run}

	c, err := s.Resolve("p", "a", "a")
	require.NoError(t, err)
	assert.Equal(t, Cancel, c)
}

func TestInteractiveRunFailure(t *testing.T) {
	s := &Interactive{out: &bytes.Buffer{}, run: func(tea.Model, bool) (tea.Model, error) {
		return nil, fmt.Errorf("no tty")
	}}

	c, err := s.Resolve("p", "a", "b")
	assert.ErrorContains(t, err, "no tty")
	assert.Equal(t, Cancel, c)
}

func TestChoiceString(t *testing.T) {
	assert.Equal(t, "show-diff", ShowDiff.String())
	assert.Equal(t, "keep", Keep.String())
	assert.Equal(t, "apply", Apply.String())
	assert.Equal(t, "cancel", Cancel.String())
}

func ptr(c Choice) *Choice { return &c }
