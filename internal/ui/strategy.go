// Package ui holds the interactive terminal pieces of the nest CLI: the
// review menu shown for biz files whose merge was held back, and a
// scrollable diff pager.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/simonhull/firebird-suite/nest/internal/diff"
)

// Choice is the user's decision for a held-back merge.
type Choice int

const (
	ShowDiff Choice = iota
	Keep
	Apply
	Cancel
)

func (c Choice) String() string {
	switch c {
	case ShowDiff:
		return "show-diff"
	case Keep:
		return "keep"
	case Apply:
		return "apply"
	default:
		return "cancel"
	}
}

// inlineLimit is the diff length, in lines, printed without the pager.
const inlineLimit = 20

// Strategy decides what happens to a biz file whose merged content is pending.
type Strategy interface {
	Resolve(path, current, merged string) (Choice, error)
}

// NewStrategy returns the strategy for the generate flags. apply and keep
// are mutually exclusive; with neither the user is asked.
func NewStrategy(apply, keep bool, out io.Writer) (Strategy, error) {
	switch {
	case apply && keep:
		return nil, fmt.Errorf("--apply-pending cannot be combined with --keep-pending")
	case apply:
		return fixed(Apply), nil
	case keep:
		return fixed(Keep), nil
	default:
		if out == nil {
			out = os.Stdout
		}
		return &Interactive{out: out, run: runProgram}, nil
	}
}

type fixed Choice

func (f fixed) Resolve(string, string, string) (Choice, error) {
	return Choice(f), nil
}

// Interactive shows the review menu until the user keeps, applies or
// cancels. Show diff returns to the menu afterwards.
type Interactive struct {
	out io.Writer
	run func(m tea.Model, altScreen bool) (tea.Model, error)
}

// Resolve asks about one file.
func (s *Interactive) Resolve(path, current, merged string) (Choice, error) {
	for {
		final, err := s.run(newMenuModel(path, current, merged), false)
		if err != nil {
			return Cancel, fmt.Errorf("failed to show menu: %w", err)
		}
		selected := final.(menuModel).selected
		if selected == nil {
			return Cancel, nil
		}
		if *selected != ShowDiff {
			return *selected, nil
		}
		if err := s.showDiff(path, current, merged); err != nil {
			return Cancel, err
		}
	}
}

func (s *Interactive) showDiff(path, current, merged string) error {
	text := diff.Unified(path, path+" (merged)", current, merged, &diff.UnifiedOptions{ShowLineNums: true})
	if text == "" {
		fmt.Fprintln(s.out, "no differences")
		return nil
	}
	if strings.Count(text, "\n") <= inlineLimit {
		fmt.Fprint(s.out, text)
		return nil
	}
	if _, err := s.run(NewPager(path, text), true); err != nil {
		return fmt.Errorf("failed to show diff: %w", err)
	}
	return nil
}

// Page shows text in the full-screen pager.
func Page(title, text string) error {
	if _, err := runProgram(NewPager(title, text), true); err != nil {
		return fmt.Errorf("failed to show pager: %w", err)
	}
	return nil
}

func runProgram(m tea.Model, altScreen bool) (tea.Model, error) {
	var opts []tea.ProgramOption
	if altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(m, opts...).Run()
}
