package diff

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// UnifiedOptions configures Unified. All fields are optional.
type UnifiedOptions struct {
	// ContextLines around each change. Default: 3
	ContextLines int
	// TabWidth is the number of spaces a tab expands to. Default: 4
	TabWidth int
	// ShowLineNums prefixes lines with their old line number.
	ShowLineNums bool
	// Width truncates long lines. Zero detects the terminal width.
	Width int
}

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")).Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("22"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("52"))
	lineNumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true)
)

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	edits              []edit
}

// Unified renders a styled unified diff of old and newer. It returns "" when
// the inputs are identical.
//
//	fmt.Print(diff.Unified("biz/user.service.ts", "merged", old, merged, nil))
func Unified(oldPath, newPath, old, newer string, opts *UnifiedOptions) string {
	o := UnifiedOptions{ContextLines: 3, TabWidth: 4}
	if opts != nil {
		o = *opts
		if o.ContextLines <= 0 {
			o.ContextLines = 3
		}
		if o.TabWidth <= 0 {
			o.TabWidth = 4
		}
	}
	if o.Width <= 0 {
		o.Width = terminalWidth()
	}

	if strings.IndexByte(old, 0) >= 0 || strings.IndexByte(newer, 0) >= 0 {
		return "Binary files differ\n"
	}
	if old == newer {
		return ""
	}

	a, b := fileLines(old), fileLines(newer)
	if len(a)+len(b) > maxMyersLines {
		return fmt.Sprintf("Files too large for diff (%d and %d lines)\n", len(a), len(b))
	}

	hunks := buildHunks(editScript(a, b), o.ContextLines)
	if len(hunks) == 0 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString(headerStyle.Render("--- "+oldPath) + "\n")
	buf.WriteString(headerStyle.Render("+++ "+newPath) + "\n")
	for _, h := range hunks {
		writeHunk(&buf, h, a, b, o)
	}
	return buf.String()
}

// buildHunks groups changes that are at most 2*ctx unchanged lines apart.
func buildHunks(edits []edit, ctx int) []hunk {
	var changes []int
	for i, e := range edits {
		if e.op != opUnchanged {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	var hunks []hunk
	first, last := changes[0], changes[0]
	emit := func() {
		lo := max(0, first-ctx)
		hi := min(len(edits), last+ctx+1)
		hunks = append(hunks, newHunk(edits[lo:hi]))
	}
	for _, c := range changes[1:] {
		if c-last-1 > 2*ctx {
			emit()
			first = c
		}
		last = c
	}
	emit()
	return hunks
}

func newHunk(edits []edit) hunk {
	h := hunk{edits: edits}
	for _, e := range edits {
		if e.op != opAdded {
			if h.oldCount == 0 {
				h.oldStart = e.oldIdx + 1
			}
			h.oldCount++
		}
		if e.op != opRemoved {
			if h.newCount == 0 {
				h.newStart = e.newIdx + 1
			}
			h.newCount++
		}
	}
	return h
}

func writeHunk(buf *strings.Builder, h hunk, a, b []string, o UnifiedOptions) {
	header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.oldStart, h.oldCount, h.newStart, h.newCount)
	buf.WriteString(hunkStyle.Render(header) + "\n")

	for _, e := range h.edits {
		var line, prefix string
		switch e.op {
		case opAdded:
			line, prefix = b[e.newIdx], "+"
		case opRemoved:
			line, prefix = a[e.oldIdx], "-"
		default:
			line, prefix = a[e.oldIdx], " "
		}

		formatted := prefix + truncate(expandTabs(line, o.TabWidth), o.Width-10)
		switch e.op {
		case opAdded:
			formatted = addedStyle.Render(formatted)
		case opRemoved:
			formatted = removedStyle.Render(formatted)
		}

		if o.ShowLineNums {
			num := "    "
			if e.oldIdx >= 0 {
				num = fmt.Sprintf("%4d", e.oldIdx+1)
			}
			formatted = lineNumStyle.Render(num) + " " + formatted
		}
		buf.WriteString(formatted + "\n")
	}
}

// fileLines splits s into lines, ignoring the final newline.
func fileLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func expandTabs(s string, width int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var buf strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := width - col%width
			buf.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		buf.WriteRune(r)
		col++
	}
	return buf.String()
}

func truncate(s string, width int) string {
	if width <= 0 {
		width = 80
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	if width < 3 {
		return "..."[:width]
	}
	return string([]rune(s)[:width-3]) + "..."
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
