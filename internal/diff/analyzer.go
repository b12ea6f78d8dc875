// Package diff compares a base file with its biz counterpart.
//
// The default comparison is positional: line i of one side is compared with
// line i of the other. It is cheap and deterministic but a single inserted
// line marks every following line as modified. Myers is available as an
// opt-in upgrade behind the same Result.
package diff

import (
	"regexp"
	"strings"
)

// Algorithm selects how lines are aligned.
type Algorithm string

const (
	Positional Algorithm = "positional"
	Myers      Algorithm = "myers"
)

// ParseAlgorithm returns the algorithm named s, defaulting to Positional.
func ParseAlgorithm(s string) Algorithm {
	if strings.EqualFold(strings.TrimSpace(s), string(Myers)) {
		return Myers
	}
	return Positional
}

// ChangeType classifies a line.
type ChangeType string

const (
	Added     ChangeType = "added"
	Removed   ChangeType = "removed"
	Modified  ChangeType = "modified"
	Unchanged ChangeType = "unchanged"
)

// Context holds the lines around a LineDiff.
type Context struct {
	Before []string `json:"before"`
	After  []string `json:"after"`
}

// LineDiff describes one line of the comparison. LineNumber is 1-based and
// refers to the biz side, except for Removed lines which refer to base.
type LineDiff struct {
	Type       ChangeType `json:"type"`
	LineNumber int        `json:"lineNumber"`
	Content    string     `json:"content"`
	OldContent string     `json:"oldContent,omitempty"`
	Context    Context    `json:"context"`
}

// Summary lists structural differences found by scanning both texts.
type Summary struct {
	AddedMethods    []string `json:"addedMethods"`
	RemovedMethods  []string `json:"removedMethods"`
	ModifiedMethods []string `json:"modifiedMethods"`
	AddedImports    []string `json:"addedImports"`
	RemovedImports  []string `json:"removedImports"`
}

// Result is the outcome of Analyze.
type Result struct {
	HasChanges    bool       `json:"hasChanges"`
	TotalChanges  int        `json:"totalChanges"`
	AddedLines    int        `json:"addedLines"`
	RemovedLines  int        `json:"removedLines"`
	ModifiedLines int        `json:"modifiedLines"`
	Diffs         []LineDiff `json:"diffs"`
	Summary       Summary    `json:"summary"`
}

// Options configures Analyze.
type Options struct {
	Algorithm Algorithm
	// ContextLines around each line; 2 when zero.
	ContextLines int
}

const defaultContextLines = 2

// maxMyersLines bounds the Myers trace. Larger inputs fall back to the
// positional comparison.
const maxMyersLines = 10000

// Analyze compares base with biz.
func Analyze(base, biz string, opts Options) *Result {
	if opts.ContextLines <= 0 {
		opts.ContextLines = defaultContextLines
	}

	baseLines := strings.Split(base, "\n")
	bizLines := strings.Split(biz, "\n")

	var diffs []LineDiff
	if opts.Algorithm == Myers && len(baseLines)+len(bizLines) <= maxMyersLines {
		diffs = alignMyers(baseLines, bizLines, opts.ContextLines)
	} else {
		diffs = alignPositional(baseLines, bizLines, opts.ContextLines)
	}

	r := &Result{Diffs: diffs}
	for _, d := range diffs {
		switch d.Type {
		case Added:
			r.AddedLines++
		case Removed:
			r.RemovedLines++
		case Modified:
			r.ModifiedLines++
		}
	}
	r.TotalChanges = r.AddedLines + r.RemovedLines + r.ModifiedLines
	r.HasChanges = r.TotalChanges > 0
	r.Summary = summarize(diffs, base, biz)
	return r
}

func alignPositional(base, biz []string, ctx int) []LineDiff {
	n := max(len(base), len(biz))
	diffs := make([]LineDiff, 0, n)

	for i := 0; i < n; i++ {
		switch {
		case i >= len(base):
			diffs = append(diffs, LineDiff{Type: Added, LineNumber: i + 1, Content: biz[i], Context: contextOf(biz, i, ctx)})
		case i >= len(biz):
			diffs = append(diffs, LineDiff{Type: Removed, LineNumber: i + 1, Content: base[i], Context: contextOf(base, i, ctx)})
		case base[i] != biz[i]:
			diffs = append(diffs, LineDiff{Type: Modified, LineNumber: i + 1, Content: biz[i], OldContent: base[i], Context: contextOf(biz, i, ctx)})
		default:
			diffs = append(diffs, LineDiff{Type: Unchanged, LineNumber: i + 1, Content: biz[i], Context: contextOf(biz, i, ctx)})
		}
	}
	return diffs
}

// alignMyers aligns with a shortest edit script. Within a run of changes the
// removed and added lines are paired in order as Modified; leftovers stay
// Removed or Added.
func alignMyers(base, biz []string, ctx int) []LineDiff {
	edits := editScript(base, biz)
	diffs := make([]LineDiff, 0, len(edits))

	var removed, added []edit
	flush := func() {
		pairs := min(len(removed), len(added))
		for i := 0; i < pairs; i++ {
			r, a := removed[i], added[i]
			diffs = append(diffs, LineDiff{
				Type: Modified, LineNumber: a.newIdx + 1, Content: biz[a.newIdx], OldContent: base[r.oldIdx],
				Context: contextOf(biz, a.newIdx, ctx),
			})
		}
		for _, r := range removed[pairs:] {
			diffs = append(diffs, LineDiff{Type: Removed, LineNumber: r.oldIdx + 1, Content: base[r.oldIdx], Context: contextOf(base, r.oldIdx, ctx)})
		}
		for _, a := range added[pairs:] {
			diffs = append(diffs, LineDiff{Type: Added, LineNumber: a.newIdx + 1, Content: biz[a.newIdx], Context: contextOf(biz, a.newIdx, ctx)})
		}
		removed, added = removed[:0], added[:0]
	}

	for _, e := range edits {
		switch e.op {
		case opRemoved:
			removed = append(removed, e)
		case opAdded:
			added = append(added, e)
		default:
			flush()
			diffs = append(diffs, LineDiff{Type: Unchanged, LineNumber: e.newIdx + 1, Content: biz[e.newIdx], Context: contextOf(biz, e.newIdx, ctx)})
		}
	}
	flush()
	return diffs
}

func contextOf(lines []string, i, size int) Context {
	lo := max(0, i-size)
	hi := min(len(lines), i+1+size)
	return Context{
		Before: append([]string{}, lines[lo:i]...),
		After:  append([]string{}, lines[i+1:hi]...),
	}
}

var (
	methodDecl  = regexp.MustCompile(`(?:(?:public|private|protected)\s+)?(?:async\s+)?([A-Za-z_$][\w$]*)\s*\([^)]*\)\s*(?::\s*[^{;=()]+)?\{`)
	importDecl  = regexp.MustCompile(`(?m)^import\s+.*from\s+['"]([^'"]*)['"];?\s*$`)
	notAMethods = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true, "catch": true,
		"function": true, "return": true, "with": true,
	}
)

func methodsIn(content string) []string {
	var names []string
	for _, m := range methodDecl.FindAllStringSubmatch(content, -1) {
		if !notAMethods[m[1]] {
			names = append(names, m[1])
		}
	}
	return unique(names)
}

func importsIn(content string) []string {
	var mods []string
	for _, m := range importDecl.FindAllStringSubmatch(content, -1) {
		mods = append(mods, m[1])
	}
	return unique(mods)
}

func summarize(diffs []LineDiff, base, biz string) Summary {
	baseMethods, bizMethods := methodsIn(base), methodsIn(biz)
	baseImports, bizImports := importsIn(base), importsIn(biz)

	var modified []string
	for _, d := range diffs {
		if d.Type != Modified {
			continue
		}
		if m := methodDecl.FindStringSubmatch(d.Content); m != nil && !notAMethods[m[1]] {
			modified = append(modified, m[1])
		}
	}

	return Summary{
		AddedMethods:    subtract(bizMethods, baseMethods),
		RemovedMethods:  subtract(baseMethods, bizMethods),
		ModifiedMethods: unique(modified),
		AddedImports:    subtract(bizImports, baseImports),
		RemovedImports:  subtract(baseImports, bizImports),
	}
}

// unique keeps the first occurrence of each value. It never returns nil.
func unique(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := []string{}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// subtract returns the values of a not present in b, in a's order.
func subtract(a, b []string) []string {
	drop := make(map[string]bool, len(b))
	for _, v := range b {
		drop[v] = true
	}
	out := []string{}
	for _, v := range a {
		if !drop[v] {
			out = append(out, v)
		}
	}
	return out
}
