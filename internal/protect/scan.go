package protect

import (
	"regexp"
	"strings"
)

// The scanners in this file are heuristic. They read TypeScript-flavoured
// source line by line without building a syntax tree. Explicit markers are
// the reliable protection path; method and property inference is a safety
// net that prefers protecting too much over losing user code.

const typeExpr = `[\w$.]+(?:<[^;=]*>)?(?:\[\])*`

var (
	// methodPattern matches a class method header that opens its body on the
	// same line, with an optional return type annotation.
	methodPattern = regexp.MustCompile(
		`^\s*(?:(?:public|private|protected|static|override|readonly)\s+)*(?:async\s+)?(?:[gs]et\s+)?` +
			`([A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*\([^)]*\)\s*(?::\s*[^{;=]+)?\{`)

	// propertyPattern matches a single-line typed property declaration. The
	// type may be generic, an array or a union.
	propertyPattern = regexp.MustCompile(
		`^\s*(?:(?:public|private|protected|static|readonly|declare)\s+)*([A-Za-z_$][\w$]*)[?!]?:\s*` +
			typeExpr + `(?:\s*\|\s*` + typeExpr + `)*(?:\s*=\s*.*)?;?\s*$`)

	// importLinePattern matches a complete single-line import statement.
	importLinePattern = regexp.MustCompile(`^import\s+.*from\s+['"]([^'"]*)['"];?\s*$`)
)

// StandardMethods are generated by every base template and never count as
// custom code on their own.
var StandardMethods = []string{"constructor", "findAll", "findOne", "create", "update", "remove"}

// controlKeywords look like method headers to methodPattern but are not.
var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "else": true, "do": true, "try": true,
	"with": true, "new": true, "typeof": true, "await": true,
}

func isStandardMethod(name string) bool {
	for _, m := range StandardMethods {
		if m == name {
			return true
		}
	}
	return false
}

// span is a located region of lines, 0-based and inclusive.
type span struct {
	name  string
	start int
	end   int
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// methodName returns the declared method name on line, or "" if the line is
// not a method header.
func methodName(line string) string {
	m := methodPattern.FindStringSubmatch(line)
	if m == nil || controlKeywords[m[1]] {
		return ""
	}
	return m[1]
}

// propertyName returns the declared property name on line, or "".
func propertyName(line string) string {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*") {
		return ""
	}
	m := propertyPattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// scanMethods finds every method header and the line on which its body closes.
func scanMethods(lines []string) []span {
	var spans []span
	for i, line := range lines {
		name := methodName(line)
		if name == "" {
			continue
		}
		spans = append(spans, span{name: name, start: i, end: blockEnd(lines, i)})
	}
	return spans
}

// scanProperties finds typed property declarations.
func scanProperties(lines []string) []span {
	var spans []span
	for i, line := range lines {
		if name := propertyName(line); name != "" {
			spans = append(spans, span{name: name, start: i, end: i})
		}
	}
	return spans
}

// blockEnd returns the line where the brace depth opened at line start
// returns to zero. Braces inside string literals, template literals and
// comments are ignored. When the block never closes the last line is returned.
func blockEnd(lines []string, start int) int {
	var lx braceLexer
	depth := 0
	opened := false

	for i := start; i < len(lines); i++ {
		lx.lineComment = false
		for _, r := range lines[i] {
			switch lx.step(r) {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return i
				}
			}
		}
	}
	return len(lines) - 1
}

// braceLexer tracks just enough lexical state to tell code braces apart from
// braces in strings and comments.
type braceLexer struct {
	quote        rune // ', ", ` or 0
	escaped      bool
	lineComment  bool
	blockComment bool
	prev         rune
}

// step consumes r and returns r if it is a structural brace, 0 otherwise.
func (lx *braceLexer) step(r rune) rune {
	prev := lx.prev
	lx.prev = r

	switch {
	case lx.lineComment:
		return 0
	case lx.blockComment:
		if prev == '*' && r == '/' {
			lx.blockComment = false
			lx.prev = 0
		}
		return 0
	case lx.quote != 0:
		if lx.escaped {
			lx.escaped = false
			return 0
		}
		if r == '\\' {
			lx.escaped = true
			return 0
		}
		if r == lx.quote {
			lx.quote = 0
		}
		return 0
	}

	switch r {
	case '\'', '"', '`':
		lx.quote = r
	case '/':
		if prev == '/' {
			lx.lineComment = true
		}
	case '*':
		if prev == '/' {
			lx.blockComment = true
			lx.prev = 0
		}
	case '{', '}':
		return r
	}
	return 0
}

// markedBlock is a region delimited by start/end markers.
type markedBlock struct {
	name string
	// start and end are the marker lines themselves.
	start int
	end   int
}

// scanMarked finds closed marker blocks. A start marker seen while a block is
// already open is treated as content of that block; nesting is not supported.
// Blocks still open at end of input are dropped and reported as unclosed.
func scanMarked(lines []string, m Markers) (blocks []markedBlock, unclosed bool) {
	open := -1
	name := ""

	for i, line := range lines {
		switch {
		case open < 0 && strings.Contains(line, m.Start):
			open = i
			name = sectionName(line, m.Start)
		case open >= 0 && strings.Contains(line, m.End) && !strings.Contains(line, m.Start):
			blocks = append(blocks, markedBlock{name: name, start: open, end: i})
			open = -1
			name = ""
		}
	}
	return blocks, open >= 0
}

// sectionName reads the first token after the start marker.
func sectionName(line, startMarker string) string {
	idx := strings.Index(line, startMarker)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(line[idx+len(startMarker):])
	rest = strings.TrimSuffix(rest, "*/")
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// countImportLines counts single-line import statements anywhere in lines.
func countImportLines(lines []string) int {
	n := 0
	for _, line := range lines {
		if importLinePattern.MatchString(line) {
			n++
		}
	}
	return n
}
