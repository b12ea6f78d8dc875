package protect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/simonhull/firebird-suite/nest/internal/model"
)

var (
	importFromPattern   = regexp.MustCompile(`from\s+(['"])([^'"]+)['"]`)
	importBarePattern   = regexp.MustCompile(`^import\s+(['"])([^'"]+)['"]`)
	importBracesPattern = regexp.MustCompile(`^import\s+(type\s+)?(?:([\w$]+)\s*,\s*)?\{([^}]*)\}\s*from`)
	spacePattern        = regexp.MustCompile(`\s+`)
)

// importStmt is one import statement in a file's leading import block.
type importStmt struct {
	start, end int // 0-based inclusive line range
	text       string
	module     string
	quote      string

	braces      bool
	typeOnly    bool
	defaultName string
	named       []string
}

// importBlock is the leading region of a file made of imports, comments and
// blank lines.
type importBlock struct {
	stmts []importStmt
	// end is the index of the first line after the block.
	end int
}

func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}

func isImportStart(trimmed string) bool {
	return strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "import{")
}

// parseImportBlock reads the leading import block of lines. Import
// statements may span several lines.
func parseImportBlock(lines []string) importBlock {
	var block importBlock

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case trimmed == "" || isCommentLine(trimmed):
			i++
			continue
		case !isImportStart(trimmed):
			block.end = i
			return block
		}

		start := i
		for i < len(lines)-1 && !statementComplete(lines[start:i+1]) && braceOpen(lines[start:i+1]) {
			i++
		}
		block.stmts = append(block.stmts, newImportStmt(lines, start, i))
		i++
	}
	block.end = len(lines)
	return block
}

func statementComplete(lines []string) bool {
	joined := strings.Join(lines, " ")
	return importFromPattern.MatchString(joined) || importBarePattern.MatchString(strings.TrimSpace(joined))
}

// braceOpen reports whether a multi-line named import is still open.
func braceOpen(lines []string) bool {
	joined := strings.Join(lines, " ")
	return strings.Count(joined, "{") > strings.Count(joined, "}")
}

func newImportStmt(lines []string, start, end int) importStmt {
	text := joinLines(lines[start : end+1])
	flat := strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
	s := importStmt{start: start, end: end, text: text}

	if m := importFromPattern.FindStringSubmatch(flat); m != nil {
		s.quote, s.module = m[1], m[2]
	} else if m := importBarePattern.FindStringSubmatch(flat); m != nil {
		s.quote, s.module = m[1], m[2]
	}

	if m := importBracesPattern.FindStringSubmatch(flat); m != nil {
		s.braces = true
		s.typeOnly = m[1] != ""
		s.defaultName = m[2]
		for _, n := range strings.Split(m[3], ",") {
			if n = strings.TrimSpace(n); n != "" {
				s.named = append(s.named, n)
			}
		}
	}
	return s
}

// normalized is the statement with whitespace collapsed and any trailing
// semicolon removed, for equality checks.
func (s importStmt) normalized() string {
	flat := strings.TrimSpace(spacePattern.ReplaceAllString(s.text, " "))
	return strings.TrimSuffix(flat, ";")
}

// compatible reports whether named specifiers of o can be folded into s.
func (s importStmt) compatible(o importStmt) bool {
	return s.braces && o.braces && s.typeOnly == o.typeOnly && s.defaultName == o.defaultName
}

func (s importStmt) render() string {
	var b strings.Builder
	b.WriteString("import ")
	if s.typeOnly {
		b.WriteString("type ")
	}
	if s.defaultName != "" {
		b.WriteString(s.defaultName + ", ")
	}
	fmt.Fprintf(&b, "{ %s } from %s%s%s;", strings.Join(s.named, ", "), s.quote, s.module, s.quote)
	return b.String()
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// mergeImports folds the leading imports of biz into content. Every import of
// content is kept. A biz import of a module content does not import is
// appended after the last import of content. Brace imports of the same module
// get their named specifiers unioned. Any other disagreement keeps the
// content statement and reports an import conflict.
func mergeImports(content, biz string) (string, []model.CodeConflict) {
	bizBlock := parseImportBlock(splitLines(biz))
	if len(bizBlock.stmts) == 0 {
		return content, nil
	}

	lines := splitLines(content)
	block := parseImportBlock(lines)

	byModule := map[string][]int{}
	seen := map[string]bool{}
	for i, s := range block.stmts {
		byModule[s.module] = append(byModule[s.module], i)
		seen[s.normalized()] = true
	}

	replaced := map[int]importStmt{}
	var appended []string
	var conflicts []model.CodeConflict

	for _, bs := range bizBlock.stmts {
		if seen[bs.normalized()] {
			continue
		}
		idxs, ok := byModule[bs.module]
		if !ok {
			appended = append(appended, bs.text)
			seen[bs.normalized()] = true
			continue
		}

		folded := false
		for _, idx := range idxs {
			target, ok := replaced[idx]
			if !ok {
				target = block.stmts[idx]
			}
			if !target.compatible(bs) {
				continue
			}
			folded = true
			grown := false
			for _, n := range bs.named {
				if !containsString(target.named, n) {
					target.named = append(target.named, n)
					grown = true
				}
			}
			if grown {
				replaced[idx] = target
			}
			break
		}
		if folded {
			continue
		}

		conflicts = append(conflicts, model.CodeConflict{
			Category:    model.CategoryImport,
			SectionName: "import_" + bs.module,
			BaseContent: block.stmts[idxs[0]].text,
			BizContent:  bs.text,
			Line:        bs.start + 1,
		})
	}

	if len(replaced) == 0 && len(appended) == 0 {
		return content, conflicts
	}

	out := make([]string, 0, len(lines)+len(appended)+1)
	insertAt, needGap := importInsertPoint(lines, block)
	cursor := 0
	for i, s := range block.stmts {
		if r, ok := replaced[i]; ok {
			out = append(out, lines[cursor:s.start]...)
			out = append(out, r.render())
			cursor = s.end + 1
		}
	}
	out = append(out, lines[cursor:insertAt]...)
	out = append(out, appended...)
	if needGap && len(appended) > 0 && insertAt < len(lines) && strings.TrimSpace(lines[insertAt]) != "" {
		out = append(out, "")
	}
	out = append(out, lines[insertAt:]...)

	return joinLines(out), conflicts
}

// importInsertPoint is the line index new imports go in front of. When
// content has no imports they go after any leading comments and are
// followed by a blank line.
func importInsertPoint(lines []string, block importBlock) (int, bool) {
	if n := len(block.stmts); n > 0 {
		return block.stmts[n-1].end + 1, false
	}
	i := 0
	for i < block.end {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed != "" && !isCommentLine(trimmed) {
			break
		}
		i++
	}
	// Leave trailing blank lines of the header after the new imports.
	for i > 0 && strings.TrimSpace(lines[i-1]) == "" {
		i--
	}
	return i, true
}
