package protect

import (
	"fmt"
	"strings"

	"github.com/simonhull/firebird-suite/nest/internal/conflict"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/model"
)

// Input is everything a merge needs for one biz file.
type Input struct {
	// Path of the biz file; used for backups and messages.
	Path        string
	BaseContent string
	BizContent  string
	BizExists   bool
	Sections    []Section
}

// Result is the outcome of a merge.
//
// When Success is false the caller must leave the biz file untouched.
// Content then holds the best-effort merge for manual review, or the
// original biz content when the merge itself failed.
type Result struct {
	Success    bool
	Merged     bool
	Content    string
	Conflicts  []model.CodeConflict
	Warnings   []string
	BackupPath string
}

// Engine merges protected sections into new base content.
type Engine struct {
	opts     Options
	resolver *conflict.Resolver
	backup   Backuper
	log      logger.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithResolver sets the conflict resolver.
func WithResolver(r *conflict.Resolver) EngineOption {
	return func(e *Engine) { e.resolver = r }
}

// WithBackuper replaces the file backup implementation.
func WithBackuper(b Backuper) EngineOption {
	return func(e *Engine) { e.backup = b }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a merge engine.
func NewEngine(opts Options, options ...EngineOption) *Engine {
	opts.Markers = opts.Markers.orDefault()
	e := &Engine{
		opts:     opts,
		resolver: &conflict.Resolver{},
		backup:   FileBackup{},
		log:      logger.Default(),
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Options returns the engine's options.
func (e *Engine) Options() Options {
	return e.opts
}

// Merge combines in.BaseContent with in.Sections. A panic inside the
// heuristics is recovered and reported as a failed merge that keeps the
// original biz content.
func (e *Engine) Merge(in Input) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("merge panicked", logger.F("path", in.Path), logger.F("panic", r))
			res = Result{
				Content:    in.BizContent,
				Warnings:   append(res.Warnings, fmt.Sprintf("merge of %s failed: %v; biz file kept", in.Path, r)),
				BackupPath: res.BackupPath,
			}
		}
	}()

	if !in.BizExists {
		return Result{Success: true, Content: in.BaseContent}
	}
	if len(in.Sections) == 0 {
		return Result{Success: true, Content: in.BaseContent}
	}

	if e.opts.BackupBeforeOverwrite && in.Path != "" {
		path, err := e.backup.Backup(in.Path)
		if err != nil {
			e.log.Warn("backup failed", logger.F("path", in.Path), logger.Err(err))
			return Result{
				Content:  in.BizContent,
				Warnings: []string{fmt.Sprintf("backup of %s failed: %v; biz file kept", in.Path, err)},
			}
		}
		res.BackupPath = path
		e.log.Debug("backed up biz file", logger.F("path", in.Path), logger.F("backup", path))
	}

	if !e.opts.EnableSmartMerge {
		res.Success = true
		res.Content = in.BizContent
		res.Warnings = append(res.Warnings, fmt.Sprintf("smart merge disabled; kept %s as is", in.Path))
		return res
	}

	content := in.BaseContent
	placed := true
	for _, s := range in.Sections {
		var (
			ok bool
			c  *model.CodeConflict
		)
		content, ok, c = e.place(content, s)
		if c != nil {
			res.Conflicts = append(res.Conflicts, *c)
		}
		if !ok {
			placed = false
			res.Warnings = append(res.Warnings, fmt.Sprintf("section %s of %s could not be placed", s.Name, in.Path))
		}
	}

	content, importConflicts := mergeImports(content, in.BizContent)
	for i := range importConflicts {
		e.resolver.Assign(&importConflicts[i])
	}
	res.Conflicts = append(res.Conflicts, importConflicts...)

	res.Success = placed
	res.Merged = true
	res.Content = content
	return res
}

// place carries one section into content. It returns false when the section
// could not be placed and any conflict met on the way.
func (e *Engine) place(content string, s Section) (string, bool, *model.CodeConflict) {
	switch s.Origin {
	case OriginMarked:
		if out, found := e.fillMarked(content, s); found {
			return out, true, nil
		}
	case OriginMethod, OriginProperty:
		if s.Content != "" && strings.Contains(content, s.Content) {
			e.log.Debug("section already present", logger.F("section", s.Name))
			return content, true, nil
		}
		if out, ok, c, found := e.replaceNamed(content, s); found {
			return out, ok, c
		}
	}

	out, ok := e.insertBeforeClose(content, s)
	if !ok {
		return content, false, &model.CodeConflict{
			Category:    categoryOf(s.Origin),
			SectionName: s.Name,
			BizContent:  s.Content,
			Line:        s.StartLine,
			Resolution:  model.ResolutionKeepBiz,
		}
	}
	return out, true, nil
}

// fillMarked replaces the body of a same-named marked block in content.
// Templates may emit empty named blocks as placeholders for custom code.
func (e *Engine) fillMarked(content string, s Section) (string, bool) {
	lines := splitLines(content)
	blocks, _ := scanMarked(lines, e.opts.Markers)
	for _, b := range blocks {
		if b.name != s.Name {
			continue
		}
		if joinLines(lines[b.start+1:b.end]) == s.Content {
			return content, true
		}
		out := make([]string, 0, len(lines))
		out = append(out, lines[:b.start+1]...)
		out = append(out, bodyLines(s.Content)...)
		out = append(out, lines[b.end:]...)
		return joinLines(out), true
	}
	return content, false
}

// replaceNamed handles an inferred method or property whose name content
// already declares with a different body. The resolver decides: KeepBiz
// swaps in the biz version wrapped in markers, anything else leaves the
// section unplaced for manual review.
func (e *Engine) replaceNamed(content string, s Section) (out string, ok bool, c *model.CodeConflict, found bool) {
	lines := splitLines(content)

	var spans []span
	var name string
	if s.Origin == OriginMethod {
		spans = scanMethods(lines)
		name = strings.TrimPrefix(s.Name, "method_")
	} else {
		spans = scanProperties(lines)
		name = strings.TrimPrefix(s.Name, "property_")
	}

	for _, sp := range spans {
		if sp.name != name {
			continue
		}
		cc := &model.CodeConflict{
			Category:    categoryOf(s.Origin),
			SectionName: s.Name,
			BaseContent: joinLines(lines[sp.start : sp.end+1]),
			BizContent:  s.Content,
			Line:        s.StartLine,
		}
		res := e.resolver.Assign(cc)
		if res.Strategy != conflict.KeepBiz {
			return content, false, cc, true
		}

		indent := leadingSpace(lines[sp.start])
		repl := make([]string, 0, len(lines)+2)
		repl = append(repl, lines[:sp.start]...)
		repl = append(repl, indent+e.opts.Markers.Start+" "+s.Name)
		repl = append(repl, bodyLines(s.Content)...)
		repl = append(repl, indent+e.opts.Markers.End)
		repl = append(repl, lines[sp.end+1:]...)
		return joinLines(repl), true, cc, true
	}
	return content, false, nil, false
}

// insertBeforeClose splices s, wrapped in markers, in front of the last line
// that is a lone closing brace.
func (e *Engine) insertBeforeClose(content string, s Section) (string, bool) {
	lines := splitLines(content)
	at := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "}" {
			at = i
			break
		}
	}
	if at < 0 {
		return content, false
	}

	out := make([]string, 0, len(lines)+3)
	out = append(out, lines[:at]...)
	out = append(out, "  "+e.opts.Markers.Start+" "+s.Name)
	out = append(out, bodyLines(s.Content)...)
	out = append(out, "  "+e.opts.Markers.End)
	out = append(out, lines[at:]...)
	return joinLines(out), true
}

func bodyLines(content string) []string {
	if content == "" {
		return nil
	}
	return splitLines(content)
}

func leadingSpace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

func categoryOf(o Origin) model.ConflictCategory {
	switch o {
	case OriginMethod:
		return model.CategoryMethod
	case OriginProperty:
		return model.CategoryProperty
	default:
		return model.CategoryCustomMarked
	}
}
