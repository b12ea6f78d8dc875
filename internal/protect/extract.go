// Package protect locates hand-written regions in biz files and carries them
// over into freshly rendered base content.
package protect

import (
	"fmt"
	"os"
	"strings"
)

// Markers delimit an explicitly protected region.
type Markers struct {
	Start string `json:"start" yaml:"start" mapstructure:"start"`
	End   string `json:"end" yaml:"end" mapstructure:"end"`
}

// DefaultMarkers are used when no markers are configured.
var DefaultMarkers = Markers{
	Start: "// CUSTOM_CODE_START",
	End:   "// CUSTOM_CODE_END",
}

func (m Markers) orDefault() Markers {
	if m.Start == "" {
		m.Start = DefaultMarkers.Start
	}
	if m.End == "" {
		m.End = DefaultMarkers.End
	}
	return m
}

// Options controls protection and merge behaviour.
type Options struct {
	PreserveCustomCode    bool
	EnableSmartMerge      bool
	BackupBeforeOverwrite bool
	Markers               Markers
}

// DefaultOptions protects custom code, merges and backs up.
func DefaultOptions() Options {
	return Options{
		PreserveCustomCode:    true,
		EnableSmartMerge:      true,
		BackupBeforeOverwrite: true,
		Markers:               DefaultMarkers,
	}
}

// Origin records how a Section was found.
type Origin string

const (
	OriginMarked   Origin = "marked"
	OriginMethod   Origin = "method"
	OriginProperty Origin = "property"
)

// Section is a protected region of a biz file. Lines are 1-based and
// inclusive. For marked sections they exclude the marker lines.
type Section struct {
	Name      string `json:"name"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Content   string `json:"content"`
	Origin    Origin `json:"origin"`
}

// Extract returns the protected sections of content: marked blocks first,
// then inferred methods, then inferred properties. Sections may overlap.
func Extract(content string, markers Markers) []Section {
	markers = markers.orDefault()
	lines := splitLines(content)

	var sections []Section
	blocks, _ := scanMarked(lines, markers)
	for i, b := range blocks {
		name := b.name
		if name == "" {
			name = fmt.Sprintf("custom_section_%d", i+1)
		}
		sections = append(sections, Section{
			Name:      name,
			StartLine: b.start + 2,
			EndLine:   b.end,
			Content:   joinLines(lines[b.start+1 : b.end]),
			Origin:    OriginMarked,
		})
	}

	for _, s := range scanMethods(lines) {
		if isStandardMethod(s.name) {
			continue
		}
		sections = append(sections, Section{
			Name:      "method_" + s.name,
			StartLine: s.start + 1,
			EndLine:   s.end + 1,
			Content:   joinLines(lines[s.start : s.end+1]),
			Origin:    OriginMethod,
		})
	}

	for _, s := range scanProperties(lines) {
		sections = append(sections, Section{
			Name:      "property_" + s.name,
			StartLine: s.start + 1,
			EndLine:   s.end + 1,
			Content:   lines[s.start],
			Origin:    OriginProperty,
		})
	}

	return sections
}

// HasCustomCode reports whether content shows any sign of hand-written code.
// It fires on the start marker, on any non-standard method, on more than
// three import lines, or on any typed property.
func HasCustomCode(content string, markers Markers) bool {
	markers = markers.orDefault()
	if strings.Contains(content, markers.Start) {
		return true
	}

	lines := splitLines(content)
	for _, s := range scanMethods(lines) {
		if !isStandardMethod(s.name) {
			return true
		}
	}
	if countImportLines(lines) > 3 {
		return true
	}
	return len(scanProperties(lines)) > 0
}

// HasUnclosedMarker reports whether a start marker opens a block that no
// end marker closes. Such a block is never extracted, so replacing the file
// would drop its text.
func HasUnclosedMarker(content string, markers Markers) bool {
	_, unclosed := scanMarked(splitLines(content), markers.orDefault())
	return unclosed
}

// ShouldProtect reports whether the biz file at path must go through merge
// instead of being replaced. A file that exists but cannot be read is
// protected.
func ShouldProtect(path string, opts Options) bool {
	if !opts.PreserveCustomCode {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return !os.IsNotExist(err)
	}
	content := string(data)
	return len(Extract(content, opts.Markers)) > 0 || HasCustomCode(content, opts.Markers)
}
