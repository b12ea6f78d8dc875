// Package catalog provides the metadata collaborator backed by catalog.yaml:
// the project, its entities and the templates rendered against them.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
	"github.com/simonhull/firebird-suite/nest/internal/model"
)

// MetadataSource resolves the ids named in a generation request.
type MetadataSource interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	// ResolveEntities returns the entities found, in request order, and the
	// ids that did not resolve.
	ResolveEntities(ctx context.Context, ids []string) ([]model.Entity, []string, error)
	ResolveTemplates(ctx context.Context, ids []string) ([]model.Template, []string, error)
}

// Catalog is a parsed catalog.yaml.
type Catalog struct {
	Project   model.Project    `yaml:"project"`
	Entities  []model.Entity   `yaml:"entities"`
	Templates []model.Template `yaml:"templates"`

	entities  map[string]int
	templates map[string]int
}

// ValidationError is a catalog problem with its YAML location.
type ValidationError struct {
	Field   string // path such as "entities.0.code"
	Message string
	Line    int
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("catalog error at %s (line %d): %s", e.Field, e.Line, e.Message)
	}
	return fmt.Sprintf("catalog error at %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "catalog errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "found %d catalog errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&buf, "  %d. %s\n", i+1, err.Error())
	}
	return buf.String()
}

// Load parses a catalog file. Template paths resolve relative to its directory.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseBytes(data, filepath.Dir(path))
}

// ParseBytes parses catalog YAML. dir is used to resolve template paths.
func ParseBytes(data []byte, dir string) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	lines := make(map[string]int)
	extractLineNumbers(&root, "", lines)

	var c Catalog
	if err := root.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	errs := c.check(lines)
	errs = append(errs, c.loadTemplates(dir, lines)...)
	if len(errs) > 0 {
		return nil, errs
	}

	c.index()
	return &c, nil
}

func (c *Catalog) check(lines map[string]int) ValidationErrors {
	var errs ValidationErrors
	add := func(path, msg string) {
		errs = append(errs, ValidationError{Field: path, Message: msg, Line: lineOf(lines, path)})
	}

	if c.Project.ID == "" {
		add("project.id", "project id is required")
	}

	seen := map[string]bool{}
	for i, e := range c.Entities {
		p := fmt.Sprintf("entities.%d", i)
		switch {
		case e.ID == "":
			add(p+".id", "entity id is required")
		case seen[e.ID]:
			add(p+".id", fmt.Sprintf("duplicate entity id '%s'", e.ID))
		}
		seen[e.ID] = true
		if e.Code == "" {
			add(p+".code", "entity code is required")
		}
		for j, f := range e.Fields {
			if f.Code == "" {
				add(fmt.Sprintf("%s.fields.%d.code", p, j), "field code is required")
			}
		}
	}

	seen = map[string]bool{}
	for i, t := range c.Templates {
		p := fmt.Sprintf("templates.%d", i)
		switch {
		case t.ID == "":
			add(p+".id", "template id is required")
		case seen[t.ID]:
			add(p+".id", fmt.Sprintf("duplicate template id '%s'", t.ID))
		}
		seen[t.ID] = true
		if t.Content != "" && t.Path != "" {
			add(p, "set either content or path, not both")
		}
	}
	return errs
}

func (c *Catalog) loadTemplates(dir string, lines map[string]int) ValidationErrors {
	var errs ValidationErrors
	for i := range c.Templates {
		t := &c.Templates[i]
		if t.Path == "" || t.Content != "" {
			continue
		}
		path := t.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			field := fmt.Sprintf("templates.%d.path", i)
			errs = append(errs, ValidationError{Field: field, Message: err.Error(), Line: lines[field]})
			continue
		}
		t.Content = string(data)
	}
	return errs
}

func (c *Catalog) index() {
	c.entities = make(map[string]int, len(c.Entities))
	for i, e := range c.Entities {
		c.entities[e.ID] = i
	}
	c.templates = make(map[string]int, len(c.Templates))
	for i, t := range c.Templates {
		c.templates[t.ID] = i
	}
}

// GetProject returns the catalog project when id matches it.
func (c *Catalog) GetProject(_ context.Context, id string) (*model.Project, error) {
	if id != c.Project.ID {
		return nil, apperr.Newf(apperr.KindNotFound, "project '%s' not found", id)
	}
	p := c.Project
	return &p, nil
}

// ResolveEntities looks up entities by id.
func (c *Catalog) ResolveEntities(_ context.Context, ids []string) ([]model.Entity, []string, error) {
	var found []model.Entity
	var missing []string
	for _, id := range ids {
		if i, ok := c.entities[id]; ok {
			found = append(found, c.Entities[i])
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

// ResolveTemplates looks up templates by id.
func (c *Catalog) ResolveTemplates(_ context.Context, ids []string) ([]model.Template, []string, error) {
	var found []model.Template
	var missing []string
	for _, id := range ids {
		if i, ok := c.templates[id]; ok {
			found = append(found, c.Templates[i])
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

// extractLineNumbers records the line of every mapping value and sequence
// item under its dotted path.
func extractLineNumbers(node *yaml.Node, path string, lines map[string]int) {
	if node == nil {
		return
	}
	if path != "" {
		lines[path] = node.Line
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) > 0 {
			extractLineNumbers(node.Content[0], path, lines)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			extractLineNumbers(node.Content[i+1], joinPath(path, node.Content[i].Value), lines)
		}
	case yaml.SequenceNode:
		for i, child := range node.Content {
			extractLineNumbers(child, fmt.Sprintf("%s.%d", path, i), lines)
		}
	}
}

// lineOf falls back to the closest parent for keys that are absent.
func lineOf(lines map[string]int, path string) int {
	for path != "" {
		if l, ok := lines[path]; ok {
			return l
		}
		i := strings.LastIndex(path, ".")
		if i < 0 {
			break
		}
		path = path[:i]
	}
	return 0
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return strings.Join([]string{parent, key}, ".")
}
