// Package render turns template source and a variable context into file
// content. Templates use text/template syntax plus the helpers in FuncMap.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// Renderer parses and executes templates, caching parsed templates by name.
// It is safe for concurrent use.
type Renderer struct {
	funcMap template.FuncMap
	mu      sync.RWMutex
	cache   map[string]cachedTemplate
}

type cachedTemplate struct {
	src  string
	tmpl *template.Template
}

// NewRenderer creates a renderer with the built-in helpers.
func NewRenderer() *Renderer {
	return &Renderer{
		funcMap: FuncMap(),
		cache:   make(map[string]cachedTemplate),
	}
}

// Render executes src with data. name identifies the template in the cache
// and in error messages; a cached template is reused only while its source
// is unchanged. Missing map keys are an error.
func (r *Renderer) Render(name, src string, data any) (string, error) {
	tmpl, err := r.parse(name, src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template '%s': %w", name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) parse(name, src string) (*template.Template, error) {
	r.mu.RLock()
	c, ok := r.cache[name]
	r.mu.RUnlock()
	if ok && c.src == src {
		return c.tmpl, nil
	}

	tmpl, err := template.New(name).Funcs(r.funcMap).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", name, err)
	}

	r.mu.Lock()
	r.cache[name] = cachedTemplate{src: src, tmpl: tmpl}
	r.mu.Unlock()
	return tmpl, nil
}

// ClearCache drops every parsed template.
func (r *Renderer) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]cachedTemplate)
}

// FuncMap returns the helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		// Case conversion
		"pascalCase": PascalCase, // user_profile → UserProfile
		"camelCase":  CamelCase,  // user_profile → userProfile
		"snakeCase":  SnakeCase,  // UserProfile → user_profile
		"kebabCase":  KebabCase,  // UserProfile → user-profile
		"capitalize": Capitalize,
		"plural":     Pluralize,

		"upper":     strings.ToUpper,
		"lower":     strings.ToLower,
		"trim":      strings.TrimSpace,
		"join":      strings.Join,
		"replace":   strings.ReplaceAll,
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
		"quote":     Quote,
		"indent":    Indent,
		"json":      JSON,

		"dict":    Dict,
		"default": Default,
		"add":     func(a, b int) int { return a + b },
	}
}

// Quote wraps s in single quotes, the TypeScript string style.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// Indent prefixes every non-empty line of s with n spaces.
func Indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}

// JSON encodes v with two-space indentation.
func JSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Dict creates a map from alternating key-value pairs.
// Usage in template: {{ template "field" (dict "Field" . "Entity" $.entity) }}
func Dict(values ...any) (map[string]any, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("dict requires an even number of arguments")
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict keys must be strings, got %T at position %d", values[i], i)
		}
		m[key] = values[i+1]
	}
	return m, nil
}

// Default returns def when val is nil, an empty string or an empty collection.
func Default(def, val any) any {
	switch v := val.(type) {
	case nil:
		return def
	case string:
		if v == "" {
			return def
		}
	case []any:
		if len(v) == 0 {
			return def
		}
	case map[string]any:
		if len(v) == 0 {
			return def
		}
	}
	return val
}
