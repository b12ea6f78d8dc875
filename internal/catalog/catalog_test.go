package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
)

const shopCatalog = `project:
  id: p1
  name: Shop
  code: shop
entities:
  - id: e1
    name: User
    code: user
    fields:
      - name: ID
        code: id
        type: STRING
        primary_key: true
      - name: Email
        code: email
        type: string
        unique: true
        length: "120"
  - id: e2
    name: Order Item
    code: orderItem
templates:
  - id: t1
    name: Service
    category: SERVICE
    content: "export class {{ pascalCase .entity.code }}Service {}"
  - id: t2
    name: Controller
    category: CONTROLLER
    path: templates/controller.tmpl
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "controller.tmpl"), []byte("controller body"), 0o644))
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeCatalog(t, shopCatalog))
	require.NoError(t, err)

	assert.Equal(t, "Shop", c.Project.Name)
	require.Len(t, c.Entities, 2)
	assert.True(t, c.Entities[0].Fields[0].IsPrimaryKey)
	assert.True(t, c.Entities[0].Fields[1].IsUnique)
	assert.Equal(t, "120", c.Entities[0].Fields[1].Length)
	assert.Equal(t, "controller body", c.Templates[1].Content, "path is read relative to the catalog")
}

func TestResolve(t *testing.T) {
	c, err := Load(writeCatalog(t, shopCatalog))
	require.NoError(t, err)
	ctx := context.Background()

	entities, missing, err := c.ResolveEntities(ctx, []string{"e2", "nope", "e1"})
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "e2", entities[0].ID)
	assert.Equal(t, "e1", entities[1].ID)
	assert.Equal(t, []string{"nope"}, missing)

	templates, missing, err := c.ResolveTemplates(ctx, []string{"t1"})
	require.NoError(t, err)
	assert.Len(t, templates, 1)
	assert.Empty(t, missing)

	p, err := c.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "shop", p.Code)

	_, err = c.GetProject(ctx, "p2")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestParseBytesErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name: "missing ids",
			content: `project:
  name: Shop
entities:
  - name: User
    code: user
`,
			want: []string{"project id is required", "entities.0.id (line 4): entity id is required"},
		},
		{
			name: "duplicate entity",
			content: `project:
  id: p1
entities:
  - id: e1
    code: a
  - id: e1
    code: b
`,
			want: []string{"entities.1.id (line 6): duplicate entity id 'e1'"},
		},
		{
			name: "content and path",
			content: `project:
  id: p1
templates:
  - id: t1
    content: x
    path: y
`,
			want: []string{"set either content or path"},
		},
		{
			name: "missing template file",
			content: `project:
  id: p1
templates:
  - id: t1
    path: missing.tmpl
`,
			want: []string{"templates.0.path (line 5)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.content), t.TempDir())
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestValidationErrorsFormat(t *testing.T) {
	errs := ValidationErrors{
		{Field: "project.id", Message: "project id is required", Line: 1},
		{Field: "entities.0.code", Message: "entity code is required"},
	}

	assert.Equal(t, "found 2 catalog errors:\n"+
		"  1. catalog error at project.id (line 1): project id is required\n"+
		"  2. catalog error at entities.0.code: entity code is required\n", errs.Error())
}

func TestParseBytesRejectsEmpty(t *testing.T) {
	_, err := ParseBytes(nil, ".")
	assert.Error(t, err)
}
