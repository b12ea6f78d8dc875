package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/nest/internal/model"
)

func TestDecodeRequestJSON(t *testing.T) {
	body := `{
  "projectId": "p1",
  "entityIds": ["e1", "e2"],
  "templateIds": ["t1"],
  "outputPath": "/out",
  "baseOptions": {"generateTests": true, "outputFormat": "javascript"},
  "somethingElse": 42
}`

	cfg, err := DecodeRequest(strings.NewReader(body), Default().RequestDefaults())
	require.NoError(t, err)

	assert.Equal(t, "p1", cfg.ProjectID)
	assert.Equal(t, []string{"e1", "e2"}, cfg.EntityIDs)
	assert.True(t, cfg.BaseOptions.GenerateTests)
	assert.Equal(t, model.FormatJavaScript, cfg.BaseOptions.OutputFormat)
	assert.True(t, cfg.BizOptions.PreserveCustomCode, "omitted option keeps the tool default")
}

func TestDecodeRequestJSONEscapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"escaped slash", `{"projectId":"p1","outputPath":"C:\\out\/x"}`, `C:\out/x`},
		{"unicode escape", `{"projectId":"p1","outputPath":"\u002Fsrv\/gen"}`, "/srv/gen"},
		{"leading blank lines", "\n\n  {\"projectId\":\"p1\",\"outputPath\":\"\\/tmp\"}", "/tmp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := DecodeRequest(strings.NewReader(tt.body), Default().RequestDefaults())
			require.NoError(t, err)
			assert.Equal(t, "p1", cfg.ProjectID)
			assert.Equal(t, tt.want, cfg.OutputPath)
			assert.True(t, cfg.BizOptions.PreserveCustomCode)
		})
	}
}

func TestLoadRequestYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`projectId: p1
entityIds: [e1]
templateIds: [t1]
outputPath: ./generated
bizOptions:
  preserveCustomCode: false
`), 0o644))

	cfg, err := LoadRequest(path, Default().RequestDefaults())
	require.NoError(t, err)

	assert.Equal(t, "./generated", cfg.OutputPath)
	assert.False(t, cfg.BizOptions.PreserveCustomCode, "request wins over the tool default")
	assert.Equal(t, model.FormatTypeScript, cfg.BaseOptions.OutputFormat)
}

func TestDecodeRequestErrors(t *testing.T) {
	_, err := DecodeRequest(strings.NewReader(""), model.GenerationConfig{})
	assert.EqualError(t, err, "request is empty")

	_, err = DecodeRequest(strings.NewReader("  \n\t"), model.GenerationConfig{})
	assert.EqualError(t, err, "request is empty")

	_, err = DecodeRequest(strings.NewReader("entityIds: {"), model.GenerationConfig{})
	assert.Error(t, err)

	_, err = DecodeRequest(strings.NewReader(`{"entityIds": "e1"}`), model.GenerationConfig{})
	assert.Error(t, err)

	_, err = LoadRequest(filepath.Join(t.TempDir(), "missing.json"), model.GenerationConfig{})
	assert.Error(t, err)
}
