package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/nest"
	"github.com/simonhull/firebird-suite/nest/internal/catalog"
	"github.com/simonhull/firebird-suite/nest/internal/config"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/model"
	"github.com/simonhull/firebird-suite/nest/internal/output"
	"github.com/simonhull/firebird-suite/nest/internal/ui"
)

const testCatalog = `
project:
  id: p1
  name: Shop
  code: shop
entities:
  - id: e1
    name: User
    code: user
templates:
  - id: t1
    name: Service
    category: SERVICE
    content: |
      export class {{pascalCase .entity.code}}Service {
        findAll() {
          return [];
        }
      }
`

type workspace struct {
	dir      string
	catalog  string
	settings string
	out      string
}

func newWorkspace(t *testing.T, settings string) *workspace {
	t.Helper()
	dir := t.TempDir()
	w := &workspace{
		dir:      dir,
		catalog:  filepath.Join(dir, "catalog.yaml"),
		settings: filepath.Join(dir, "nest.yaml"),
		out:      filepath.Join(dir, "out"),
	}
	require.NoError(t, os.WriteFile(w.catalog, []byte(testCatalog), 0o644))
	require.NoError(t, os.WriteFile(w.settings, []byte(settings), 0o644))
	return w
}

func (w *workspace) request(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(w.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func (w *workspace) validRequest(t *testing.T) string {
	return w.request(t, "request.yaml", "projectId: p1\nentityIds: [e1]\ntemplateIds: [t1]\noutputPath: "+w.out+"\n")
}

// run executes the CLI and returns everything written to stdout and the
// styled output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	output.SetWriter(&out)
	t.Cleanup(func() {
		output.SetWriter(nil)
		logger.SetDefault(logger.NewDefaultLogger())
	})

	cmd := NewCLI()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateWritesBothLayers(t *testing.T) {
	w := newWorkspace(t, "log:\n  level: silent\n")

	out, err := run(t, "generate", "-r", w.validRequest(t), "-c", w.catalog, "--config", w.settings, "--keep-pending")
	require.NoError(t, err, out)

	base, err := os.ReadFile(filepath.Join(w.out, "base", "user.base.service.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(base), "export class UserService")
	assert.FileExists(t, filepath.Join(w.out, "biz", "user.service.ts"))
	assert.Contains(t, out, "Generation completed")
}

func TestGenerateOutputOverride(t *testing.T) {
	w := newWorkspace(t, "log:\n  level: silent\n")
	other := filepath.Join(w.dir, "elsewhere")

	_, err := run(t, "generate", "-r", w.validRequest(t), "-c", w.catalog, "--config", w.settings, "-o", other, "--keep-pending")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(other, "base", "user.base.service.ts"))
	assert.NoDirExists(t, w.out)
}

func TestGenerateDryRun(t *testing.T) {
	w := newWorkspace(t, "log:\n  level: silent\n")

	out, err := run(t, "generate", "-r", w.validRequest(t), "-c", w.catalog, "--config", w.settings, "--dry-run")
	require.NoError(t, err, out)

	assert.Contains(t, out, "[DRY RUN]")
	assert.NoDirExists(t, w.out)
}

func TestGenerateRejectedRequest(t *testing.T) {
	w := newWorkspace(t, "log:\n  level: silent\n")
	req := w.request(t, "bad.yaml", "projectId: p1\noutputPath: "+w.out+"\n")

	out, err := run(t, "generate", "-r", req, "-c", w.catalog, "--config", w.settings, "--keep-pending")
	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "Request rejected")
	assert.Contains(t, out, "at least one entity must be selected")
}

func TestGenerateRequiresRequestFlag(t *testing.T) {
	_, err := run(t, "generate")
	assert.ErrorContains(t, err, `"request" not set`)
}

func TestGeneratePendingFlagsExclusive(t *testing.T) {
	w := newWorkspace(t, "log:\n  level: silent\n")

	_, err := run(t, "generate", "-r", w.validRequest(t), "-c", w.catalog, "--config", w.settings,
		"--apply-pending", "--keep-pending")
	assert.ErrorContains(t, err, "cannot be combined")
}

func TestGenerateRecordsHistory(t *testing.T) {
	w := newWorkspace(t, "")
	db := filepath.Join(w.dir, ".nest", "audit.db")
	require.NoError(t, os.WriteFile(w.settings,
		[]byte("log:\n  level: silent\naudit:\n  enabled: true\n  path: "+db+"\n"), 0o644))

	_, err := run(t, "generate", "-r", w.validRequest(t), "-c", w.catalog, "--config", w.settings, "--keep-pending")
	require.NoError(t, err)

	out, err := run(t, "history", "--config", w.settings)
	require.NoError(t, err)
	assert.Contains(t, out, "project=p1 files=2")
}

func TestHistoryDisabled(t *testing.T) {
	w := newWorkspace(t, "log:\n  level: silent\n")

	out, err := run(t, "history", "--config", w.settings)
	require.NoError(t, err)
	assert.Contains(t, out, "Audit trail is disabled")
}

func TestValidateCommand(t *testing.T) {
	w := newWorkspace(t, "log:\n  level: silent\n")

	t.Run("valid with warning", func(t *testing.T) {
		req := w.request(t, "ghost.yaml", "projectId: p1\nentityIds: [e1, ghost]\ntemplateIds: [t1]\noutputPath: "+w.out+"\n")
		out, err := run(t, "validate", "-r", req, "-c", w.catalog, "--config", w.settings)
		require.NoError(t, err)
		assert.Contains(t, out, "entities not found and skipped: ghost")
		assert.Contains(t, out, "Request is valid")
		assert.NoDirExists(t, w.out)
	})

	t.Run("invalid", func(t *testing.T) {
		req := w.request(t, "empty.yaml", "projectId: p1\n")
		out, err := run(t, "validate", "-r", req, "--config", w.settings)
		require.Error(t, err)
		assert.True(t, IsReported(err))
		assert.Contains(t, out, "Request is invalid")
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, "validate", "-r", w.validRequest(t), "-c", w.catalog, "--config", w.settings, "--json")
		require.NoError(t, err)
		assert.Contains(t, out, `"isValid": true`)
	})
}

func TestCompareCommand(t *testing.T) {
	w := newWorkspace(t, "log:\n  level: silent\n")
	old := w.validRequest(t)
	updated := w.request(t, "new.yaml", "projectId: p1\nentityIds: [e1, e2]\ntemplateIds: [t1]\noutputPath: "+w.out+"\n")

	out, err := run(t, "compare", old, updated, "--config", w.settings)
	require.NoError(t, err)
	assert.Contains(t, out, "+ entityIds.e2 = e2")
	assert.Contains(t, out, "Compatibility 90%")

	out, err = run(t, "compare", old, old, "--config", w.settings)
	require.NoError(t, err)
	assert.Contains(t, out, "Requests are identical")
}

func TestDiffCommand(t *testing.T) {
	w := newWorkspace(t, "log:\n  level: silent\n")
	base := w.request(t, "a.ts", "import { A } from 'a';\nfindAll() {\n}\n")
	biz := w.request(t, "b.ts", "import { A } from 'a';\nfindAll() {\n}\nfindOne(id) {\n}\n")

	out, err := run(t, "diff", base, biz, "--config", w.settings)
	require.NoError(t, err)
	assert.Contains(t, out, "@@")
	assert.Contains(t, out, "+findOne(id) {")

	out, err = run(t, "diff", base, biz, "--config", w.settings, "--analyze", "--algorithm", "myers")
	require.NoError(t, err)
	assert.Contains(t, out, "2 added")
	assert.Contains(t, out, "methods only in biz: findOne")

	out, err = run(t, "diff", base, base, "--config", w.settings)
	require.NoError(t, err)
	assert.Contains(t, out, "Files are identical")

	_, err = run(t, "diff", base, filepath.Join(w.dir, "missing.ts"), "--config", w.settings)
	assert.ErrorContains(t, err, "failed to read")
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, nest.Version)
}

type fakeApplier struct {
	applied []string
}

func (f *fakeApplier) ApplyPending(file model.GeneratedFile) (string, error) {
	f.applied = append(f.applied, file.Path)
	return file.Path + ".bak", nil
}

type answers []ui.Choice

func (a *answers) Resolve(string, string, string) (ui.Choice, error) {
	c := (*a)[0]
	*a = (*a)[1:]
	return c, nil
}

func TestReviewPending(t *testing.T) {
	var buf bytes.Buffer
	output.SetWriter(&buf)
	t.Cleanup(func() { output.SetWriter(nil) })

	dir := t.TempDir()
	file := func(name string, pending string) model.GeneratedFile {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("current"), 0o644))
		return model.GeneratedFile{Path: p, Layer: model.LayerBiz, PendingContent: pending}
	}
	res := &model.Result{GeneratedFiles: []model.GeneratedFile{
		file("a.ts", "merged a"),
		file("plain.ts", ""),
		file("b.ts", "merged b"),
		file("c.ts", "merged c"),
		file("d.ts", "merged d"),
	}}

	fa := &fakeApplier{}
	script := answers{ui.Apply, ui.Keep, ui.Apply, ui.Cancel}
	n := reviewPending(fa, &script, res, logger.NewSilentLogger())

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{filepath.Join(dir, "a.ts"), filepath.Join(dir, "c.ts")}, fa.applied)
	assert.Empty(t, script)
	assert.Contains(t, buf.String(), "Kept "+filepath.Join(dir, "b.ts"))
	assert.Contains(t, buf.String(), "Review cancelled")
}

func TestNewServiceServesHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cat, err := catalog.ParseBytes([]byte(testCatalog), t.TempDir())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Jobs.Sweep = 0
	cfg.Audit.Enabled = true
	cfg.Audit.Path = ":memory:"

	svc, err := newService(context.Background(), cfg, cat, logger.NewSilentLogger())
	require.NoError(t, err)
	require.NotNil(t, svc.audit)

	rec := httptest.NewRecorder()
	svc.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), nest.Version)

	rec = httptest.NewRecorder()
	svc.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	assert.NoError(t, svc.Close())
}

func TestNewServiceUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Jobs.Backend = "etcd"

	_, err := newService(context.Background(), cfg, nil, logger.NewSilentLogger())
	assert.ErrorContains(t, err, "unknown job store backend")
}
