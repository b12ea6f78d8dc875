package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
	"github.com/simonhull/firebird-suite/nest/internal/model"
)

func setupRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func sampleRecord(id string, at time.Time) Record {
	res := model.NewResult()
	res.TaskID = id
	res.Success = true
	res.GeneratedFiles = append(res.GeneratedFiles, model.GeneratedFile{Path: "out/base/user.base.ts", Layer: model.LayerBase, WasOverwritten: true})
	res.Summarize()

	return Record{
		TaskID:    id,
		Config:    model.GenerationConfig{ProjectID: "p1", EntityIDs: []string{"e1"}, TemplateIDs: []string{"t1"}, OutputPath: "./out"},
		Result:    *res,
		CreatedAt: at,
	}
}

func TestRecordAndGet(t *testing.T) {
	ctx := context.Background()
	r := setupRecorder(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Record(ctx, sampleRecord("task-1", at)))

	got, err := r.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Config.ProjectID)
	assert.Equal(t, []string{"e1"}, got.Config.EntityIDs)
	assert.True(t, got.Result.Success)
	assert.Equal(t, 1, got.Result.Summary.TotalFiles)
	assert.True(t, at.Equal(got.CreatedAt))
}

func TestGetNotFound(t *testing.T) {
	r := setupRecorder(t)

	_, err := r.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRecordReplaces(t *testing.T) {
	ctx := context.Background()
	r := setupRecorder(t)
	at := time.Now()

	rec := sampleRecord("task-1", at)
	require.NoError(t, r.Record(ctx, rec))
	rec.Result.Success = false
	require.NoError(t, r.Record(ctx, rec))

	got, err := r.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.False(t, got.Result.Success)

	all, err := r.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := setupRecorder(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Record(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Hour))))
	}

	got, err := r.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].TaskID)
	assert.Equal(t, "b", got[1].TaskID)
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.db")

	r, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, r.Record(context.Background(), sampleRecord("x", time.Now())))
	require.NoError(t, r.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
