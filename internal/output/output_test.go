package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simonhull/firebird-suite/nest/internal/model"
)

func capture(t *testing.T, f func()) string {
	t.Helper()
	var buf bytes.Buffer
	SetWriter(&buf)
	t.Cleanup(func() { SetWriter(nil) })
	f()
	return buf.String()
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string)
		icon string
	}{
		{"success", Success, "🪺"},
		{"error", Error, "❌"},
		{"warn", Warn, "⚠️"},
		{"info", Info, "ℹ️"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := capture(t, func() { tt.fn("hello nest") })
			assert.Contains(t, got, tt.icon)
			assert.Contains(t, got, "hello nest")
		})
	}
}

func TestVerbose(t *testing.T) {
	got := capture(t, func() {
		SetVerbose(false)
		Verbose("hidden")
		SetVerbose(true)
		Verbose("shown")
		SetVerbose(false)
	})

	assert.NotContains(t, got, "hidden")
	assert.Contains(t, got, "shown")
}

func TestResult(t *testing.T) {
	r := model.NewResult()
	r.GeneratedFiles = []model.GeneratedFile{
		{Path: "out/base/user.base.service.ts", Layer: model.LayerBase, WasOverwritten: true},
		{Path: "out/biz/user.service.ts", Layer: model.LayerBiz},
	}
	r.Warnings = []string{"kept biz file"}
	r.Summarize()

	got := capture(t, func() { Result(r) })

	assert.Contains(t, got, "out/base/user.base.service.ts")
	assert.Contains(t, got, "kept biz file")
	assert.Contains(t, got, "total=2 base=1 biz=1 skipped=1")
	assert.Contains(t, got, "finished with errors")
}
