package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simonhull/firebird-suite/nest/internal/model"
)

func TestCompareIdentical(t *testing.T) {
	cfg := &model.GenerationConfig{EntityIDs: []string{"e1"}, TemplateIDs: []string{"t1"}, OutputPath: "./out"}

	c := Compare(cfg, cfg)
	assert.Empty(t, c.Differences)
	assert.Equal(t, 1.0, c.Compatibility)
	assert.Empty(t, c.Recommendations)
}

func TestCompare(t *testing.T) {
	old := &model.GenerationConfig{
		EntityIDs:   []string{"e1", "e2"},
		TemplateIDs: []string{"t1"},
		OutputPath:  "./out",
		BaseOptions: model.BaseOptions{GenerateTests: false},
	}
	updated := &model.GenerationConfig{
		EntityIDs:   []string{"e2", "e3"},
		TemplateIDs: []string{"t1"},
		OutputPath:  "./generated",
		BaseOptions: model.BaseOptions{GenerateTests: true},
	}

	c := Compare(old, updated)

	assert.Equal(t, []Difference{
		{Path: "outputPath", Type: DiffModified, OldValue: "./out", NewValue: "./generated"},
		{Path: "entityIds.e3", Type: DiffAdded, NewValue: "e3"},
		{Path: "entityIds.e1", Type: DiffRemoved, OldValue: "e1"},
		{Path: "baseOptions.generateTests", Type: DiffModified, OldValue: false, NewValue: true},
	}, c.Differences)
	// 1 - 0.15 - 0.1 - 0.2 - 0.15
	assert.InDelta(t, 0.4, c.Compatibility, 1e-9)
	assert.Equal(t, []string{
		"2 entity changes; check code that depends on them",
		"1 option changes; validate the request again",
	}, c.Recommendations)
}

func TestCompareCompatibilityFloor(t *testing.T) {
	old := &model.GenerationConfig{EntityIDs: []string{"a", "b", "c", "d", "e", "f"}}
	updated := &model.GenerationConfig{}

	c := Compare(old, updated)
	assert.Len(t, c.Differences, 6)
	assert.Equal(t, 0.0, c.Compatibility)
}
