package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseService = `import { Injectable } from '@nestjs/common';

export class UserService {
  findAll() {
    return [];
  }
}`

const bizService = `import { Injectable } from '@nestjs/common';
import dayjs from 'dayjs';

export class UserService {
  findAll(limit: number) {
    return [];
  }

  archive(id: string) {
    return id;
  }
}`

func TestAnalyzeIdentical(t *testing.T) {
	r := Analyze(baseService, baseService, Options{})

	assert.False(t, r.HasChanges)
	assert.Zero(t, r.TotalChanges)
	assert.Len(t, r.Diffs, 7)
	assert.Empty(t, r.Summary.AddedMethods)
	assert.NotNil(t, r.Summary.AddedMethods)
}

func TestAnalyzePositional(t *testing.T) {
	r := Analyze("a\nb\nc", "a\nx\nc\nd", Options{})

	require.Len(t, r.Diffs, 4)
	assert.Equal(t, LineDiff{
		Type: Modified, LineNumber: 2, Content: "x", OldContent: "b",
		Context: Context{Before: []string{"a"}, After: []string{"c", "d"}},
	}, r.Diffs[1])
	assert.Equal(t, Added, r.Diffs[3].Type)
	assert.Equal(t, 4, r.Diffs[3].LineNumber)

	assert.True(t, r.HasChanges)
	assert.Equal(t, 2, r.TotalChanges)
	assert.Equal(t, 1, r.AddedLines)
	assert.Equal(t, 1, r.ModifiedLines)
	assert.Zero(t, r.RemovedLines)
}

func TestAnalyzePositionalShift(t *testing.T) {
	// One inserted line marks everything after it as modified.
	r := Analyze("a\nb\nc", "new\na\nb\nc", Options{Algorithm: Positional})
	assert.Equal(t, 3, r.ModifiedLines)
	assert.Equal(t, 1, r.AddedLines)
}

func TestAnalyzeMyers(t *testing.T) {
	r := Analyze("a\nb\nc", "new\na\nb\nc", Options{Algorithm: Myers})

	assert.Equal(t, 1, r.TotalChanges)
	assert.Equal(t, 1, r.AddedLines)
	require.Len(t, r.Diffs, 4)
	assert.Equal(t, LineDiff{
		Type: Added, LineNumber: 1, Content: "new",
		Context: Context{Before: []string{}, After: []string{"a", "b"}},
	}, r.Diffs[0])
}

func TestAnalyzeMyersPairsReplacements(t *testing.T) {
	r := Analyze("a\nb\nc\nd", "a\nB\nC\nd", Options{Algorithm: Myers})

	assert.Equal(t, 2, r.ModifiedLines)
	assert.Zero(t, r.AddedLines)
	assert.Zero(t, r.RemovedLines)
	assert.Equal(t, "B", r.Diffs[1].Content)
	assert.Equal(t, "b", r.Diffs[1].OldContent)

	removed := Analyze("a\nb\nc", "a\nc", Options{Algorithm: Myers})
	assert.Equal(t, 1, removed.RemovedLines)
	assert.Equal(t, 2, removed.Diffs[1].LineNumber, "removed lines use base numbering")
}

func TestAnalyzeSummary(t *testing.T) {
	r := Analyze(baseService, bizService, Options{})

	assert.Equal(t, []string{"archive"}, r.Summary.AddedMethods)
	assert.Empty(t, r.Summary.RemovedMethods)
	assert.Equal(t, []string{"dayjs"}, r.Summary.AddedImports)
	assert.Empty(t, r.Summary.RemovedImports)

	reverse := Analyze(bizService, baseService, Options{})
	assert.Equal(t, []string{"archive"}, reverse.Summary.RemovedMethods)
	assert.Equal(t, []string{"dayjs"}, reverse.Summary.RemovedImports)
}

func TestAnalyzeModifiedMethods(t *testing.T) {
	base := "class A {\n  findAll() {\n  }\n  if (x) {\n  }\n}"
	biz := "class A {\n  findAll(limit: number) {\n  }\n  if (y) {\n  }\n}"

	r := Analyze(base, biz, Options{})
	assert.Equal(t, []string{"findAll"}, r.Summary.ModifiedMethods)
}

func TestParseAlgorithm(t *testing.T) {
	assert.Equal(t, Myers, ParseAlgorithm("MYERS"))
	assert.Equal(t, Positional, ParseAlgorithm("positional"))
	assert.Equal(t, Positional, ParseAlgorithm(""))
}

func TestEditScriptReconstructs(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
	}{
		{"both empty", nil, nil},
		{"insert only", nil, []string{"x", "y"}},
		{"delete only", []string{"x", "y"}, nil},
		{"mixed", []string{"a", "b", "c", "a", "b", "b", "a"}, []string{"c", "b", "a", "b", "a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotA, gotB []string
			for _, e := range editScript(tt.a, tt.b) {
				if e.op != opAdded {
					gotA = append(gotA, tt.a[e.oldIdx])
				}
				if e.op != opRemoved {
					gotB = append(gotB, tt.b[e.newIdx])
				}
			}
			assert.Equal(t, tt.a, gotA)
			assert.Equal(t, tt.b, gotB)
		})
	}
}

func TestEditScriptIsShortest(t *testing.T) {
	// The classic example from the Myers paper has an edit distance of 5.
	a := []string{"a", "b", "c", "a", "b", "b", "a"}
	b := []string{"c", "b", "a", "b", "a", "c"}

	changes := 0
	for _, e := range editScript(a, b) {
		if e.op != opUnchanged {
			changes++
		}
	}
	assert.Equal(t, 5, changes)
}
