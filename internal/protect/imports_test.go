package protect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/nest/internal/model"
)

func TestMergeImports(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		biz       string
		want      string
		conflicts int
	}{
		{
			name:    "biz without imports",
			content: "import a from 'a';\nclass A {}",
			biz:     "class A {}",
			want:    "import a from 'a';\nclass A {}",
		},
		{
			name:    "identical imports",
			content: "import a from 'a';\n\nclass A {}",
			biz:     "import a from 'a'\n\nclass A {}",
			want:    "import a from 'a';\n\nclass A {}",
		},
		{
			name:    "new module is appended after base imports",
			content: "import { Injectable } from '@nestjs/common';\nimport { PrismaService } from '../prisma';\n\nexport class A {}",
			biz:     "import { PrismaService } from '../prisma';\nimport * as dayjs from 'dayjs';\n\nexport class A {}",
			want:    "import { Injectable } from '@nestjs/common';\nimport { PrismaService } from '../prisma';\nimport * as dayjs from 'dayjs';\n\nexport class A {}",
		},
		{
			name:    "named specifiers are unioned",
			content: "import { Injectable } from '@nestjs/common';\n\nexport class A {}",
			biz:     "import { Injectable, Logger } from '@nestjs/common';\n\nexport class A {}",
			want:    "import { Injectable, Logger } from '@nestjs/common';\n\nexport class A {}",
		},
		{
			name:    "multi-line biz import",
			content: "import { Get } from '@nestjs/common';\n\nexport class A {}",
			biz:     "import {\n  Get,\n  Post,\n} from '@nestjs/common';\n\nexport class A {}",
			want:    "import { Get, Post } from '@nestjs/common';\n\nexport class A {}",
		},
		{
			name:      "incompatible forms keep base and conflict",
			content:   "import * as fs from 'fs';\n\nexport class A {}",
			biz:       "import { readFile } from 'fs';\n\nexport class A {}",
			want:      "import * as fs from 'fs';\n\nexport class A {}",
			conflicts: 1,
		},
		{
			name:    "content without imports keeps its header comment first",
			content: "// generated\nexport class A {}",
			biz:     "import x from 'x';\nexport class A {}",
			want:    "// generated\nimport x from 'x';\n\nexport class A {}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conflicts := mergeImports(tt.content, tt.biz)
			assert.Equal(t, tt.want, got)
			assert.Len(t, conflicts, tt.conflicts)
		})
	}
}

func TestMergeImportsNeverDuplicates(t *testing.T) {
	content := "import { A } from 'a';\nimport b from 'b';\n\nclass X {}"
	biz := "import { A } from 'a';\nimport b from 'b';\nimport c from 'c';\nimport c from 'c';\n\nclass X {}"

	got, conflicts := mergeImports(content, biz)
	require.Empty(t, conflicts)
	for _, m := range []string{"'a'", "'b'", "'c'"} {
		assert.Equal(t, 1, strings.Count(got, m), m)
	}
}

func TestMergeImportsConflictDetails(t *testing.T) {
	_, conflicts := mergeImports("import * as fs from 'fs';\nx", "\nimport { readFile } from 'fs';\nx")
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, model.CategoryImport, c.Category)
	assert.Equal(t, "import_fs", c.SectionName)
	assert.Equal(t, "import * as fs from 'fs';", c.BaseContent)
	assert.Equal(t, "import { readFile } from 'fs';", c.BizContent)
	assert.Equal(t, 2, c.Line)
}
