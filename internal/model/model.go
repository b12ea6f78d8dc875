// Package model holds the request, metadata, and result types shared by the
// nest generation pipeline.
//
// All values here are transient: they are built fresh for every generation
// request. Only final file contents and the audit record outlive a request.
package model

import "time"

// Layer identifies which side of the dual-layer layout a file belongs to.
type Layer string

const (
	// LayerBase files are machine-owned and always overwritten.
	LayerBase Layer = "base"
	// LayerBiz files are user-owned and protected on regeneration.
	LayerBiz Layer = "biz"
)

// OutputFormat selects the file extension family of generated files.
type OutputFormat string

const (
	FormatTypeScript OutputFormat = "typescript"
	FormatJavaScript OutputFormat = "javascript"
)

// BaseOptions controls what the base layer templates are asked to emit.
type BaseOptions struct {
	GenerateAuth       bool         `json:"generateAuth" yaml:"generateAuth"`
	GenerateValidation bool         `json:"generateValidation" yaml:"generateValidation"`
	GenerateSwagger    bool         `json:"generateSwagger" yaml:"generateSwagger"`
	GenerateTests      bool         `json:"generateTests" yaml:"generateTests"`
	OutputFormat       OutputFormat `json:"outputFormat" yaml:"outputFormat"`
}

// BizOptions controls how the biz layer is treated.
type BizOptions struct {
	AllowCustomization bool `json:"allowCustomization" yaml:"allowCustomization"`
	PreserveCustomCode bool `json:"preserveCustomCode" yaml:"preserveCustomCode"`
	GenerateInterfaces bool `json:"generateInterfaces" yaml:"generateInterfaces"`
}

// GenerationConfig is a single generation request.
// Unknown fields are ignored when decoding.
type GenerationConfig struct {
	ProjectID   string      `json:"projectId" yaml:"projectId"`
	EntityIDs   []string    `json:"entityIds" yaml:"entityIds"`
	TemplateIDs []string    `json:"templateIds" yaml:"templateIds"`
	OutputPath  string      `json:"outputPath" yaml:"outputPath"`
	BaseOptions BaseOptions `json:"baseOptions" yaml:"baseOptions"`
	BizOptions  BizOptions  `json:"bizOptions" yaml:"bizOptions"`
}

// UniqueEntityIDs returns the entity ids in request order with duplicates removed.
func (c *GenerationConfig) UniqueEntityIDs() []string {
	return dedupe(c.EntityIDs)
}

// UniqueTemplateIDs returns the template ids in request order with duplicates removed.
func (c *GenerationConfig) UniqueTemplateIDs() []string {
	return dedupe(c.TemplateIDs)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Project is the owning project of a generation request.
type Project struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Code string `json:"code" yaml:"code"`
}

// Field describes one entity field as stored by the metadata collaborator.
type Field struct {
	Name         string `json:"name" yaml:"name"`
	Code         string `json:"code" yaml:"code"`
	Type         string `json:"type" yaml:"type"`
	Length       string `json:"length,omitempty" yaml:"length,omitempty"`
	Nullable     bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	IsPrimaryKey bool   `json:"isPrimaryKey,omitempty" yaml:"primary_key,omitempty"`
	IsUnique     bool   `json:"isUnique,omitempty" yaml:"unique,omitempty"`
	DefaultValue string `json:"defaultValue,omitempty" yaml:"default,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Relation describes a link between two entities.
type Relation struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Target string `json:"target" yaml:"target"`
}

// Entity is a metadata entity that templates are rendered against.
type Entity struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Code        string     `json:"code" yaml:"code"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field    `json:"fields,omitempty" yaml:"fields,omitempty"`
	Relations   []Relation `json:"relations,omitempty" yaml:"relations,omitempty"`
}

// Template is a code template owned by the metadata collaborator.
type Template struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"category"`
	Content  string `json:"content" yaml:"content"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
}

// GeneratedFile is produced once per layer for every entity×template pair.
type GeneratedFile struct {
	Path           string `json:"path"`
	Layer          Layer  `json:"layer"`
	Content        string `json:"content"`
	TemplateID     string `json:"templateId"`
	EntityID       string `json:"entityId"`
	WasOverwritten bool   `json:"wasOverwritten"`
	BackupPath     string `json:"backupPath,omitempty"`
	// Conflicts lists what the merge could not resolve for a biz file.
	Conflicts []CodeConflict `json:"conflicts,omitempty"`
	// PendingContent holds merged content that was not written because the
	// merge left unplaced sections. Empty unless the biz file was kept.
	PendingContent string `json:"-"`
}

// ConflictCategory classifies a CodeConflict.
type ConflictCategory string

const (
	CategoryMethod       ConflictCategory = "method"
	CategoryProperty     ConflictCategory = "property"
	CategoryImport       ConflictCategory = "import"
	CategoryCustomMarked ConflictCategory = "custom"
)

// Resolution is the action chosen for a CodeConflict.
type Resolution string

const (
	ResolutionUnset       Resolution = ""
	ResolutionKeepBiz     Resolution = "keep_biz"
	ResolutionUseBase     Resolution = "use_base"
	ResolutionManualMerge Resolution = "manual_merge"
	ResolutionSkip        Resolution = "skip"
)

// CodeConflict is a discrepancy the merge engine could not settle on its own.
type CodeConflict struct {
	Category    ConflictCategory `json:"category"`
	SectionName string           `json:"sectionName"`
	BaseContent string           `json:"baseContent"`
	BizContent  string           `json:"bizContent"`
	Line        int              `json:"line"`
	Resolution  Resolution       `json:"resolution"`
}

// State is the lifecycle stage of one generation request.
type State string

const (
	StateValidating State = "validating"
	StateRejected   State = "rejected"
	StateGenerating State = "generating"
	StateWriting    State = "writing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateCompleted || s == StateFailed
}

// Summary aggregates file counts for a Result.
type Summary struct {
	TotalFiles   int `json:"totalFiles"`
	BaseFiles    int `json:"baseFiles"`
	BizFiles     int `json:"bizFiles"`
	SkippedFiles int `json:"skippedFiles"`
}

// Result is returned to callers of a generation request.
type Result struct {
	TaskID         string          `json:"taskId,omitempty"`
	Success        bool            `json:"success"`
	GeneratedFiles []GeneratedFile `json:"generatedFiles"`
	Errors         []string        `json:"errors"`
	Warnings       []string        `json:"warnings"`
	Summary        Summary         `json:"summary"`
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     time.Time       `json:"finishedAt"`
}

// NewResult returns an empty result with non-nil slices so it encodes as [] not null.
func NewResult() *Result {
	return &Result{
		GeneratedFiles: []GeneratedFile{},
		Errors:         []string{},
		Warnings:       []string{},
	}
}

// Summarize recomputes Summary from GeneratedFiles.
func (r *Result) Summarize() {
	s := Summary{TotalFiles: len(r.GeneratedFiles)}
	for _, f := range r.GeneratedFiles {
		switch f.Layer {
		case LayerBase:
			s.BaseFiles++
		case LayerBiz:
			s.BizFiles++
		}
		if !f.WasOverwritten {
			s.SkippedFiles++
		}
	}
	r.Summary = s
}
