// Package validate checks generation requests before any file is touched.
package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
	"github.com/simonhull/firebird-suite/nest/internal/catalog"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/model"
)

// Score weights.
const (
	errorPenalty   = 20
	warningPenalty = 5
	largeBatch     = 20
)

// Result is the outcome of validating one request.
type Result struct {
	IsValid     bool     `json:"isValid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
	Score       int      `json:"score"`

	// Resolved metadata, filled when a metadata source is configured.
	Project   *model.Project   `json:"-"`
	Entities  []model.Entity   `json:"-"`
	Templates []model.Template `json:"-"`
}

// Err returns the errors as a validation apperr, or nil when valid.
func (r *Result) Err() error {
	if r.IsValid {
		return nil
	}
	return apperr.Wrap(Errors(r.Errors), apperr.KindValidation, "generation request rejected")
}

// Errors is a list of validation failures.
type Errors []string

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation errors"
	}
	if len(e) == 1 {
		return e[0]
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "found %d validation errors:\n", len(e))
	for i, msg := range e {
		fmt.Fprintf(&buf, "  %d. %s\n", i+1, msg)
	}
	return buf.String()
}

// Validator is the ConfigValidator. It has no side effects.
type Validator struct {
	meta catalog.MetadataSource
	log  logger.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(v *Validator) { v.log = l }
}

// New creates a validator. meta may be nil, in which case ids are not resolved.
func New(meta catalog.MetadataSource, opts ...Option) *Validator {
	v := &Validator{meta: meta, log: logger.Default()}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Validate checks cfg and scores it.
func (v *Validator) Validate(ctx context.Context, cfg *model.GenerationConfig) *Result {
	r := &Result{Errors: []string{}, Warnings: []string{}, Suggestions: []string{}}

	if cfg.ProjectID == "" {
		r.Errors = append(r.Errors, "projectId is required")
	}
	entityIDs := cfg.UniqueEntityIDs()
	if len(entityIDs) == 0 {
		r.Errors = append(r.Errors, "at least one entity must be selected")
	}
	templateIDs := cfg.UniqueTemplateIDs()
	if len(templateIDs) == 0 {
		r.Errors = append(r.Errors, "at least one template must be selected")
	}
	if cfg.OutputPath == "" {
		r.Errors = append(r.Errors, "outputPath is required")
	} else {
		if err := checkCreatable(cfg.OutputPath); err != nil {
			r.Errors = append(r.Errors, err.Error())
		}
		if !strings.HasPrefix(cfg.OutputPath, "./") && !filepath.IsAbs(cfg.OutputPath) {
			r.Warnings = append(r.Warnings, fmt.Sprintf("outputPath %q is neither ./relative nor absolute", cfg.OutputPath))
		}
	}

	if v.meta != nil {
		v.resolve(ctx, cfg, entityIDs, templateIDs, r)
	}

	r.Suggestions = suggestions(cfg, entityIDs)
	r.Score = score(cfg, r)
	r.IsValid = len(r.Errors) == 0

	v.log.Debug("request validated",
		logger.F("project", cfg.ProjectID),
		logger.F("valid", r.IsValid),
		logger.F("score", r.Score))
	return r
}

func (v *Validator) resolve(ctx context.Context, cfg *model.GenerationConfig, entityIDs, templateIDs []string, r *Result) {
	if cfg.ProjectID != "" {
		p, err := v.meta.GetProject(ctx, cfg.ProjectID)
		if err != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("project %s: %v", cfg.ProjectID, err))
		} else {
			r.Project = p
		}
	}

	if len(entityIDs) > 0 {
		found, missing, err := v.meta.ResolveEntities(ctx, entityIDs)
		switch {
		case err != nil:
			r.Errors = append(r.Errors, fmt.Sprintf("failed to resolve entities: %v", err))
		case len(found) == 0:
			r.Errors = append(r.Errors, fmt.Sprintf("none of the requested entities exist: %s", strings.Join(missing, ", ")))
		case len(missing) > 0:
			r.Warnings = append(r.Warnings, fmt.Sprintf("entities not found and skipped: %s", strings.Join(missing, ", ")))
		}
		r.Entities = found
	}

	if len(templateIDs) > 0 {
		found, missing, err := v.meta.ResolveTemplates(ctx, templateIDs)
		switch {
		case err != nil:
			r.Errors = append(r.Errors, fmt.Sprintf("failed to resolve templates: %v", err))
		case len(found) == 0:
			r.Errors = append(r.Errors, fmt.Sprintf("none of the requested templates exist: %s", strings.Join(missing, ", ")))
		case len(missing) > 0:
			r.Warnings = append(r.Warnings, fmt.Sprintf("templates not found and skipped: %s", strings.Join(missing, ", ")))
		}
		r.Templates = found
	}
}

// checkCreatable walks up to the closest existing ancestor and requires it
// to be a directory.
func checkCreatable(path string) error {
	dir := filepath.Clean(path)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				if dir == filepath.Clean(path) {
					return fmt.Errorf("outputPath %s is a file", path)
				}
				return fmt.Errorf("outputPath %s cannot be created: %s is a file", path, dir)
			}
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return fmt.Errorf("outputPath %s is not usable: %v", path, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

func suggestions(cfg *model.GenerationConfig, entityIDs []string) []string {
	out := []string{}
	if !cfg.BaseOptions.GenerateTests {
		out = append(out, "enable generateTests to ship test scaffolding with the base layer")
	}
	if !cfg.BaseOptions.GenerateSwagger {
		out = append(out, "enable generateSwagger to document the generated API")
	}
	if !cfg.BizOptions.PreserveCustomCode {
		out = append(out, "enable preserveCustomCode so regeneration cannot overwrite hand-written code")
	}
	if len(entityIDs) > largeBatch {
		out = append(out, fmt.Sprintf("%d entities selected; consider generating in batches", len(entityIDs)))
	}
	return out
}

func score(cfg *model.GenerationConfig, r *Result) int {
	s := 100
	s -= len(r.Errors) * errorPenalty
	s -= len(r.Warnings) * warningPenalty

	bonus := func(on bool, n int) {
		if on {
			s += n
		}
	}
	bonus(cfg.BaseOptions.GenerateAuth, 5)
	bonus(cfg.BaseOptions.GenerateValidation, 5)
	bonus(cfg.BaseOptions.GenerateSwagger, 5)
	bonus(cfg.BaseOptions.GenerateTests, 10)
	bonus(cfg.BizOptions.AllowCustomization, 5)
	bonus(cfg.BizOptions.PreserveCustomCode, 10)

	return max(0, min(100, s))
}
