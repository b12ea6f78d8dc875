package orchestrator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
	"github.com/simonhull/firebird-suite/nest/internal/diff"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/model"
	"github.com/simonhull/firebird-suite/nest/internal/protect"
	"github.com/simonhull/firebird-suite/nest/internal/validate"
	"github.com/simonhull/firebird-suite/nest/internal/writer"
)

// pair is one entity×template unit of work.
type pair struct {
	entity   model.Entity
	template model.Template
	basePath string
	bizPath  string
}

// pairOutcome is what one pair contributes to the result.
type pairOutcome struct {
	files    []model.GeneratedFile
	errors   []string
	warnings []string
}

func (p *pairOutcome) warn(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

// plan lists the pairs in entity-major order. A pair whose files another
// pair already targets is reported and dropped.
func plan(req *model.GenerationConfig, vr *validate.Result) ([]pair, []string) {
	var (
		pairs []pair
		errs  []string
	)
	claimed := make(map[string]string)

	for _, e := range vr.Entities {
		for _, t := range vr.Templates {
			base, biz := filePaths(req.OutputPath, e, t, req.BaseOptions.OutputFormat)
			if owner, ok := claimed[base]; ok {
				errs = append(errs, fmt.Sprintf("template %s for entity %s targets %s, already produced by %s; skipped",
					t.ID, e.ID, base, owner))
				continue
			}
			claimed[base] = fmt.Sprintf("template %s for entity %s", t.ID, e.ID)
			pairs = append(pairs, pair{entity: e, template: t, basePath: base, bizPath: biz})
		}
	}
	return pairs, errs
}

func (o *Orchestrator) generatePair(ctx context.Context, t *tracker, req *model.GenerationConfig, project *model.Project, engine *protect.Engine, p pair) pairOutcome {
	ctx, span := tracer.Start(ctx, "generation.pair",
		trace.WithAttributes(
			attribute.String("entity.id", p.entity.ID),
			attribute.String("template.id", p.template.ID),
		))
	defer span.End()

	var out pairOutcome
	fail := func(err error) pairOutcome {
		span.RecordError(err)
		o.metrics.GenerationErrors.WithLabelValues(string(apperr.KindOf(err))).Inc()
		o.log.Error("pair failed",
			logger.F("entity", p.entity.ID),
			logger.F("template", p.template.ID),
			logger.Err(err))
		out.errors = append(out.errors, err.Error())
		return out
	}

	content, err := o.renderer.Render(p.template.ID, p.template.Content, templateData(project, p.entity, req, o.mapper))
	if err != nil {
		return fail(apperr.Wrapf(err, apperr.KindRender, "render template %s for entity %s", p.template.ID, p.entity.ID))
	}

	t.startWriting(ctx)

	if err := o.writer.WriteBase(p.basePath, []byte(content)); err != nil {
		// The biz file is left alone when its base could not be written.
		return fail(err)
	}
	out.files = append(out.files, model.GeneratedFile{
		Path:           p.basePath,
		Layer:          model.LayerBase,
		Content:        content,
		TemplateID:     p.template.ID,
		EntityID:       p.entity.ID,
		WasOverwritten: true,
	})

	biz := model.GeneratedFile{
		Path:       p.bizPath,
		Layer:      model.LayerBiz,
		TemplateID: p.template.ID,
		EntityID:   p.entity.ID,
	}
	written, err := o.writer.WriteBiz(p.bizPath, o.bizFunc(engine, req, content, &biz, &out))
	if err != nil {
		return fail(err)
	}
	biz.WasOverwritten = written
	out.files = append(out.files, biz)

	for _, c := range biz.Conflicts {
		o.metrics.MergeConflicts.WithLabelValues(string(c.Category), string(c.Resolution)).Inc()
	}
	return out
}

// bizFunc decides the biz file content under the path lock:
//
//   - no biz file, or protection off: the rendered base
//   - nothing extractable: the rendered base, unless a custom code block is
//     left unclosed, in which case the file is kept
//   - otherwise the merge result, unless the merge failed or smart merge is
//     off, in which case the file is kept
func (o *Orchestrator) bizFunc(engine *protect.Engine, req *model.GenerationConfig, base string, f *model.GeneratedFile, out *pairOutcome) writer.BizFunc {
	return func(cur []byte, exists bool) ([]byte, bool, error) {
		if !exists || !req.BizOptions.PreserveCustomCode {
			f.Content = base
			return []byte(base), true, nil
		}

		existing := string(cur)
		markers := engine.Options().Markers
		sections := protect.Extract(existing, markers)
		if len(sections) == 0 {
			if protect.HasUnclosedMarker(existing, markers) {
				f.Content = existing
				out.warn("%s has an unclosed custom code marker; biz file kept", f.Path)
				return nil, false, nil
			}
			f.Content = base
			return []byte(base), true, nil
		}

		res := engine.Merge(protect.Input{
			Path:        f.Path,
			BaseContent: base,
			BizContent:  existing,
			BizExists:   true,
			Sections:    sections,
		})
		f.BackupPath = res.BackupPath
		f.Conflicts = res.Conflicts
		out.warnings = append(out.warnings, res.Warnings...)

		switch {
		case !res.Success:
			f.Content = existing
			if res.Merged {
				f.PendingContent = res.Content
				out.warn("%s kept; the merged content needs manual review", f.Path)
			}
			return nil, false, nil
		case !res.Merged:
			f.Content = existing
			return nil, false, nil
		}

		o.review(f.Path, existing, res.Content, out)
		f.Content = res.Content
		return []byte(res.Content), true, nil
	}
}

// review flags breaking changes between the previous and the merged biz file.
func (o *Orchestrator) review(path, before, after string, out *pairOutcome) {
	a := diff.Analyze(before, after, diff.Options{Algorithm: diff.Myers})
	if !a.HasChanges {
		return
	}
	sc := diff.DetectSignificantChanges(a, o.cfg.Thresholds.MergeImpactRatio)
	if sc.HasBreakingChanges {
		out.warn("%s: %d breaking changes after merge, first: %s", path, len(sc.BreakingChanges), sc.BreakingChanges[0])
	}
	o.log.Debug("merge reviewed",
		logger.F("path", path),
		logger.F("changes", a.TotalChanges),
		logger.F("breaking", len(sc.BreakingChanges)),
		logger.F("warnings", len(sc.Warnings)))
}
