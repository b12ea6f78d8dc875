// Package orchestrator runs generation requests. A request is validated,
// every entity×template pair is rendered by a bounded worker pool, and each
// pair writes its base file and then merges or creates its biz file.
//
// States follow validating → rejected, or validating → generating →
// writing → completed | failed. A request with any per-pair error ends
// failed; the other pairs still run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
	"github.com/simonhull/firebird-suite/nest/internal/audit"
	"github.com/simonhull/firebird-suite/nest/internal/catalog"
	"github.com/simonhull/firebird-suite/nest/internal/config"
	"github.com/simonhull/firebird-suite/nest/internal/jobs"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/metrics"
	"github.com/simonhull/firebird-suite/nest/internal/model"
	"github.com/simonhull/firebird-suite/nest/internal/protect"
	"github.com/simonhull/firebird-suite/nest/internal/render"
	"github.com/simonhull/firebird-suite/nest/internal/typemap"
	"github.com/simonhull/firebird-suite/nest/internal/validate"
	"github.com/simonhull/firebird-suite/nest/internal/writer"
)

var tracer = otel.Tracer("nest/orchestrator")

// Renderer executes template source against data.
type Renderer interface {
	Render(name, src string, data any) (string, error)
}

// Auditor persists finished requests.
type Auditor interface {
	Record(ctx context.Context, rec audit.Record) error
}

// Orchestrator is the GenerationOrchestrator.
type Orchestrator struct {
	cfg       *config.Config
	validator *validate.Validator
	renderer  Renderer
	writer    *writer.Writer
	mapper    *typemap.Mapper
	jobs      jobs.Store
	auditor   Auditor
	metrics   *metrics.Metrics
	backuper  protect.Backuper
	log       logger.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRenderer replaces the text/template renderer.
func WithRenderer(r Renderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

// WithWriter sets the file writer, for example a dry-run writer.
func WithWriter(w *writer.Writer) Option {
	return func(o *Orchestrator) { o.writer = w }
}

// WithJobStore enables Submit and Status.
func WithJobStore(s jobs.Store) Option {
	return func(o *Orchestrator) { o.jobs = s }
}

// WithAuditor records every finished request.
func WithAuditor(a Auditor) Option {
	return func(o *Orchestrator) { o.auditor = a }
}

// WithMetrics sets the collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithBackuper replaces the biz file backup.
func WithBackuper(b protect.Backuper) Option {
	return func(o *Orchestrator) { o.backuper = b }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator. cfg nil uses the default settings.
func New(cfg *config.Config, meta catalog.MetadataSource, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &Orchestrator{
		cfg:      cfg,
		renderer: render.NewRenderer(),
		log:      logger.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.writer == nil {
		o.writer = writer.New(writer.WithLogger(o.log))
	}
	if o.metrics == nil {
		o.metrics = metrics.New(prometheus.NewRegistry())
	}
	if o.backuper == nil {
		if o.writer.DryRun() {
			o.backuper = plannedBackup{now: o.now}
		} else {
			o.backuper = protect.FileBackup{Now: o.now}
		}
	}
	o.validator = validate.New(meta, validate.WithLogger(o.log))
	o.mapper = typemap.NewMapper(o.log)
	return o
}

// Generate runs req to completion. Only validation failures are returned as
// an error; everything else is collected into the result.
func (o *Orchestrator) Generate(ctx context.Context, req *model.GenerationConfig) (*model.Result, error) {
	t := o.track(uuid.NewString())
	vr, err := o.admit(ctx, t, req)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, t, req, vr), nil
}

// Submit validates req and runs it in the background. The returned task id
// is used with Status. Cancelling ctx does not stop the generation.
func (o *Orchestrator) Submit(ctx context.Context, req *model.GenerationConfig) (string, error) {
	if o.jobs == nil {
		return "", apperr.New(apperr.KindInternal, "asynchronous generation needs a job store")
	}

	id := uuid.NewString()
	t := o.track(id)
	vr, err := o.admit(ctx, t, req)
	if err != nil {
		return "", err
	}

	r := *req
	o.wg.Add(1)
	o.metrics.JobsInFlight.Inc()
	go func() {
		defer o.wg.Done()
		defer o.metrics.JobsInFlight.Dec()
		o.run(context.WithoutCancel(ctx), t, &r, vr)
	}()
	return id, nil
}

// Status returns the job recorded for taskID.
func (o *Orchestrator) Status(ctx context.Context, taskID string) (*jobs.Job, error) {
	if o.jobs == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "job '%s' not found", taskID)
	}
	return o.jobs.Get(ctx, taskID)
}

// Wait blocks until every submitted request has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Validate checks req without generating anything.
func (o *Orchestrator) Validate(ctx context.Context, req *model.GenerationConfig) *validate.Result {
	return o.validator.Validate(ctx, req)
}

// ApplyPending writes merged content that was held back because some
// section could not be placed. The current biz file is backed up first
// when backups are enabled. It returns the backup path, if any.
func (o *Orchestrator) ApplyPending(f model.GeneratedFile) (string, error) {
	if f.PendingContent == "" {
		return "", apperr.Newf(apperr.KindMerge, "no pending content for %s", f.Path)
	}

	var backup string
	_, err := o.writer.WriteBiz(f.Path, func(_ []byte, exists bool) ([]byte, bool, error) {
		if exists && o.cfg.Protection.BackupBeforeOverwrite {
			p, err := o.backuper.Backup(f.Path)
			if err != nil {
				return nil, false, apperr.Wrapf(err, apperr.KindIO, "cannot back up %s", f.Path)
			}
			backup = p
		}
		return []byte(f.PendingContent), true, nil
	})
	if err != nil {
		return "", err
	}
	o.log.Info("pending merge applied", logger.F("path", f.Path), logger.F("backup", backup))
	return backup, nil
}

func (o *Orchestrator) admit(ctx context.Context, t *tracker, req *model.GenerationConfig) (*validate.Result, error) {
	t.set(ctx, model.StateValidating, nil, nil)

	vr := o.validator.Validate(ctx, req)
	if !vr.IsValid {
		err := vr.Err()
		o.metrics.GenerationRequests.WithLabelValues(string(model.StateRejected)).Inc()
		t.set(ctx, model.StateRejected, nil, err)
		o.log.Warn("generation rejected",
			logger.F("task", t.id()),
			logger.F("errors", len(vr.Errors)))
		return nil, err
	}
	return vr, nil
}

func (o *Orchestrator) workers() int {
	if n := o.cfg.Generation.Workers; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func (o *Orchestrator) run(ctx context.Context, t *tracker, req *model.GenerationConfig, vr *validate.Result) *model.Result {
	res := model.NewResult()
	res.TaskID = t.id()
	res.StartedAt = o.now()
	res.Warnings = append(res.Warnings, vr.Warnings...)

	ctx, span := tracer.Start(ctx, "generation.run",
		trace.WithAttributes(
			attribute.String("task.id", res.TaskID),
			attribute.String("project.id", req.ProjectID),
			attribute.Int("entities", len(vr.Entities)),
			attribute.Int("templates", len(vr.Templates)),
		))
	defer span.End()

	// Work stops at the deadline; bookkeeping after it must still succeed.
	after := context.WithoutCancel(ctx)
	if timeout := o.cfg.Generation.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.set(ctx, model.StateGenerating, nil, nil)

	if err := o.writer.EnsureLayout(req.OutputPath); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return o.finish(after, span, t, req, res)
	}

	pairs, collisions := plan(req, vr)
	res.Errors = append(res.Errors, collisions...)

	o.log.Info("generation started",
		logger.F("task", res.TaskID),
		logger.F("project", req.ProjectID),
		logger.F("pairs", len(pairs)),
		logger.F("workers", o.workers()))

	engine := o.engine(req)
	outcomes, done := runPool(ctx, o.workers(), pairs, func(ctx context.Context, p pair) pairOutcome {
		return o.generatePair(ctx, t, req, vr.Project, engine, p)
	})

	skipped := 0
	for i, out := range outcomes {
		if !done[i] {
			skipped++
			continue
		}
		res.GeneratedFiles = append(res.GeneratedFiles, out.files...)
		res.Errors = append(res.Errors, out.errors...)
		res.Warnings = append(res.Warnings, out.warnings...)
	}
	if skipped > 0 {
		res.Errors = append(res.Errors, interrupted(ctx.Err(), skipped, len(pairs)))
	}

	return o.finish(after, span, t, req, res)
}

func interrupted(err error, skipped, total int) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("generation timed out: %d of %d pairs not started", skipped, total)
	}
	return fmt.Sprintf("generation canceled: %d of %d pairs not started", skipped, total)
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, t *tracker, req *model.GenerationConfig, res *model.Result) *model.Result {
	res.Success = len(res.Errors) == 0
	res.FinishedAt = o.now()
	res.Summarize()

	state := model.StateCompleted
	if !res.Success {
		state = model.StateFailed
		span.SetStatus(codes.Error, "generation finished with errors")
	}
	span.SetAttributes(attribute.Int("files", res.Summary.TotalFiles))

	o.metrics.GenerationRequests.WithLabelValues(string(state)).Inc()
	o.metrics.GenerationDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	for _, f := range res.GeneratedFiles {
		outcome := "kept"
		if f.WasOverwritten {
			outcome = "written"
		}
		o.metrics.FilesGenerated.WithLabelValues(string(f.Layer), outcome).Inc()
	}

	t.set(ctx, state, res, nil)

	if o.auditor != nil {
		rec := audit.Record{TaskID: res.TaskID, Config: *req, Result: *res, CreatedAt: res.StartedAt}
		if err := o.auditor.Record(ctx, rec); err != nil {
			o.log.Warn("failed to record audit entry", logger.F("task", res.TaskID), logger.Err(err))
		}
	}

	o.log.Info("generation finished",
		logger.F("task", res.TaskID),
		logger.F("state", state),
		logger.F("files", res.Summary.TotalFiles),
		logger.F("skipped", res.Summary.SkippedFiles),
		logger.F("errors", len(res.Errors)),
		logger.F("duration", res.FinishedAt.Sub(res.StartedAt)))
	return res
}

func (o *Orchestrator) engine(req *model.GenerationConfig) *protect.Engine {
	return protect.NewEngine(o.cfg.ProtectionOptions(req.BizOptions.PreserveCustomCode),
		protect.WithResolver(o.cfg.Resolver()),
		protect.WithBackuper(o.backuper),
		protect.WithLogger(o.log))
}

// plannedBackup names the backup a real run would create without writing it.
type plannedBackup struct {
	now func() time.Time
}

func (b plannedBackup) Backup(path string) (string, error) {
	return protect.BackupPath(path, b.now()), nil
}

// tracker mirrors the request state into the job store.
type tracker struct {
	o       *Orchestrator
	mu      sync.Mutex
	job     jobs.Job
	writing sync.Once
}

func (o *Orchestrator) track(taskID string) *tracker {
	now := o.now()
	return &tracker{o: o, job: jobs.Job{TaskID: taskID, CreatedAt: now, UpdatedAt: now}}
}

func (t *tracker) id() string {
	return t.job.TaskID
}

func (t *tracker) set(ctx context.Context, state model.State, res *model.Result, err error) {
	t.mu.Lock()
	t.job.State = state
	t.job.UpdatedAt = t.o.now()
	if res != nil {
		t.job.Result = res
	}
	if err != nil {
		t.job.Error = err.Error()
	}
	job := t.job
	t.mu.Unlock()

	t.o.log.Debug("generation state changed", logger.F("task", job.TaskID), logger.F("state", state))
	if t.o.jobs == nil {
		return
	}
	if err := t.o.jobs.Put(context.WithoutCancel(ctx), &job); err != nil {
		t.o.log.Warn("failed to store job state", logger.F("task", job.TaskID), logger.Err(err))
	}
}

// startWriting moves the request to the writing state on the first write.
func (t *tracker) startWriting(ctx context.Context) {
	t.writing.Do(func() { t.set(ctx, model.StateWriting, nil, nil) })
}
