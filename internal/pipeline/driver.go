// Package pipeline sequences the six generation stages (parse, intents,
// payload synthesis, fixture planning, rendering, persistence), emitting
// progress events and persisting artifacts at the stable paths a job store
// exposes to callers. The driver itself is a thin sequencer: stages run in
// order because each consumes the previous stage's full output, but the
// per-operation work inside intent generation, payload synthesis, and
// rendering is farmed out to a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"github.com/specforge/testgen/internal/depanalysis"
	"github.com/specforge/testgen/internal/intent"
	"github.com/specforge/testgen/internal/llmenhance"
	"github.com/specforge/testgen/internal/parser"
	"github.com/specforge/testgen/internal/parser/dynamicsource"
	"github.com/specforge/testgen/internal/parser/httpcontract"
	"github.com/specforge/testgen/internal/parser/typedsource"
	"github.com/specforge/testgen/internal/payload"
	"github.com/specforge/testgen/internal/render"
	"github.com/specforge/testgen/pkg/ir"
)

// Status is a progress event's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Progress is one driver progress event: (job_id, stage_id, status, percent).
type Progress struct {
	JobID   string
	Stage   int
	Status  Status
	Percent int
}

// ProgressSink receives progress events as the driver advances. The NATS
// publisher in internal/nats is one implementation; an in-memory sink backs
// the test suite.
type ProgressSink interface {
	Emit(Progress)
}

// ProgressFunc adapts a plain function to ProgressSink.
type ProgressFunc func(Progress)

func (f ProgressFunc) Emit(p Progress) { f(p) }

// Request is the abstract generation request from §6, already decoded from
// whatever transport (HTTP JSON, CLI flags) carried it — spec_payload is
// expected already base64-decoded into SpecSource by the caller.
type Request struct {
	JobID           string
	SpecSource      []byte
	SourceDialect   ir.Dialect
	TargetFramework render.Target
	BaseURL         string
	TargetIntents   []intent.ID
	Enhancer        *llmenhance.Enhancer // nil disables the enhancement stage
	Workers         int                  // 0 uses runtime.NumCPU()
}

// OperationFailure records a render failure scoped to a single operation;
// the job still completes with the rest of the operations rendered.
type OperationFailure struct {
	OperationID string
	Err         error
}

// IntentRecord pairs one operation with its generated intent list, the shape
// persisted as 2_intents.json.
type IntentRecord struct {
	OperationID string           `json:"operation_id"`
	Intents     []*intent.Intent `json:"intents"`
}

// Result is what a completed (possibly partially-failed) job produced.
type Result struct {
	Spec     *ir.Specification
	Files    map[string]string // operation ID -> rendered source text
	Failures []OperationFailure
}

// Driver sequences the six generation stages and persists artifacts at each
// boundary.
type Driver struct {
	dialects  map[ir.Dialect]parser.Dialect
	renderers *render.Registry
	store     ArtifactStore
}

// NewDriver wires the three concrete dialect parsers and the render registry
// against store, mirroring the teacher's own construction-time wiring style.
func NewDriver(store ArtifactStore) *Driver {
	return &Driver{
		dialects: map[ir.Dialect]parser.Dialect{
			ir.DialectHTTPContract:  httpcontract.New(),
			ir.DialectDynamicSource: dynamicsource.New(),
			ir.DialectTypedSource:   typedsource.New(),
		},
		renderers: render.NewRegistry(),
		store:     store,
	}
}

func (d *Driver) emit(progress ProgressSink, jobID string, stage int, status Status, percent int) {
	if progress == nil {
		return
	}
	progress.Emit(Progress{JobID: jobID, Stage: stage, Status: status, Percent: percent})
}

// Run executes the full pipeline for one generation request. On an input or
// store error it returns early with a *StageError and writes no further
// artifacts; render errors are scoped to their operation and never abort the
// job.
func (d *Driver) Run(ctx context.Context, req *Request, progress ProgressSink) (*Result, error) {
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	spec, err := d.runParseStage(ctx, req, progress)
	if err != nil {
		return nil, err
	}

	intentsByOp, err := d.runIntentStage(req, spec, workers, progress)
	if err != nil {
		return nil, err
	}

	payloadsByOp, err := d.runPayloadStage(ctx, req, spec, intentsByOp, workers, progress)
	if err != nil {
		return nil, err
	}

	fixturesByOp, err := d.runFixtureStage(req, spec, progress)
	if err != nil {
		return nil, err
	}

	result, err := d.runRenderStage(req, spec, payloadsByOp, fixturesByOp, workers, progress)
	if err != nil {
		return nil, err
	}

	if err := d.runPersistStage(req, spec, result, progress); err != nil {
		return nil, err
	}

	return result, nil
}

// Stage 1: parse (15%).
func (d *Driver) runParseStage(ctx context.Context, req *Request, progress ProgressSink) (*ir.Specification, error) {
	d.emit(progress, req.JobID, 1, StatusRunning, 5)

	dialectParser, ok := d.dialects[req.SourceDialect]
	if !ok {
		d.emit(progress, req.JobID, 1, StatusFailed, 15)
		return nil, &StageError{JobID: req.JobID, Stage: 1, Kind: ErrKindUnsupportedDialect, Detail: string(req.SourceDialect)}
	}

	spec, err := dialectParser.Parse(ctx, req.SpecSource)
	if err != nil {
		d.emit(progress, req.JobID, 1, StatusFailed, 15)
		return nil, &StageError{JobID: req.JobID, Stage: 1, Kind: ErrKindParse, Detail: err.Error(), Err: err}
	}

	if err := validateIntentSelection(req.TargetIntents); err != nil {
		d.emit(progress, req.JobID, 1, StatusFailed, 15)
		return nil, &StageError{JobID: req.JobID, Stage: 1, Kind: ErrKindInvalidIntentSelection, Detail: err.Error(), Err: err}
	}

	if err := d.store.SaveJSON(req.JobID, "1_ir.json", spec); err != nil {
		d.emit(progress, req.JobID, 1, StatusFailed, 15)
		return nil, &StageError{JobID: req.JobID, Stage: 1, Kind: ErrKindStoreUnavailable, Detail: err.Error(), Err: err}
	}

	d.emit(progress, req.JobID, 1, StatusCompleted, 15)
	return spec, nil
}

// Stage 2: intent generation (30-50%).
func (d *Driver) runIntentStage(req *Request, spec *ir.Specification, workers int, progress ProgressSink) ([][]*intent.Intent, error) {
	d.emit(progress, req.JobID, 2, StatusRunning, 30)

	cfg := intent.Config{TargetIntents: req.TargetIntents}
	intentsByOp := parallelMap(spec.Operations, workers, func(op *ir.Operation) []*intent.Intent {
		return intent.Generate(op, cfg)
	})

	records := make([]IntentRecord, len(spec.Operations))
	for i, op := range spec.Operations {
		records[i] = IntentRecord{OperationID: op.ID, Intents: intentsByOp[i]}
	}

	if err := d.store.SaveJSON(req.JobID, "2_intents.json", records); err != nil {
		d.emit(progress, req.JobID, 2, StatusFailed, 50)
		return nil, &StageError{JobID: req.JobID, Stage: 2, Kind: ErrKindStoreUnavailable, Detail: err.Error(), Err: err}
	}

	d.emit(progress, req.JobID, 2, StatusCompleted, 50)
	return intentsByOp, nil
}

// Stage 3: payload synthesis and optional enhancement (65%).
func (d *Driver) runPayloadStage(ctx context.Context, req *Request, spec *ir.Specification, intentsByOp [][]*intent.Intent, workers int, progress ProgressSink) ([][]*payload.Payload, error) {
	d.emit(progress, req.JobID, 3, StatusRunning, 55)

	payloadsByOp := parallelMapIndexed(spec.Operations, workers, func(i int, op *ir.Operation) []*payload.Payload {
		return payload.Build(op, intentsByOp[i])
	})

	if err := d.store.SaveJSON(req.JobID, "3_payloads_raw.json", flattenPayloads(payloadsByOp)); err != nil {
		d.emit(progress, req.JobID, 3, StatusFailed, 65)
		return nil, &StageError{JobID: req.JobID, Stage: 3, Kind: ErrKindStoreUnavailable, Detail: err.Error(), Err: err}
	}

	if req.Enhancer != nil {
		for i, op := range spec.Operations {
			if op.Body == nil || op.Body.Schema == nil {
				continue
			}
			payloadsByOp[i] = req.Enhancer.EnhancePayloads(ctx, op.Body.Schema, payloadsByOp[i])
		}
		if err := d.store.SaveJSON(req.JobID, "3_payloads_enhanced.json", flattenPayloads(payloadsByOp)); err != nil {
			d.emit(progress, req.JobID, 3, StatusFailed, 65)
			return nil, &StageError{JobID: req.JobID, Stage: 3, Kind: ErrKindStoreUnavailable, Detail: err.Error(), Err: err}
		}
	}

	return payloadsByOp, nil
}

// Stage 4: fixture planning, HTTP dialect only, folded into stage 3's
// completion percentage.
func (d *Driver) runFixtureStage(req *Request, spec *ir.Specification, progress ProgressSink) (map[string]*depanalysis.FixtureProgram, error) {
	fixturesByOp := make(map[string]*depanalysis.FixtureProgram)

	if req.SourceDialect == ir.DialectHTTPContract {
		classes, producers := depanalysis.Analyze(spec)
		for _, c := range classes {
			if c.Role != depanalysis.RoleConsumer {
				continue
			}
			plan := depanalysis.Plan(c, producers)
			fixturesByOp[c.Operation.ID] = depanalysis.Compile(plan)
		}

		if err := d.store.SaveJSON(req.JobID, "4_fixture_plan.json", fixturesByOp); err != nil {
			d.emit(progress, req.JobID, 3, StatusFailed, 65)
			return nil, &StageError{JobID: req.JobID, Stage: 4, Kind: ErrKindStoreUnavailable, Detail: err.Error(), Err: err}
		}
	}

	d.emit(progress, req.JobID, 3, StatusCompleted, 65)
	return fixturesByOp, nil
}

type renderOutcome struct {
	source string
	err    error
}

// Stage 5: rendering (80%). A render failure is scoped to its operation and
// never fails the job.
func (d *Driver) runRenderStage(req *Request, spec *ir.Specification, payloadsByOp [][]*payload.Payload, fixturesByOp map[string]*depanalysis.FixtureProgram, workers int, progress ProgressSink) (*Result, error) {
	d.emit(progress, req.JobID, 5, StatusRunning, 70)

	renderer, err := d.renderers.Get(req.TargetFramework)
	if err != nil {
		d.emit(progress, req.JobID, 5, StatusFailed, 80)
		return nil, &StageError{JobID: req.JobID, Stage: 5, Kind: ErrKindUnsupportedDialect, Detail: err.Error(), Err: err}
	}

	outcomes := parallelMapIndexed(spec.Operations, workers, func(i int, op *ir.Operation) renderOutcome {
		src, err := renderer.Render(op, payloadsByOp[i], fixturesByOp[op.ID], req.BaseURL)
		if err != nil {
			return renderOutcome{err: &render.RenderError{OperationID: op.ID, Target: req.TargetFramework, Err: err}}
		}
		return renderOutcome{source: src}
	})

	result := &Result{Spec: spec, Files: make(map[string]string, len(spec.Operations))}
	for i, op := range spec.Operations {
		if outcomes[i].err != nil {
			result.Failures = append(result.Failures, OperationFailure{OperationID: op.ID, Err: outcomes[i].err})
			continue
		}
		result.Files[op.ID] = outcomes[i].source
	}

	d.emit(progress, req.JobID, 5, StatusCompleted, 80)
	return result, nil
}

// Stage 6: persistence (90-100%).
func (d *Driver) runPersistStage(req *Request, spec *ir.Specification, result *Result, progress ProgressSink) error {
	d.emit(progress, req.JobID, 6, StatusRunning, 90)

	renderer, err := d.renderers.Get(req.TargetFramework)
	if err != nil {
		d.emit(progress, req.JobID, 6, StatusFailed, 90)
		return &StageError{JobID: req.JobID, Stage: 6, Kind: ErrKindUnsupportedDialect, Detail: err.Error(), Err: err}
	}

	for _, op := range spec.Operations {
		source, ok := result.Files[op.ID]
		if !ok {
			continue
		}
		// FileExtension already includes the leading dot (".go").
		name := fmt.Sprintf("tests/%s%s", op.ID, renderer.FileExtension())
		if err := d.store.SaveText(req.JobID, name, source); err != nil {
			d.emit(progress, req.JobID, 6, StatusFailed, 90)
			return &StageError{JobID: req.JobID, Stage: 6, Kind: ErrKindStoreUnavailable, Detail: err.Error(), Err: err}
		}
	}

	d.emit(progress, req.JobID, 6, StatusCompleted, 100)
	return nil
}

func validateIntentSelection(ids []intent.ID) error {
	for _, id := range ids {
		if !intent.Known(id) {
			return fmt.Errorf("unknown intent id %q", id)
		}
	}
	return nil
}

func flattenPayloads(byOp [][]*payload.Payload) []*payload.Payload {
	var out []*payload.Payload
	for _, ps := range byOp {
		out = append(out, ps...)
	}
	return out
}
