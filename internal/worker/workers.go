package worker

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/specforge/testgen/internal/config"
	"github.com/specforge/testgen/internal/intent"
	"github.com/specforge/testgen/internal/jobs"
	"github.com/specforge/testgen/internal/llm"
	"github.com/specforge/testgen/internal/llmenhance"
	"github.com/specforge/testgen/internal/pipeline"
	"github.com/specforge/testgen/internal/render"
	"github.com/specforge/testgen/pkg/ir"
)

// GenerationWorker runs a full generation job through pipeline.Driver: parse,
// intents, payloads, optional LLM enhancement, fixture planning, rendering,
// persistence.
type GenerationWorker struct {
	*BaseWorker
	cfg    *config.Config
	driver *pipeline.Driver
	router *llm.Router
	sink   pipeline.ProgressSink
}

// NewGenerationWorker wires driver against the base worker. router may be
// nil, which disables LLM payload enhancement even when a job requests it.
// sink may be nil, which disables progress event emission.
func NewGenerationWorker(base *BaseWorker, cfg *config.Config, driver *pipeline.Driver, router *llm.Router, sink pipeline.ProgressSink) *GenerationWorker {
	w := &GenerationWorker{BaseWorker: base, cfg: cfg, driver: driver, router: router, sink: sink}
	base.handler = w.handleJob
	return w
}

func (w *GenerationWorker) Name() string { return "generation" }

func (w *GenerationWorker) handleJob(ctx context.Context, job *jobs.Job) error {
	var payload jobs.GenerationPayload
	if err := job.GetPayload(&payload); err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	log.Info().
		Str("job_id", job.ID.String()).
		Str("source_dialect", payload.SourceDialect).
		Str("target_framework", payload.TargetFramework).
		Msg("running generation job")

	req, err := w.buildRequest(job.ID.String(), payload)
	if err != nil {
		return fmt.Errorf("invalid generation request: %w", err)
	}

	result, err := w.driver.Run(ctx, req, w.sink)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	jobResult := jobs.GenerationResult{
		TestsGenerated: len(result.Files),
	}
	for opID := range result.Files {
		jobResult.TestFilePaths = append(jobResult.TestFilePaths, fmt.Sprintf("tests/%s", opID))
	}
	for _, failure := range result.Failures {
		jobResult.FailedOperations = append(jobResult.FailedOperations, failure.OperationID)
		log.Warn().
			Str("job_id", job.ID.String()).
			Str("operation_id", failure.OperationID).
			Err(failure.Err).
			Msg("operation failed to render")
	}

	if err := w.Repository().Complete(ctx, job.ID, jobResult); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	return nil
}

func (w *GenerationWorker) buildRequest(jobID string, payload jobs.GenerationPayload) (*pipeline.Request, error) {
	specSource, err := base64.StdEncoding.DecodeString(payload.SpecPayload)
	if err != nil {
		return nil, fmt.Errorf("spec_payload is not valid base64: %w", err)
	}

	targetIntents := make([]intent.ID, 0, len(payload.TargetIntents))
	for _, id := range payload.TargetIntents {
		targetIntents = append(targetIntents, intent.ID(id))
	}

	var enhancer *llmenhance.Enhancer
	if payload.LLMConfig != nil && payload.LLMConfig.PayloadEnhancement != nil && w.router != nil {
		enhancer = llmenhance.New(w.cfg, w.router)
	}

	return &pipeline.Request{
		JobID:           jobID,
		SpecSource:      specSource,
		SourceDialect:   ir.Dialect(payload.SourceDialect),
		TargetFramework: render.Target(payload.TargetFramework),
		BaseURL:         payload.BaseURL,
		TargetIntents:   targetIntents,
		Enhancer:        enhancer,
	}, nil
}
