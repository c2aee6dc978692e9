package worker

import (
	"testing"

	"github.com/specforge/testgen/internal/config"
	"github.com/specforge/testgen/internal/jobs"
	"github.com/specforge/testgen/internal/pipeline"
	"github.com/specforge/testgen/internal/render"
	"github.com/specforge/testgen/pkg/ir"
)

func newTestGenerationWorker(cfg *config.Config) *GenerationWorker {
	base := NewBaseWorker(BaseWorkerConfig{
		Config:  cfg,
		JobType: jobs.JobTypeGeneration,
	})
	driver := pipeline.NewDriver(pipeline.NewFileStore(".testartifacts"))
	return NewGenerationWorker(base, cfg, driver, nil, nil)
}

func TestGenerationWorker_Name(t *testing.T) {
	worker := newTestGenerationWorker(&config.Config{})

	if worker.Name() != "generation" {
		t.Errorf("Name() = %s, want generation", worker.Name())
	}
}

func TestWorker_Interface(t *testing.T) {
	var workers []Worker
	workers = append(workers, newTestGenerationWorker(&config.Config{}))

	for _, w := range workers {
		if w.Name() != "generation" {
			t.Errorf("worker.Name() = %s, want generation", w.Name())
		}
	}
}

func TestWorker_BaseWorkerEmbedding(t *testing.T) {
	base := NewBaseWorker(BaseWorkerConfig{
		WorkerID: "test-generation-1",
		JobType:  jobs.JobTypeGeneration,
	})
	driver := pipeline.NewDriver(pipeline.NewFileStore(".testartifacts"))
	worker := NewGenerationWorker(base, &config.Config{}, driver, nil, nil)

	if worker.WorkerID() != "test-generation-1" {
		t.Errorf("WorkerID() = %s, want test-generation-1", worker.WorkerID())
	}

	if worker.JobType() != jobs.JobTypeGeneration {
		t.Errorf("JobType() = %s, want generation", worker.JobType())
	}
}

func TestGenerationWorker_BuildRequest(t *testing.T) {
	worker := newTestGenerationWorker(&config.Config{})

	payload := jobs.GenerationPayload{
		SpecPayload:     "e30=", // base64("{}")
		SourceDialect:   "http-contract",
		TargetFramework: "http-sync",
		BaseURL:         "http://localhost:8080",
		TargetIntents:   []string{"HAPPY_PATH", "TYPE_VIOLATION"},
	}

	req, err := worker.buildRequest("job-1", payload)
	if err != nil {
		t.Fatalf("buildRequest failed: %v", err)
	}

	if req.SourceDialect != ir.Dialect("http-contract") {
		t.Errorf("SourceDialect = %s, want http-contract", req.SourceDialect)
	}
	if req.TargetFramework != render.Target("http-sync") {
		t.Errorf("TargetFramework = %s, want http-sync", req.TargetFramework)
	}
	if req.BaseURL != payload.BaseURL {
		t.Errorf("BaseURL = %s, want %s", req.BaseURL, payload.BaseURL)
	}
	if len(req.TargetIntents) != 2 {
		t.Errorf("len(TargetIntents) = %d, want 2", len(req.TargetIntents))
	}
	if req.Enhancer != nil {
		t.Error("Enhancer should be nil when no router is configured")
	}
	if string(req.SpecSource) != "{}" {
		t.Errorf("SpecSource = %s, want {}", req.SpecSource)
	}
}

func TestGenerationWorker_BuildRequest_InvalidBase64(t *testing.T) {
	worker := newTestGenerationWorker(&config.Config{})

	payload := jobs.GenerationPayload{
		SpecPayload:     "not-valid-base64!!",
		SourceDialect:   "http-contract",
		TargetFramework: "http-sync",
	}

	if _, err := worker.buildRequest("job-1", payload); err == nil {
		t.Error("expected error for invalid base64 spec_payload")
	}
}

func TestGenerationWorker_BuildRequest_NoLLMConfigSkipsEnhancer(t *testing.T) {
	worker := newTestGenerationWorker(&config.Config{})

	payload := jobs.GenerationPayload{
		SpecPayload:     "e30=",
		SourceDialect:   "typed-source",
		TargetFramework: "function-direct",
		LLMConfig: &jobs.LLMConfig{
			PayloadEnhancement: &jobs.ProviderModel{Provider: "anthropic", Model: "claude"},
		},
	}

	req, err := worker.buildRequest("job-1", payload)
	if err != nil {
		t.Fatalf("buildRequest failed: %v", err)
	}

	// worker has a nil router, so enhancement must stay disabled even when requested.
	if req.Enhancer != nil {
		t.Error("Enhancer should be nil without a configured LLM router")
	}
}

func TestGenerationWorker_HandlePayloadWithoutPayload(t *testing.T) {
	worker := newTestGenerationWorker(&config.Config{})

	job, err := jobs.NewJob(jobs.JobTypeGeneration, jobs.GenerationPayload{})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	// handleJob will fail deep inside the pipeline (empty spec), but must not
	// panic and must return an error rather than silently succeeding.
	if err := worker.handleJob(nil, job); err == nil {
		t.Error("expected handleJob to fail on an empty spec payload")
	}
}
