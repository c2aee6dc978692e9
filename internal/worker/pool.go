package worker

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/specforge/testgen/internal/config"
	"github.com/specforge/testgen/internal/jobs"
	"github.com/specforge/testgen/internal/llm"
	qtestnats "github.com/specforge/testgen/internal/nats"
	"github.com/specforge/testgen/internal/pipeline"
)

// WorkerType selects which workers a Pool starts. There is a single job
// type today; the switch mirrors the teacher's dispatch shape so a second
// worker kind slots in the same way.
type WorkerType string

const (
	WorkerGeneration WorkerType = "generation"
	WorkerAll        WorkerType = "all"
)

// Pool manages a pool of workers.
type Pool struct {
	cfg        *config.Config
	workerType WorkerType
	workers    []Worker
	nats       *qtestnats.Client
	repo       *jobs.Repository
	pipeline   *jobs.Pipeline
	db         *sql.DB
	driver     *pipeline.Driver
	store      pipeline.ArtifactStore
	llmRouter  *llm.Router
	sink       pipeline.ProgressSink
}

// Worker is the interface all workers must implement.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	Config     *config.Config
	WorkerType string
	DB         *sql.DB
	NATS       *qtestnats.Client
	Store      pipeline.ArtifactStore // where generated artifacts land; defaults to ./artifacts
	LLMRouter  *llm.Router            // enables payload/test enhancement when jobs request it
}

// NewPool creates a new worker pool.
func NewPool(cfg PoolConfig) (*Pool, error) {
	p := &Pool{
		cfg:        cfg.Config,
		workerType: WorkerType(cfg.WorkerType),
		workers:    make([]Worker, 0),
		db:         cfg.DB,
		nats:       cfg.NATS,
		store:      cfg.Store,
		llmRouter:  cfg.LLMRouter,
	}

	if p.store == nil {
		p.store = pipeline.NewFileStore("./artifacts")
	}
	p.driver = pipeline.NewDriver(p.store)

	if cfg.DB != nil {
		p.repo = jobs.NewRepository(cfg.DB)
		p.pipeline = jobs.NewPipeline(p.repo, cfg.NATS)
	}

	if cfg.NATS != nil {
		p.sink = qtestnats.NewProgressPublisher(cfg.NATS)
	}

	if err := p.initWorkers(); err != nil {
		return nil, fmt.Errorf("failed to initialize workers: %w", err)
	}

	return p, nil
}

func (p *Pool) initWorkers() error {
	switch p.workerType {
	case WorkerAll, WorkerGeneration:
		p.addWorker(jobs.JobTypeGeneration)
	default:
		return fmt.Errorf("unknown worker type: %s", p.workerType)
	}

	return nil
}

func (p *Pool) addWorker(jobType jobs.JobType) {
	baseCfg := BaseWorkerConfig{
		Config:     p.cfg,
		JobType:    jobType,
		Repository: p.repo,
		NATS:       p.nats,
		Pipeline:   p.pipeline,
	}

	base := NewBaseWorker(baseCfg)

	var worker Worker
	switch jobType {
	case jobs.JobTypeGeneration:
		worker = NewGenerationWorker(base, p.cfg, p.driver, p.llmRouter, p.sink)
	}

	if worker != nil {
		p.workers = append(p.workers, worker)
	}
}

// Run starts all workers and blocks until context is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	if len(p.workers) == 0 {
		return fmt.Errorf("no workers configured")
	}

	if p.nats != nil && p.nats.IsConnected() {
		if err := p.nats.SetupStreams(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to setup NATS streams, workers will poll DB")
		} else {
			log.Info().Msg("NATS streams configured")
		}
	}

	errCh := make(chan error, len(p.workers))

	for _, w := range p.workers {
		go func(worker Worker) {
			log.Info().Str("worker", worker.Name()).Msg("starting worker")
			if err := worker.Run(ctx); err != nil {
				errCh <- fmt.Errorf("worker %s failed: %w", worker.Name(), err)
			}
		}(w)
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("context cancelled, stopping workers")
		return nil
	case err := <-errCh:
		return err
	}
}

// Pipeline returns the job pipeline manager.
func (p *Pool) Pipeline() *jobs.Pipeline {
	return p.pipeline
}

// Repository returns the job repository.
func (p *Pool) Repository() *jobs.Repository {
	return p.repo
}

// NATS returns the NATS client.
func (p *Pool) NATS() *qtestnats.Client {
	return p.nats
}
