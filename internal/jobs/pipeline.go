// Package jobs provides pipeline orchestration for test generation workflows
package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	qtestnats "github.com/specforge/testgen/internal/nats"
)

// Pipeline orchestrates generation job submission and status tracking.
type Pipeline struct {
	repo *Repository
	nats *qtestnats.Client
}

// NewPipeline creates a new pipeline manager
func NewPipeline(repo *Repository, nats *qtestnats.Client) *Pipeline {
	return &Pipeline{
		repo: repo,
		nats: nats,
	}
}

// Submit creates and persists a generation job, then publishes it to the
// generation worker's NATS subject. The worker polls the DB if publish
// fails, so a publish error is logged but not returned.
func (p *Pipeline) Submit(ctx context.Context, payload GenerationPayload) (*Job, error) {
	job, err := NewJob(JobTypeGeneration, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := p.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	if err := p.publishJob(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to publish job")
		// Job is in DB, worker can poll for it
	}

	log.Info().
		Str("job_id", job.ID.String()).
		Str("source_dialect", payload.SourceDialect).
		Str("target_framework", payload.TargetFramework).
		Msg("submitted generation job")

	return job, nil
}

// publishJob publishes a job notification to NATS
func (p *Pipeline) publishJob(ctx context.Context, job *Job) error {
	if p.nats == nil {
		return nil // NATS not configured, workers will poll DB
	}

	msg := &JobMessage{
		JobID:    job.ID,
		Type:     job.Type,
		Priority: job.Priority,
	}

	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	_, err = p.nats.Publish(ctx, qtestnats.SubjectJobGeneration, data)
	return err
}

// GetJobStatus returns the current status of a job.
func (p *Pipeline) GetJobStatus(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	job, err := p.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job not found")
	}

	return job, nil
}

// RetryFailedJobs requeues all jobs in retrying status
func (p *Pipeline) RetryFailedJobs(ctx context.Context) (int, error) {
	jobs, err := p.repo.ListByStatus(ctx, StatusRetrying, 100)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, job := range jobs {
		if err := p.repo.Retry(ctx, job.ID); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to retry job")
			continue
		}

		// Republish to NATS
		job.Status = StatusPending
		if err := p.publishJob(ctx, job); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to republish job")
		}

		count++
	}

	return count, nil
}
