// Package nats provides stream configuration for QTest job processing
package nats

import (
	"context"
	"time"
)

// Stream names
const (
	StreamJobs = "QTEST_JOBS"
)

// Subject patterns for job routing
const (
	// SubjectJobsAll matches all job subjects
	SubjectJobsAll = "jobs.>"

	// SubjectJobGeneration carries generation job submissions.
	SubjectJobGeneration = "jobs.generation"

	// SubjectProgressPrefix prefixes the subjects carrying the
	// (job_id, stage_id, status, percent) tuples
	// the pipeline driver emits, one subject per job so subscribers can
	// filter without inspecting message bodies.
	SubjectProgressPrefix = "progress."
)

// ConsumerGeneration is the durable consumer name for the generation worker.
const ConsumerGeneration = "generation-worker"

// SubjectForJob returns the progress subject for a specific job id.
func SubjectForJob(jobID string) string {
	return SubjectProgressPrefix + jobID
}

// DefaultStreamConfig returns the default stream configuration for jobs
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:        StreamJobs,
		Subjects:    []string{SubjectJobsAll},
		MaxMsgs:     100000,
		MaxBytes:    1024 * 1024 * 500, // 500MB
		MaxAge:      7 * 24 * time.Hour,
		Replicas:    1,
		Description: "QTest job processing stream",
	}
}

// SetupStreams creates the jobs stream and the generation worker consumer.
func (c *Client) SetupStreams(ctx context.Context) error {
	if _, err := c.CreateStream(ctx, DefaultStreamConfig()); err != nil {
		return err
	}

	if _, err := c.CreateConsumer(ctx, StreamJobs, ConsumerGeneration, SubjectJobGeneration); err != nil {
		return err
	}

	return nil
}
