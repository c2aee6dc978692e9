package nats

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/specforge/testgen/internal/pipeline"
)

// ProgressPublisher publishes pipeline.Progress events to a per-job NATS
// subject, implementing pipeline.ProgressSink. Publish failures are logged
// and swallowed: a lost progress event never fails the generation job.
type ProgressPublisher struct {
	client *Client
}

// NewProgressPublisher wraps client as a pipeline.ProgressSink.
func NewProgressPublisher(client *Client) *ProgressPublisher {
	return &ProgressPublisher{client: client}
}

// Emit implements pipeline.ProgressSink.
func (p *ProgressPublisher) Emit(progress pipeline.Progress) {
	data, err := json.Marshal(progress)
	if err != nil {
		log.Error().Err(err).Str("job_id", progress.JobID).Msg("marshal progress event")
		return
	}

	// Progress subjects belong to no JetStream stream, so events go out as
	// plain core NATS messages.
	nc := p.client.Conn()
	if nc == nil {
		log.Warn().Str("job_id", progress.JobID).Int("stage", progress.Stage).Msg("publish progress event: not connected to NATS")
		return
	}
	subject := SubjectForJob(progress.JobID)
	if err := nc.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("job_id", progress.JobID).Int("stage", progress.Stage).Msg("publish progress event")
	}
}

var _ pipeline.ProgressSink = (*ProgressPublisher)(nil)
