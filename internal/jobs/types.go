// Package jobs defines job types and payloads for async processing
package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of async job. The module exposes a single job
// type: a full generation run through pipeline.Driver.
type JobType string

const (
	JobTypeGeneration JobType = "generation"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusRetrying  JobStatus = "retrying"
	StatusCancelled JobStatus = "cancelled"
)

// Job represents an async job in the system
type Job struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Type         JobType          `json:"type" db:"type"`
	Status       JobStatus        `json:"status" db:"status"`
	Priority     int              `json:"priority" db:"priority"`
	Payload      json.RawMessage  `json:"payload" db:"payload"`
	Result       *json.RawMessage `json:"result,omitempty" db:"result"`
	ErrorMessage *string          `json:"error_message,omitempty" db:"error_message"`
	ErrorDetails *json.RawMessage `json:"error_details,omitempty" db:"error_details"`
	RetryCount   int              `json:"retry_count" db:"retry_count"`
	MaxRetries   int              `json:"max_retries" db:"max_retries"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	LockedUntil  *time.Time       `json:"locked_until,omitempty" db:"locked_until"`
	WorkerID     *string          `json:"worker_id,omitempty" db:"worker_id"`
}

// ProviderModel names an LLM provider and model pair, used for both the
// payload-enhancement and test-enhancement sub-blocks of LLMConfig.
type ProviderModel struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// LLMConfig is the optional llm_config block of a generation request (§6).
// PayloadEnhancement governs the enrichment pass over synthesized payloads;
// TestEnhancement is reserved for a future enhancement pass over rendered
// test source and is currently unused by the driver.
type LLMConfig struct {
	PayloadEnhancement *ProviderModel `json:"payload_enhancement,omitempty"`
	TestEnhancement    *ProviderModel `json:"test_enhancement,omitempty"`
}

// GenerationPayload is the payload for a generation job, matching the
// abstract Generation request from §6 field-for-field.
type GenerationPayload struct {
	SpecPayload     string     `json:"spec_payload"` // base64-encoded source text
	SourceDialect   string     `json:"source_dialect"`
	TargetFramework string     `json:"target_framework"`
	BaseURL         string     `json:"base_url,omitempty"`
	TargetIntents   []string   `json:"target_intents,omitempty"`
	LLMConfig       *LLMConfig `json:"llm_config,omitempty"`
}

// GenerationResult is the result of a generation job.
type GenerationResult struct {
	TestsGenerated   int      `json:"tests_generated"`
	TestFilePaths    []string `json:"test_file_paths"`
	FailedOperations []string `json:"failed_operations,omitempty"`
}

// NewJob creates a new job with defaults
func NewJob(jobType JobType, payload interface{}) (*Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		Status:     StatusPending,
		Priority:   0,
		Payload:    payloadBytes,
		RetryCount: 0,
		MaxRetries: 3,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}, nil
}

// SetPayload marshals and sets the payload
func (j *Job) SetPayload(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	j.Payload = data
	return nil
}

// GetPayload unmarshals the payload into the provided struct
func (j *Job) GetPayload(v interface{}) error {
	return json.Unmarshal(j.Payload, v)
}

// SetResult marshals and sets the result
func (j *Job) SetResult(result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	raw := json.RawMessage(data)
	j.Result = &raw
	return nil
}

// GetResult unmarshals the result into the provided struct
func (j *Job) GetResult(v interface{}) error {
	if j.Result == nil {
		return nil
	}
	return json.Unmarshal(*j.Result, v)
}

// CanRetry returns true if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// JobMessage is the message sent via NATS for job notifications
type JobMessage struct {
	JobID    uuid.UUID `json:"job_id"`
	Type     JobType   `json:"type"`
	Priority int       `json:"priority"`
}

// Encode serializes the job message to JSON
func (m *JobMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeJobMessage deserializes a job message from JSON
func DecodeJobMessage(data []byte) (*JobMessage, error) {
	var m JobMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
