package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/specforge/testgen/internal/jobs"
)

// CreateJobRequest is the request body for POST /api/v1/jobs: the same
// generation request shape the CLI's generate command and the worker's
// pipeline.Request both build from.
type CreateJobRequest struct {
	SpecPayload     string          `json:"spec_payload"`
	SourceDialect   string          `json:"source_dialect"`
	TargetFramework string          `json:"target_framework"`
	BaseURL         string          `json:"base_url,omitempty"`
	TargetIntents   []string        `json:"target_intents,omitempty"`
	LLMConfig       *jobs.LLMConfig `json:"llm_config,omitempty"`
	Priority        int             `json:"priority,omitempty"`
}

// JobResponse is the API response for a job.
type JobResponse struct {
	ID           uuid.UUID       `json:"id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Priority     int             `json:"priority"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	StartedAt    *string         `json:"started_at,omitempty"`
	CompletedAt  *string         `json:"completed_at,omitempty"`
	WorkerID     *string         `json:"worker_id,omitempty"`
}

func jobToResponse(j *jobs.Job) *JobResponse {
	if j == nil {
		return nil
	}

	resp := &JobResponse{
		ID:           j.ID,
		Type:         string(j.Type),
		Status:       string(j.Status),
		Priority:     j.Priority,
		Payload:      j.Payload,
		ErrorMessage: j.ErrorMessage,
		RetryCount:   j.RetryCount,
		MaxRetries:   j.MaxRetries,
		CreatedAt:    j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    j.UpdatedAt.Format(time.RFC3339),
		WorkerID:     j.WorkerID,
	}
	if j.Result != nil {
		resp.Result = *j.Result
	}
	if j.StartedAt != nil {
		s := j.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if j.CompletedAt != nil {
		s := j.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}

	return resp
}

// createJob submits a generation job. When a Pipeline is configured it
// publishes to NATS in addition to persisting; otherwise the job is
// persisted for a DB-polling worker to pick up.
func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	if s.jobRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "job system not available")
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SpecPayload == "" {
		respondError(w, http.StatusBadRequest, "spec_payload is required")
		return
	}
	if req.SourceDialect == "" {
		respondError(w, http.StatusBadRequest, "source_dialect is required")
		return
	}
	if req.TargetFramework == "" {
		respondError(w, http.StatusBadRequest, "target_framework is required")
		return
	}

	payload := jobs.GenerationPayload{
		SpecPayload:     req.SpecPayload,
		SourceDialect:   req.SourceDialect,
		TargetFramework: req.TargetFramework,
		BaseURL:         req.BaseURL,
		TargetIntents:   req.TargetIntents,
		LLMConfig:       req.LLMConfig,
	}

	if s.pipeline != nil {
		job, err := s.pipeline.Submit(r.Context(), payload)
		if err != nil {
			log.Error().Err(err).Msg("failed to submit generation job")
			respondError(w, http.StatusInternalServerError, "failed to submit job")
			return
		}
		respondJSON(w, http.StatusCreated, jobToResponse(job))
		return
	}

	job, err := jobs.NewJob(jobs.JobTypeGeneration, payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	job.Priority = req.Priority

	if err := s.jobRepo.Create(r.Context(), job); err != nil {
		log.Error().Err(err).Msg("failed to create job")
		respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	respondJSON(w, http.StatusCreated, jobToResponse(job))
}

// listJobs lists jobs, filtered by status or falling back to pending jobs.
func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "job system not available")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(jobs.StatusPending)
	}

	jobList, err := s.jobRepo.ListByStatus(r.Context(), jobs.JobStatus(status), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list jobs")
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	responses := make([]*JobResponse, len(jobList))
	for i, j := range jobList {
		responses[i] = jobToResponse(j)
	}

	respondJSON(w, http.StatusOK, responses)
}

// getJob gets a job by ID.
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	if s.jobRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "job system not available")
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	job, err := s.jobRepo.GetByID(r.Context(), jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID.String()).Msg("failed to get job")
		respondError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, jobToResponse(job))
}

// cancelJob cancels a pending job.
func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	if s.jobRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "job system not available")
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	if err := s.jobRepo.Cancel(r.Context(), jobID); err != nil {
		log.Error().Err(err).Str("job_id", jobID.String()).Msg("failed to cancel job")
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// retryJob retries a failed job.
func (s *Server) retryJob(w http.ResponseWriter, r *http.Request) {
	if s.jobRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "job system not available")
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job ID")
		return
	}

	if err := s.jobRepo.Retry(r.Context(), jobID); err != nil {
		log.Error().Err(err).Str("job_id", jobID.String()).Msg("failed to retry job")
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, _ := s.jobRepo.GetByID(r.Context(), jobID)
	respondJSON(w, http.StatusOK, jobToResponse(job))
}
