package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DukeRupert/solartek/internal/repository"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeEnrichLocation = "enrich_location"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// EnrichLocationPayload is the payload for client location enrichment jobs.
type EnrichLocationPayload struct {
	ClientID string `json:"client_id"`
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob is a generic helper for enqueuing jobs with custom options.
func EnqueueJob(
	ctx context.Context,
	queue repository.JobQueue,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&params)
	}

	job, err := queue.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

// EnqueueEnrichLocation enqueues a job that fills a client's address and UTM
// coordinates from its postal code. Enrichment is best effort, so the job
// gets a single attempt.
func EnqueueEnrichLocation(
	ctx context.Context,
	queue repository.JobQueue,
	clientID string,
	opts ...EnqueueOption,
) (repository.Job, error) {
	payload := EnrichLocationPayload{ClientID: clientID}
	opts = append([]EnqueueOption{WithMaxAttempts(1), WithPriority(PriorityLow)}, opts...)
	return EnqueueJob(ctx, queue, JobTypeEnrichLocation, payload, opts...)
}
