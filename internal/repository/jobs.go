package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job statuses
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job is a unit of background work.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      []byte
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ScheduledAt  time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	CreatedAt    time.Time
}

// EnqueueJobParams describes a job to add to the queue.
type EnqueueJobParams struct {
	JobType     string
	Payload     []byte
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// JobQueue stores background jobs.
type JobQueue interface {
	EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error)
	// DequeueJob claims the highest-priority due job, marks it running and
	// counts the attempt. Returns ErrNoJobs when nothing is ready.
	DequeueJob(ctx context.Context) (Job, error)
	CompleteJob(ctx context.Context, id uuid.UUID) error
	// FailJob records a failed attempt. The job is rescheduled with backoff
	// unless permanent is set or its attempts are exhausted.
	FailJob(ctx context.Context, job Job, message string, permanent bool) error
	// RecoverStaleJobs returns jobs stuck in running for longer than
	// threshold to pending.
	RecoverStaleJobs(ctx context.Context, threshold time.Duration) (int64, error)
}

// RetryBaseDelay is the backoff after a job's first failed attempt. It
// doubles with every further attempt.
const RetryBaseDelay = 30 * time.Second

// nextAttempt decides what happens to a job after a failed attempt.
func nextAttempt(job Job, permanent bool, now time.Time) (status string, scheduledAt time.Time) {
	if permanent || job.Attempts >= job.MaxAttempts {
		return JobStatusFailed, job.ScheduledAt
	}
	shift := job.Attempts - 1
	if shift < 0 {
		shift = 0
	}
	return JobStatusPending, now.Add(RetryBaseDelay * time.Duration(1<<shift))
}

// =============================================================================
// Postgres
// =============================================================================

// PostgresJobQueue keeps jobs in the jobs table. Dequeue uses
// FOR UPDATE SKIP LOCKED so several workers can poll concurrently.
type PostgresJobQueue struct {
	db *sql.DB
}

// NewPostgresJobQueue wraps an open database.
func NewPostgresJobQueue(db *sql.DB) *PostgresJobQueue {
	return &PostgresJobQueue{db: db}
}

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts, scheduled_at, started_at, completed_at, COALESCE(error_message, ''), created_at`

func scanJob(row interface{ Scan(...any) error }) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Priority, &j.Attempts, &j.MaxAttempts,
		&j.ScheduledAt, &j.StartedAt, &j.CompletedAt, &j.ErrorMessage, &j.CreatedAt)
	return j, err
}

func (q *PostgresJobQueue) EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
INSERT INTO jobs (id, job_type, payload, priority, max_attempts, scheduled_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+jobColumns,
		uuid.New(), params.JobType, params.Payload, params.Priority, params.MaxAttempts, params.ScheduledAt)

	job, err := scanJob(row)
	if err != nil {
		return Job{}, mapError(fmt.Errorf("insert job: %w", err))
	}
	return job, nil
}

func (q *PostgresJobQueue) DequeueJob(ctx context.Context) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
UPDATE jobs SET status = 'running', started_at = now(), attempts = attempts + 1
WHERE id = (
    SELECT id FROM jobs
    WHERE status = 'pending' AND scheduled_at <= now()
    ORDER BY priority DESC, scheduled_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING `+jobColumns)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNoJobs
	}
	if err != nil {
		return Job{}, fmt.Errorf("dequeue job: %w", err)
	}
	return job, nil
}

func (q *PostgresJobQueue) CompleteJob(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'completed', completed_at = now(), error_message = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (q *PostgresJobQueue) FailJob(ctx context.Context, job Job, message string, permanent bool) error {
	status, scheduledAt := nextAttempt(job, permanent, time.Now())

	var completedAt *time.Time
	if status == JobStatusFailed {
		now := time.Now()
		completedAt = &now
	}

	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = $2, scheduled_at = $3, completed_at = $4, error_message = $5, started_at = NULL WHERE id = $1`,
		job.ID, status, scheduledAt, completedAt, message)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

func (q *PostgresJobQueue) RecoverStaleJobs(ctx context.Context, threshold time.Duration) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'pending', started_at = NULL
WHERE status = 'running' AND started_at < now() - make_interval(secs => $1)`,
		threshold.Seconds())
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// =============================================================================
// Memory
// =============================================================================

// MemoryJobQueue is an in-process JobQueue for single-instance runs and tests.
type MemoryJobQueue struct {
	mu   sync.Mutex
	jobs []*Job
	now  func() time.Time
}

// NewMemoryJobQueue creates an empty queue.
func NewMemoryJobQueue() *MemoryJobQueue {
	return &MemoryJobQueue{now: time.Now}
}

func (q *MemoryJobQueue) EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := &Job{
		ID:          uuid.New(),
		JobType:     params.JobType,
		Payload:     append([]byte(nil), params.Payload...),
		Status:      JobStatusPending,
		Priority:    params.Priority,
		MaxAttempts: params.MaxAttempts,
		ScheduledAt: params.ScheduledAt,
		CreatedAt:   q.now(),
	}
	q.jobs = append(q.jobs, job)
	return *job, nil
}

func (q *MemoryJobQueue) DequeueJob(ctx context.Context) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var ready []*Job
	for _, j := range q.jobs {
		if j.Status == JobStatusPending && !j.ScheduledAt.After(now) {
			ready = append(ready, j)
		}
	}
	if len(ready) == 0 {
		return Job{}, ErrNoJobs
	}
	sort.SliceStable(ready, func(a, b int) bool {
		if ready[a].Priority != ready[b].Priority {
			return ready[a].Priority > ready[b].Priority
		}
		return ready[a].ScheduledAt.Before(ready[b].ScheduledAt)
	})

	j := ready[0]
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Attempts++
	return *j, nil
}

func (q *MemoryJobQueue) find(id uuid.UUID) (*Job, error) {
	for _, j := range q.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, ErrNotFound
}

func (q *MemoryJobQueue) CompleteJob(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, err := q.find(id)
	if err != nil {
		return err
	}
	now := q.now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.ErrorMessage = ""
	return nil
}

func (q *MemoryJobQueue) FailJob(ctx context.Context, job Job, message string, permanent bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, err := q.find(job.ID)
	if err != nil {
		return err
	}
	now := q.now()
	j.Status, j.ScheduledAt = nextAttempt(*j, permanent, now)
	j.ErrorMessage = message
	j.StartedAt = nil
	if j.Status == JobStatusFailed {
		j.CompletedAt = &now
	}
	return nil
}

func (q *MemoryJobQueue) RecoverStaleJobs(ctx context.Context, threshold time.Duration) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-threshold)
	var n int64
	for _, j := range q.jobs {
		if j.Status == JobStatusRunning && j.StartedAt != nil && j.StartedAt.Before(cutoff) {
			j.Status = JobStatusPending
			j.StartedAt = nil
			n++
		}
	}
	return n, nil
}

// Jobs returns a copy of every job, in enqueue order.
func (q *MemoryJobQueue) Jobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Job, len(q.jobs))
	for i, j := range q.jobs {
		out[i] = *j
	}
	return out
}
