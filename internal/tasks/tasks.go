// Package tasks defines the background jobs shared by the API, worker and scheduler
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task types
const (
	TypeRatingsRecalculate     = "ratings:recalculate"
	TypeRatingsReconcile       = "ratings:reconcile"
	TypeEnrollmentConfirmation = "email:enrollment_confirmation"
	TypeTokensCleanup          = "tokens:cleanup"
)

// Queue names
const (
	QueueImmediate = "immediate"
	QueueDefault   = "default"
)

// RatingsRecalculatePayload identifies the course whose rating must be recalculated
type RatingsRecalculatePayload struct {
	CourseID int `json:"courseId"`
}

// EnrollmentConfirmationPayload identifies a new enrollment to confirm by email
type EnrollmentConfirmationPayload struct {
	EnrollmentID int `json:"enrollmentId"`
	UserID       int `json:"userId"`
	CourseID     int `json:"courseId"`
}

// NewRatingsRecalculateTask creates a rating recalculation task for one course
func NewRatingsRecalculateTask(courseID int) (*asynq.Task, error) {
	payload, err := json.Marshal(RatingsRecalculatePayload{CourseID: courseID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRatingsRecalculate, payload), nil
}

// NewRatingsReconcileTask creates a task recalculating the rating of every course
func NewRatingsReconcileTask() *asynq.Task {
	return asynq.NewTask(TypeRatingsReconcile, nil)
}

// NewEnrollmentConfirmationTask creates a confirmation email task
func NewEnrollmentConfirmationTask(p EnrollmentConfirmationPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEnrollmentConfirmation, payload), nil
}

// NewTokensCleanupTask creates a task removing expired refresh tokens
func NewTokensCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeTokensCleanup, nil)
}

// ParseRatingsRecalculate decodes the payload of a ratings:recalculate task
func ParseRatingsRecalculate(t *asynq.Task) (RatingsRecalculatePayload, error) {
	var p RatingsRecalculatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid %s payload: %w", t.Type(), err)
	}
	if p.CourseID <= 0 {
		return p, fmt.Errorf("invalid %s payload: course id is required", t.Type())
	}
	return p, nil
}

// ParseEnrollmentConfirmation decodes the payload of an email:enrollment_confirmation task
func ParseEnrollmentConfirmation(t *asynq.Task) (EnrollmentConfirmationPayload, error) {
	var p EnrollmentConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid %s payload: %w", t.Type(), err)
	}
	if p.UserID <= 0 || p.CourseID <= 0 {
		return p, fmt.Errorf("invalid %s payload: user and course ids are required", t.Type())
	}
	return p, nil
}

// Enqueuer is the part of asynq.Client used to submit tasks
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher enqueues marketplace jobs with their queue and retry options
type Dispatcher struct {
	client Enqueuer
	logger *zap.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(client Enqueuer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		logger: logger,
	}
}

// RecalculateRatings schedules a rating recalculation for a course
func (d *Dispatcher) RecalculateRatings(ctx context.Context, courseID int) error {
	task, err := NewRatingsRecalculateTask(courseID)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
}

// ReconcileRatings schedules a recalculation of every course rating.
// Only one reconciliation can be pending at a time.
func (d *Dispatcher) ReconcileRatings(ctx context.Context) error {
	return d.enqueue(ctx, NewRatingsReconcileTask(), asynq.Queue(QueueDefault), asynq.Unique(time.Hour))
}

// SendEnrollmentConfirmation schedules the confirmation email of a new enrollment
func (d *Dispatcher) SendEnrollmentConfirmation(ctx context.Context, p EnrollmentConfirmationPayload) error {
	task, err := NewEnrollmentConfirmationTask(p)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task, asynq.Queue(QueueImmediate), asynq.MaxRetry(3))
}

// CleanupTokens schedules removal of expired refresh tokens
func (d *Dispatcher) CleanupTokens(ctx context.Context) error {
	return d.enqueue(ctx, NewTokensCleanupTask(), asynq.Queue(QueueDefault), asynq.Unique(30*time.Minute))
}

func (d *Dispatcher) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	info, err := d.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}
	d.logger.Debug("task enqueued", zap.String("type", task.Type()), zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}
