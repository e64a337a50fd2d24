package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/coursemarket/backend/internal/models"
	"github.com/coursemarket/backend/internal/tasks"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRatingService struct {
	calculated []int
	calcErr    error
	reconciled int
}

func (m *mockRatingService) CalculateRatings(ctx context.Context, courseID int) (models.RatingSummary, error) {
	m.calculated = append(m.calculated, courseID)
	if m.calcErr != nil {
		return models.RatingSummary{}, m.calcErr
	}
	return models.RatingSummary{Rating: 4.5, Reviews: 2}, nil
}

func (m *mockRatingService) ReconcileAll(ctx context.Context) error {
	m.reconciled++
	return nil
}

type mockUserReader struct {
	users map[int]*models.User
}

func (m *mockUserReader) GetByID(ctx context.Context, id int) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %w", models.ErrNotFound)
}

type mockCourseReader struct {
	courses map[int]*models.Course
}

func (m *mockCourseReader) GetByID(ctx context.Context, id int) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("course %w", models.ErrNotFound)
}

type mockEnrollmentReader struct {
	enrolled map[[2]int]bool
	err      error
}

func (m *mockEnrollmentReader) GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.enrolled[[2]int{userID, courseID}] {
		return &models.Enrollment{UserID: userID, CourseID: courseID}, nil
	}
	return nil, fmt.Errorf("enrollment %w", models.ErrNotFound)
}

type mockTokenCleaner struct {
	before time.Time
}

func (m *mockTokenCleaner) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.before = now
	return 3, nil
}

type sentEmail struct {
	to, subject, body string
}

type mockMailer struct {
	sent []sentEmail
	err  error
}

func (m *mockMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to, subject, body})
	return nil
}

type workerFixture struct {
	ratings     *mockRatingService
	enrollments *mockEnrollmentReader
	tokens      *mockTokenCleaner
	mailer      *mockMailer
	worker      *Worker
}

func newWorkerFixture() *workerFixture {
	f := &workerFixture{
		ratings:     &mockRatingService{},
		enrollments: &mockEnrollmentReader{enrolled: map[[2]int]bool{{1, 2}: true}},
		tokens:      &mockTokenCleaner{},
		mailer:      &mockMailer{},
	}
	f.worker = NewWorker(
		zap.NewNop(),
		f.ratings,
		&mockUserReader{users: map[int]*models.User{1: {ID: 1, Name: "Ann <admin>", Email: "ann@example.com"}}},
		&mockCourseReader{courses: map[int]*models.Course{2: {ID: 2, Title: "Go Basics", Instructor: "Rob"}}},
		f.enrollments,
		f.tokens,
		f.mailer,
	)
	return f
}

func TestWorker_HandleRatingsRecalculate(t *testing.T) {
	tests := []struct {
		name        string
		task        *asynq.Task
		calcErr     error
		expectErr   bool
		expectSkip  bool
		expectCalls []int
	}{
		{
			name:        "recalculates course",
			task:        mustTask(tasks.NewRatingsRecalculateTask(5)),
			expectCalls: []int{5},
		},
		{
			name:        "deleted course is skipped",
			task:        mustTask(tasks.NewRatingsRecalculateTask(5)),
			calcErr:     fmt.Errorf("course %w", models.ErrNotFound),
			expectCalls: []int{5},
		},
		{
			name:        "database error is retried",
			task:        mustTask(tasks.NewRatingsRecalculateTask(5)),
			calcErr:     errors.New("connection refused"),
			expectErr:   true,
			expectCalls: []int{5},
		},
		{
			name:       "malformed payload is not retried",
			task:       asynq.NewTask(tasks.TypeRatingsRecalculate, []byte("{")),
			expectErr:  true,
			expectSkip: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkerFixture()
			f.ratings.calcErr = tt.calcErr

			err := f.worker.HandleRatingsRecalculate(context.Background(), tt.task)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectSkip, errors.Is(err, asynq.SkipRetry))
			assert.Equal(t, tt.expectCalls, f.ratings.calculated)
		})
	}
}

func TestWorker_HandleRatingsReconcile(t *testing.T) {
	f := newWorkerFixture()

	err := f.worker.HandleRatingsReconcile(context.Background(), tasks.NewRatingsReconcileTask())

	require.NoError(t, err)
	assert.Equal(t, 1, f.ratings.reconciled)
}

func TestWorker_HandleEnrollmentConfirmation(t *testing.T) {
	tests := []struct {
		name        string
		payload     tasks.EnrollmentConfirmationPayload
		enrollErr   error
		mailErr     error
		expectErr   bool
		expectSends int
	}{
		{
			name:        "sends email",
			payload:     tasks.EnrollmentConfirmationPayload{EnrollmentID: 9, UserID: 1, CourseID: 2},
			expectSends: 1,
		},
		{
			name:    "unenrolled before delivery",
			payload: tasks.EnrollmentConfirmationPayload{EnrollmentID: 9, UserID: 1, CourseID: 3},
		},
		{
			name:      "lookup failure is retried",
			payload:   tasks.EnrollmentConfirmationPayload{EnrollmentID: 9, UserID: 1, CourseID: 2},
			enrollErr: errors.New("connection refused"),
			expectErr: true,
		},
		{
			name:      "smtp failure is retried",
			payload:   tasks.EnrollmentConfirmationPayload{EnrollmentID: 9, UserID: 1, CourseID: 2},
			mailErr:   errors.New("dial tcp: connection refused"),
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkerFixture()
			f.enrollments.err = tt.enrollErr
			f.mailer.err = tt.mailErr

			task, err := tasks.NewEnrollmentConfirmationTask(tt.payload)
			require.NoError(t, err)

			err = f.worker.HandleEnrollmentConfirmation(context.Background(), task)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, f.mailer.sent, tt.expectSends)
			if tt.expectSends > 0 {
				email := f.mailer.sent[0]
				assert.Equal(t, "ann@example.com", email.to)
				assert.Equal(t, "You are enrolled in Go Basics", email.subject)
				assert.Contains(t, email.body, "Ann &lt;admin&gt;")
				assert.False(t, strings.Contains(email.body, "<admin>"))
			}
		})
	}
}

func TestWorker_HandleTokensCleanup(t *testing.T) {
	f := newWorkerFixture()

	err := f.worker.HandleTokensCleanup(context.Background(), tasks.NewTokensCleanupTask())

	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), f.tokens.before, time.Minute)
}

func TestWorker_Register(t *testing.T) {
	f := newWorkerFixture()
	mux := asynq.NewServeMux()
	f.worker.Register(mux)

	err := mux.ProcessTask(context.Background(), tasks.NewRatingsReconcileTask())

	require.NoError(t, err)
	assert.Equal(t, 1, f.ratings.reconciled)
}

func mustTask(t *asynq.Task, err error) *asynq.Task {
	if err != nil {
		panic(err)
	}
	return t
}
