package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockEnqueuer records enqueued tasks
type mockEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tasks = append(m.tasks, task)
	m.opts = append(m.opts, opts)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault, Type: task.Type()}, nil
}

func queueOf(opts []asynq.Option) string {
	for _, o := range opts {
		if o.Type() == asynq.QueueOpt {
			return o.Value().(string)
		}
	}
	return ""
}

func TestParseRatingsRecalculate(t *testing.T) {
	tests := []struct {
		name          string
		payload       []byte
		expectedID    int
		expectedError bool
	}{
		{name: "valid", payload: []byte(`{"courseId":7}`), expectedID: 7},
		{name: "malformed", payload: []byte(`{`), expectedError: true},
		{name: "missing course id", payload: []byte(`{}`), expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseRatingsRecalculate(asynq.NewTask(TypeRatingsRecalculate, tt.payload))
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, p.CourseID)
		})
	}
}

func TestParseEnrollmentConfirmation(t *testing.T) {
	task, err := NewEnrollmentConfirmationTask(EnrollmentConfirmationPayload{EnrollmentID: 3, UserID: 1, CourseID: 2})
	require.NoError(t, err)
	assert.Equal(t, TypeEnrollmentConfirmation, task.Type())

	p, err := ParseEnrollmentConfirmation(task)
	require.NoError(t, err)
	assert.Equal(t, EnrollmentConfirmationPayload{EnrollmentID: 3, UserID: 1, CourseID: 2}, p)

	_, err = ParseEnrollmentConfirmation(asynq.NewTask(TypeEnrollmentConfirmation, []byte(`{"userId":1}`)))
	assert.Error(t, err)
}

func TestDispatcher(t *testing.T) {
	enqueuer := &mockEnqueuer{}
	d := NewDispatcher(enqueuer, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, d.RecalculateRatings(ctx, 5))
	require.NoError(t, d.ReconcileRatings(ctx))
	require.NoError(t, d.SendEnrollmentConfirmation(ctx, EnrollmentConfirmationPayload{EnrollmentID: 1, UserID: 2, CourseID: 3}))
	require.NoError(t, d.CleanupTokens(ctx))

	require.Len(t, enqueuer.tasks, 4)
	assert.Equal(t, TypeRatingsRecalculate, enqueuer.tasks[0].Type())
	assert.JSONEq(t, `{"courseId":5}`, string(enqueuer.tasks[0].Payload()))
	assert.Equal(t, TypeRatingsReconcile, enqueuer.tasks[1].Type())
	assert.Equal(t, TypeEnrollmentConfirmation, enqueuer.tasks[2].Type())
	assert.Equal(t, QueueImmediate, queueOf(enqueuer.opts[2]))
	assert.Equal(t, TypeTokensCleanup, enqueuer.tasks[3].Type())
	assert.Equal(t, QueueDefault, queueOf(enqueuer.opts[3]))
}

func TestDispatcher_EnqueueError(t *testing.T) {
	d := NewDispatcher(&mockEnqueuer{err: errors.New("redis down")}, zap.NewNop())

	err := d.RecalculateRatings(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TypeRatingsRecalculate)
	assert.Contains(t, err.Error(), "redis down")
}
