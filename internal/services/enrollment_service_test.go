package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coursemarket/backend/internal/models"
	"github.com/coursemarket/backend/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type enrollmentKey struct{ userID, courseID int }

// mockEnrollmentRepository is an in-memory EnrollmentRepository
type mockEnrollmentRepository struct {
	enrollments map[enrollmentKey]*models.Enrollment
	nextID      int
	createErr   error
	// onCreate runs before a create is stored, simulating a concurrent insert
	onCreate        func(m *mockEnrollmentRepository, e *models.Enrollment)
	replacedLessons bool
}

func newMockEnrollmentRepository(enrollments ...*models.Enrollment) *mockEnrollmentRepository {
	m := &mockEnrollmentRepository{enrollments: make(map[enrollmentKey]*models.Enrollment), nextID: 1}
	for _, e := range enrollments {
		m.enrollments[enrollmentKey{e.UserID, e.CourseID}] = e
		if e.ID >= m.nextID {
			m.nextID = e.ID + 1
		}
	}
	return m
}

func (m *mockEnrollmentRepository) GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	e, ok := m.enrollments[enrollmentKey{userID, courseID}]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (m *mockEnrollmentRepository) GetByUser(ctx context.Context, userID int) ([]models.Enrollment, error) {
	var result []models.Enrollment
	for k, e := range m.enrollments {
		if k.userID == userID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepository) ExistsByUserAndCourse(ctx context.Context, userID, courseID int) (bool, error) {
	_, ok := m.enrollments[enrollmentKey{userID, courseID}]
	return ok, nil
}

func (m *mockEnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.onCreate != nil {
		m.onCreate(m, enrollment)
	}
	if m.createErr != nil {
		return m.createErr
	}
	key := enrollmentKey{enrollment.UserID, enrollment.CourseID}
	if _, ok := m.enrollments[key]; ok {
		return models.ErrAlreadyEnrolled
	}
	enrollment.ID = m.nextID
	m.nextID++
	copied := *enrollment
	m.enrollments[key] = &copied
	return nil
}

func (m *mockEnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment, replaceProgress bool) error {
	key := enrollmentKey{enrollment.UserID, enrollment.CourseID}
	if _, ok := m.enrollments[key]; !ok {
		return models.ErrNotFound
	}
	m.replacedLessons = replaceProgress
	copied := *enrollment
	m.enrollments[key] = &copied
	return nil
}

func (m *mockEnrollmentRepository) Delete(ctx context.Context, userID, courseID int) error {
	key := enrollmentKey{userID, courseID}
	if _, ok := m.enrollments[key]; !ok {
		return models.ErrNotFound
	}
	delete(m.enrollments, key)
	return nil
}

// mockPaymentGateway serves fixed intents
type mockPaymentGateway struct {
	intents   map[string]*models.PaymentIntent
	created   []models.CreateIntentParams
	createErr error
}

func (m *mockPaymentGateway) CreateIntent(ctx context.Context, params models.CreateIntentParams) (*models.PaymentIntent, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, params)
	return &models.PaymentIntent{
		ID:           "pi_new",
		ClientSecret: "pi_new_secret",
		Amount:       params.Amount,
		Currency:     params.Currency,
		Status:       "requires_payment_method",
		Metadata:     params.Metadata,
	}, nil
}

func (m *mockPaymentGateway) GetIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	intent, ok := m.intents[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return intent, nil
}

// mockEnrollmentJobs records confirmation emails
type mockEnrollmentJobs struct {
	sent []tasks.EnrollmentConfirmationPayload
	err  error
}

func (m *mockEnrollmentJobs) SendEnrollmentConfirmation(ctx context.Context, payload tasks.EnrollmentConfirmationPayload) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, payload)
	return nil
}

func succeededIntent(id string, amount int64, userID, courseID string) *models.PaymentIntent {
	return &models.PaymentIntent{
		ID:       id,
		Amount:   amount,
		Currency: "usd",
		Status:   models.PaymentIntentSucceeded,
		Metadata: map[string]string{"user_id": userID, "course_id": courseID},
	}
}

func newEnrollmentTestCourses() *mockCourseRepository {
	return newMockCourseRepository(
		&models.Course{ID: 1, Title: "Free Go", Price: 0},
		&models.Course{ID: 2, Title: "Paid Go", Price: 19.99},
	)
}

func TestEnrollmentService_Enroll(t *testing.T) {
	intents := map[string]*models.PaymentIntent{
		"pi_ok":            succeededIntent("pi_ok", 1999, "5", "2"),
		"pi_pending":       {ID: "pi_pending", Amount: 1999, Currency: "usd", Status: "processing", Metadata: map[string]string{"user_id": "5", "course_id": "2"}},
		"pi_cheap":         succeededIntent("pi_cheap", 100, "5", "2"),
		"pi_other_user":    succeededIntent("pi_other_user", 1999, "6", "2"),
		"pi_other_course":  succeededIntent("pi_other_course", 1999, "5", "3"),
		"pi_wrong_currecy": {ID: "pi_wrong_currecy", Amount: 1999, Currency: "eur", Status: models.PaymentIntentSucceeded, Metadata: map[string]string{"user_id": "5", "course_id": "2"}},
	}

	tests := []struct {
		name            string
		courseID        int
		intentID        string
		existing        []*models.Enrollment
		expectedErr     error
		expectedCreated bool
		expectedStatus  models.PaymentStatus
	}{
		{name: "free course bypasses payment", courseID: 1, expectedCreated: true, expectedStatus: models.PaymentStatusFree},
		{name: "free course ignores intent", courseID: 1, intentID: "pi_ok", expectedCreated: true, expectedStatus: models.PaymentStatusFree},
		{name: "paid course with succeeded intent", courseID: 2, intentID: "pi_ok", expectedCreated: true, expectedStatus: models.PaymentStatusPaid},
		{name: "unknown course", courseID: 9, expectedErr: models.ErrNotFound},
		{name: "paid course without intent", courseID: 2, expectedErr: models.ErrInvalidInput},
		{name: "unknown intent", courseID: 2, intentID: "pi_missing", expectedErr: models.ErrPaymentRequired},
		{name: "intent not succeeded", courseID: 2, intentID: "pi_pending", expectedErr: models.ErrPaymentRequired},
		{name: "amount mismatch", courseID: 2, intentID: "pi_cheap", expectedErr: models.ErrPaymentRequired},
		{name: "currency mismatch", courseID: 2, intentID: "pi_wrong_currecy", expectedErr: models.ErrPaymentRequired},
		{name: "intent of another user", courseID: 2, intentID: "pi_other_user", expectedErr: models.ErrPaymentRequired},
		{name: "intent of another course", courseID: 2, intentID: "pi_other_course", expectedErr: models.ErrPaymentRequired},
		{
			name:        "already enrolled in free course",
			courseID:    1,
			existing:    []*models.Enrollment{{ID: 3, UserID: 5, CourseID: 1, PaymentStatus: models.PaymentStatusFree}},
			expectedErr: models.ErrAlreadyEnrolled,
		},
		{
			name:        "already enrolled with another intent",
			courseID:    2,
			intentID:    "pi_ok",
			existing:    []*models.Enrollment{{ID: 3, UserID: 5, CourseID: 2, PaymentIntentID: "pi_first"}},
			expectedErr: models.ErrAlreadyEnrolled,
		},
		{
			name:           "retry with same intent is idempotent",
			courseID:       2,
			intentID:       "pi_ok",
			existing:       []*models.Enrollment{{ID: 3, UserID: 5, CourseID: 2, PaymentStatus: models.PaymentStatusPaid, PaymentIntentID: "pi_ok"}},
			expectedStatus: models.PaymentStatusPaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockEnrollmentRepository(tt.existing...)
			jobs := &mockEnrollmentJobs{}
			svc := NewEnrollmentService(repo, newEnrollmentTestCourses(), &mockPaymentGateway{intents: intents}, jobs, "usd", zap.NewNop())

			enrollment, created, err := svc.Enroll(context.Background(), 5, tt.courseID, &models.EnrollRequest{PaymentIntentID: tt.intentID})
			if tt.expectedErr != nil {
				assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
				assert.Nil(t, enrollment)
				assert.Empty(t, jobs.sent)
				assert.Len(t, repo.enrollments, len(tt.existing))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedCreated, created)
			assert.Equal(t, tt.expectedStatus, enrollment.PaymentStatus)
			assert.Len(t, repo.enrollments, 1)
			if created {
				assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
				assert.Equal(t, 0, enrollment.Progress)
				require.NotNil(t, enrollment.Course)
				assert.Equal(t, tt.courseID, enrollment.Course.ID)
				require.Len(t, jobs.sent, 1)
				assert.Equal(t, enrollment.ID, jobs.sent[0].EnrollmentID)
			} else {
				assert.Equal(t, 3, enrollment.ID)
				assert.Empty(t, jobs.sent)
			}
		})
	}
}

func TestEnrollmentService_Enroll_RaceWithSameIntent(t *testing.T) {
	repo := newMockEnrollmentRepository()
	repo.onCreate = func(m *mockEnrollmentRepository, e *models.Enrollment) {
		// The first request commits between our existence check and insert
		m.onCreate = nil
		winner := *e
		winner.ID = 42
		m.enrollments[enrollmentKey{e.UserID, e.CourseID}] = &winner
	}
	intents := map[string]*models.PaymentIntent{"pi_ok": succeededIntent("pi_ok", 1999, "5", "2")}
	svc := NewEnrollmentService(repo, newEnrollmentTestCourses(), &mockPaymentGateway{intents: intents}, &mockEnrollmentJobs{}, "usd", zap.NewNop())

	enrollment, created, err := svc.Enroll(context.Background(), 5, 2, &models.EnrollRequest{PaymentIntentID: "pi_ok"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 42, enrollment.ID)
}

func TestEnrollmentService_Enroll_RaceWithoutIntent(t *testing.T) {
	repo := newMockEnrollmentRepository()
	repo.createErr = models.ErrAlreadyEnrolled
	svc := NewEnrollmentService(repo, newEnrollmentTestCourses(), &mockPaymentGateway{}, &mockEnrollmentJobs{}, "usd", zap.NewNop())

	_, _, err := svc.Enroll(context.Background(), 5, 1, &models.EnrollRequest{})
	assert.True(t, errors.Is(err, models.ErrAlreadyEnrolled))
}

func TestEnrollmentService_Enroll_ConfirmationFailureIsNotFatal(t *testing.T) {
	repo := newMockEnrollmentRepository()
	jobs := &mockEnrollmentJobs{err: errors.New("redis down")}
	svc := NewEnrollmentService(repo, newEnrollmentTestCourses(), &mockPaymentGateway{}, jobs, "usd", zap.NewNop())

	_, created, err := svc.Enroll(context.Background(), 5, 1, &models.EnrollRequest{})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestEnrollmentService_FreeEnrollmentAppearsInMyEnrollments(t *testing.T) {
	repo := newMockEnrollmentRepository()
	svc := NewEnrollmentService(repo, newEnrollmentTestCourses(), &mockPaymentGateway{}, &mockEnrollmentJobs{}, "usd", zap.NewNop())

	_, _, err := svc.Enroll(context.Background(), 5, 1, &models.EnrollRequest{})
	require.NoError(t, err)

	my, err := svc.GetMy(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, my, 1)
	assert.Equal(t, 1, my[0].CourseID)

	empty, err := svc.GetMy(context.Background(), 6)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestEnrollmentService_Update(t *testing.T) {
	intPtr := func(i int) *int { return &i }
	status := func(s models.EnrollmentStatus) *models.EnrollmentStatus { return &s }
	lessons := func(l ...models.LessonProgress) *[]models.LessonProgress { return &l }

	tests := []struct {
		name            string
		req             *models.UpdateEnrollmentRequest
		expectedErr     error
		expectedReplace bool
	}{
		{name: "progress and status", req: &models.UpdateEnrollmentRequest{Progress: intPtr(50), Status: status(models.EnrollmentStatusPaused)}},
		{
			name:            "replace lessons",
			req:             &models.UpdateEnrollmentRequest{LessonsProgress: lessons(models.LessonProgress{LessonID: 1, WatchedDuration: 30})},
			expectedReplace: true,
		},
		{name: "empty", req: &models.UpdateEnrollmentRequest{}, expectedErr: models.ErrInvalidInput},
		{name: "progress above 100", req: &models.UpdateEnrollmentRequest{Progress: intPtr(101)}, expectedErr: models.ErrInvalidInput},
		{name: "negative progress", req: &models.UpdateEnrollmentRequest{Progress: intPtr(-1)}, expectedErr: models.ErrInvalidInput},
		{name: "unknown status", req: &models.UpdateEnrollmentRequest{Status: status("finished")}, expectedErr: models.ErrInvalidInput},
		{name: "empty status", req: &models.UpdateEnrollmentRequest{Status: status("")}, expectedErr: models.ErrInvalidInput},
		{
			name:        "negative watched duration",
			req:         &models.UpdateEnrollmentRequest{LessonsProgress: lessons(models.LessonProgress{LessonID: 1, WatchedDuration: -1})},
			expectedErr: models.ErrInvalidInput,
		},
		{
			name:        "duplicate lesson",
			req:         &models.UpdateEnrollmentRequest{LessonsProgress: lessons(models.LessonProgress{LessonID: 1}, models.LessonProgress{LessonID: 1})},
			expectedErr: models.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockEnrollmentRepository(&models.Enrollment{
				ID: 1, UserID: 5, CourseID: 1, Status: models.EnrollmentStatusActive, EnrolledAt: time.Now(),
			})
			svc := NewEnrollmentService(repo, newEnrollmentTestCourses(), &mockPaymentGateway{}, &mockEnrollmentJobs{}, "usd", zap.NewNop())

			enrollment, err := svc.Update(context.Background(), 5, 1, tt.req)
			if tt.expectedErr != nil {
				assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedReplace, repo.replacedLessons)
			if tt.req.Progress != nil {
				assert.Equal(t, *tt.req.Progress, enrollment.Progress)
			}
			if tt.req.Status != nil {
				assert.Equal(t, *tt.req.Status, enrollment.Status)
			}
			if tt.req.LessonsProgress != nil {
				assert.Equal(t, *tt.req.LessonsProgress, enrollment.LessonsProgress)
			}
		})
	}
}

func TestEnrollmentService_UnenrollAndGet(t *testing.T) {
	repo := newMockEnrollmentRepository(&models.Enrollment{ID: 1, UserID: 5, CourseID: 1})
	svc := NewEnrollmentService(repo, newEnrollmentTestCourses(), &mockPaymentGateway{}, &mockEnrollmentJobs{}, "usd", zap.NewNop())

	enrollment, err := svc.Get(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, enrollment.ID)

	require.NoError(t, svc.Unenroll(context.Background(), 5, 1))

	_, err = svc.Get(context.Background(), 5, 1)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(svc.Unenroll(context.Background(), 5, 1), models.ErrNotFound))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), toMinorUnits(19.99))
	assert.Equal(t, int64(1000), toMinorUnits(10))
	assert.Equal(t, int64(29), toMinorUnits(0.29))
	assert.Equal(t, int64(0), toMinorUnits(0))
}
