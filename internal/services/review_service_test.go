package services

import (
	"context"
	"errors"
	"testing"

	"github.com/coursemarket/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockReviewRepository is an in-memory ReviewRepository
type mockReviewRepository struct {
	reviews map[int]*models.Review
	nextID  int
}

func newMockReviewRepository(reviews ...*models.Review) *mockReviewRepository {
	m := &mockReviewRepository{reviews: make(map[int]*models.Review), nextID: 1}
	for _, r := range reviews {
		m.reviews[r.ID] = r
		if r.ID >= m.nextID {
			m.nextID = r.ID + 1
		}
	}
	return m
}

func (m *mockReviewRepository) GetByReviewable(ctx context.Context, reviewableType models.ReviewableType, reviewableID int) ([]models.Review, error) {
	result := make([]models.Review, 0)
	for _, r := range m.reviews {
		if r.ReviewableType == reviewableType && r.ReviewableID == reviewableID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id int) (*models.Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *mockReviewRepository) Create(ctx context.Context, review *models.Review) error {
	for _, r := range m.reviews {
		if r.UserID == review.UserID && r.ReviewableType == review.ReviewableType && r.ReviewableID == review.ReviewableID {
			return models.ErrAlreadyExists
		}
	}
	review.ID = m.nextID
	m.nextID++
	copied := *review
	m.reviews[review.ID] = &copied
	return nil
}

func (m *mockReviewRepository) Update(ctx context.Context, review *models.Review) error {
	copied := *review
	m.reviews[review.ID] = &copied
	return nil
}

func (m *mockReviewRepository) Delete(ctx context.Context, id int) error {
	delete(m.reviews, id)
	return nil
}

// mockRatingCalculator records recalculated courses
type mockRatingCalculator struct {
	calls []int
	err   error
}

func (m *mockRatingCalculator) CalculateRatings(ctx context.Context, courseID int) (models.RatingSummary, error) {
	m.calls = append(m.calls, courseID)
	return models.RatingSummary{}, m.err
}

// mockRatingJobs records scheduled recalculations
type mockRatingJobs struct {
	scheduled []int
	err       error
}

func (m *mockRatingJobs) RecalculateRatings(ctx context.Context, courseID int) error {
	m.scheduled = append(m.scheduled, courseID)
	return m.err
}

type reviewFixture struct {
	svc     *reviewService
	repo    *mockReviewRepository
	ratings *mockRatingCalculator
	jobs    *mockRatingJobs
}

func newReviewFixture(reviews ...*models.Review) *reviewFixture {
	f := &reviewFixture{
		repo:    newMockReviewRepository(reviews...),
		ratings: &mockRatingCalculator{},
		jobs:    &mockRatingJobs{},
	}
	courses := newMockCourseRepository(&models.Course{ID: 10, Title: "Go"})
	f.svc = NewReviewService(f.repo, courses, f.ratings, f.jobs, zap.NewNop())
	return f
}

func TestReviewService_Create(t *testing.T) {
	tests := []struct {
		name        string
		courseID    int
		req         *models.CreateReviewRequest
		expectedErr error
	}{
		{name: "success", courseID: 10, req: &models.CreateReviewRequest{Rating: 5, Comment: " great "}},
		{name: "unknown course", courseID: 99, req: &models.CreateReviewRequest{Rating: 5}, expectedErr: models.ErrNotFound},
		{name: "rating too high", courseID: 10, req: &models.CreateReviewRequest{Rating: 6}, expectedErr: models.ErrInvalidInput},
		{name: "rating missing", courseID: 10, req: &models.CreateReviewRequest{}, expectedErr: models.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReviewFixture()

			review, err := f.svc.Create(context.Background(), 1, tt.courseID, tt.req)
			if tt.expectedErr != nil {
				assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
				assert.Empty(t, f.ratings.calls)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "great", review.Comment)
			assert.Equal(t, models.ReviewableCourse, review.ReviewableType)
			assert.Equal(t, []int{10}, f.ratings.calls)
		})
	}
}

func TestReviewService_Create_Duplicate(t *testing.T) {
	f := newReviewFixture(&models.Review{ID: 1, UserID: 1, Rating: 4, ReviewableType: models.ReviewableCourse, ReviewableID: 10})

	_, err := f.svc.Create(context.Background(), 1, 10, &models.CreateReviewRequest{Rating: 3})
	assert.True(t, errors.Is(err, models.ErrAlreadyExists))
}

func TestReviewService_Update_Permissions(t *testing.T) {
	tests := []struct {
		name        string
		userID      int
		role        models.Role
		expectedErr error
	}{
		{name: "owner", userID: 1, role: models.RoleUser},
		{name: "admin", userID: 2, role: models.RoleAdmin},
		{name: "other user", userID: 2, role: models.RoleUser, expectedErr: models.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReviewFixture(&models.Review{ID: 1, UserID: 1, Rating: 2, ReviewableType: models.ReviewableCourse, ReviewableID: 10})
			rating := 4

			review, err := f.svc.Update(context.Background(), tt.userID, tt.role, 1, &models.UpdateReviewRequest{Rating: &rating})
			if tt.expectedErr != nil {
				assert.True(t, errors.Is(err, tt.expectedErr))
				assert.Equal(t, 2, f.repo.reviews[1].Rating)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, 4, review.Rating)
			assert.Equal(t, []int{10}, f.ratings.calls)
		})
	}
}

func TestReviewService_Delete(t *testing.T) {
	f := newReviewFixture(&models.Review{ID: 1, UserID: 1, Rating: 2, ReviewableType: models.ReviewableCourse, ReviewableID: 10})

	err := f.svc.Delete(context.Background(), 2, models.RoleUser, 1)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	require.NoError(t, f.svc.Delete(context.Background(), 1, models.RoleUser, 1))
	assert.Empty(t, f.repo.reviews)
	assert.Equal(t, []int{10}, f.ratings.calls)

	err = f.svc.Delete(context.Background(), 1, models.RoleUser, 1)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestReviewService_RecalculationFailureSchedulesJob(t *testing.T) {
	f := newReviewFixture()
	f.ratings.err = errors.New("deadlock")

	_, err := f.svc.Create(context.Background(), 1, 10, &models.CreateReviewRequest{Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, []int{10}, f.jobs.scheduled)
}

func TestReviewService_ListByCourse(t *testing.T) {
	f := newReviewFixture(
		&models.Review{ID: 1, UserID: 1, Rating: 2, ReviewableType: models.ReviewableCourse, ReviewableID: 10},
		&models.Review{ID: 2, UserID: 1, Rating: 5, ReviewableType: models.ReviewableProduct, ReviewableID: 10},
	)

	reviews, err := f.svc.ListByCourse(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	_, err = f.svc.ListByCourse(context.Background(), 11)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
