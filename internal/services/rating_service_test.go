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

// mockReviewAggregator returns fixed summaries per course
type mockReviewAggregator struct {
	summaries map[int]models.RatingSummary
	err       error
}

func (m *mockReviewAggregator) AggregateByReviewable(ctx context.Context, reviewableType models.ReviewableType, reviewableID int) (models.RatingSummary, error) {
	if m.err != nil {
		return models.RatingSummary{}, m.err
	}
	return m.summaries[reviewableID], nil
}

// mockCourseRatingRepository records rating updates
type mockCourseRatingRepository struct {
	ids       []int
	updated   map[int]models.RatingSummary
	failFor   map[int]error
	getIDsErr error
}

func (m *mockCourseRatingRepository) UpdateRatings(ctx context.Context, id int, summary models.RatingSummary) error {
	if err, ok := m.failFor[id]; ok {
		return err
	}
	if m.updated == nil {
		m.updated = make(map[int]models.RatingSummary)
	}
	m.updated[id] = summary
	return nil
}

func (m *mockCourseRatingRepository) GetAllIDs(ctx context.Context) ([]int, error) {
	return m.ids, m.getIDsErr
}

func TestRatingService_CalculateRatings(t *testing.T) {
	tests := []struct {
		name     string
		raw      models.RatingSummary
		expected models.RatingSummary
	}{
		{name: "no reviews", raw: models.RatingSummary{}, expected: models.RatingSummary{Rating: 0, Reviews: 0}},
		{name: "rounds to one decimal", raw: models.RatingSummary{Rating: 4.6667, Reviews: 3}, expected: models.RatingSummary{Rating: 4.7, Reviews: 3}},
		{name: "exact", raw: models.RatingSummary{Rating: 5, Reviews: 1}, expected: models.RatingSummary{Rating: 5, Reviews: 1}},
		{name: "rounds half up", raw: models.RatingSummary{Rating: 3.25, Reviews: 4}, expected: models.RatingSummary{Rating: 3.3, Reviews: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			courses := &mockCourseRatingRepository{}
			svc := NewRatingService(&mockReviewAggregator{summaries: map[int]models.RatingSummary{7: tt.raw}}, courses, zap.NewNop())

			summary, err := svc.CalculateRatings(context.Background(), 7)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, summary)
			assert.Equal(t, tt.expected, courses.updated[7])
		})
	}
}

func TestRatingService_CalculateRatings_Errors(t *testing.T) {
	svc := NewRatingService(&mockReviewAggregator{err: errors.New("db down")}, &mockCourseRatingRepository{}, zap.NewNop())
	_, err := svc.CalculateRatings(context.Background(), 1)
	assert.Error(t, err)

	courses := &mockCourseRatingRepository{failFor: map[int]error{1: models.ErrNotFound}}
	svc = NewRatingService(&mockReviewAggregator{}, courses, zap.NewNop())
	_, err = svc.CalculateRatings(context.Background(), 1)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestRatingService_ReconcileAll(t *testing.T) {
	courses := &mockCourseRatingRepository{
		ids: []int{1, 2, 3},
		failFor: map[int]error{
			2: models.ErrNotFound,
			3: errors.New("deadlock"),
		},
	}
	reviews := &mockReviewAggregator{summaries: map[int]models.RatingSummary{1: {Rating: 4, Reviews: 2}}}
	svc := NewRatingService(reviews, courses, zap.NewNop())

	err := svc.ReconcileAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "course 3")
	assert.NotContains(t, err.Error(), "course 2")
	assert.Equal(t, models.RatingSummary{Rating: 4, Reviews: 2}, courses.updated[1])
}

func TestRatingService_ReconcileAll_ListError(t *testing.T) {
	svc := NewRatingService(&mockReviewAggregator{}, &mockCourseRatingRepository{getIDsErr: errors.New("db down")}, zap.NewNop())
	assert.Error(t, svc.ReconcileAll(context.Background()))
}
