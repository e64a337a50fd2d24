package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/coursemarket/backend/internal/models"
	"go.uber.org/zap"
)

// ReviewAggregator computes the rating summary of a reviewable
type ReviewAggregator interface {
	AggregateByReviewable(ctx context.Context, reviewableType models.ReviewableType, reviewableID int) (models.RatingSummary, error)
}

// CourseRatingRepository stores course rating summaries
type CourseRatingRepository interface {
	// Method UpdateRatings writes the rating summary to the course.
	//
	// If the course does not exist, ErrNotFound will be returned.
	UpdateRatings(ctx context.Context, id int, summary models.RatingSummary) error
	// Method GetAllIDs returns the ids of every course.
	GetAllIDs(ctx context.Context) ([]int, error)
}

type ratingService struct {
	reviews ReviewAggregator
	courses CourseRatingRepository
	logger  *zap.Logger
}

// NewRatingService creates a new rating service
func NewRatingService(reviews ReviewAggregator, courses CourseRatingRepository, logger *zap.Logger) *ratingService {
	return &ratingService{
		reviews: reviews,
		courses: courses,
		logger:  logger,
	}
}

// CalculateRatings recomputes the average rating and review count of a course and stores them.
// A course without reviews gets rating 0 and 0 reviews.
func (s *ratingService) CalculateRatings(ctx context.Context, courseID int) (models.RatingSummary, error) {
	summary, err := s.reviews.AggregateByReviewable(ctx, models.ReviewableCourse, courseID)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("failed to aggregate reviews: %w", err)
	}

	if summary.Reviews == 0 {
		summary.Rating = 0
	} else {
		summary.Rating = math.Round(summary.Rating*10) / 10
	}

	if err := s.courses.UpdateRatings(ctx, courseID, summary); err != nil {
		return models.RatingSummary{}, err
	}

	return summary, nil
}

// ReconcileAll recalculates the rating of every course.
// Failures of single courses do not stop the run; they are returned joined.
func (s *ratingService) ReconcileAll(ctx context.Context) error {
	ids, err := s.courses.GetAllIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.CalculateRatings(ctx, id); err != nil {
			// The course may have been deleted since the ids were read
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("course %d: %w", id, err))
		}
	}

	s.logger.Info("course ratings reconciled", zap.Int("courses", len(ids)), zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}
