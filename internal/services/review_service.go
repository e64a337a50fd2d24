package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursemarket/backend/internal/models"
	"go.uber.org/zap"
)

// ReviewRepository is the interface that wraps methods for Reviews table data access
type ReviewRepository interface {
	// Method GetByReviewable retrieves all reviews of one reviewable, newest first.
	GetByReviewable(ctx context.Context, reviewableType models.ReviewableType, reviewableID int) ([]models.Review, error)
	// Method GetByID retrieves a review by ID.
	//
	// If review with such ID does not exist, ErrNotFound will be returned.
	GetByID(ctx context.Context, id int) (*models.Review, error)
	// Method Create inserts a review. A second review of the same reviewable by the same user
	// returns ErrAlreadyExists.
	Create(ctx context.Context, review *models.Review) error
	// Method Update stores rating and comment of a review.
	Update(ctx context.Context, review *models.Review) error
	// Method Delete removes a review.
	Delete(ctx context.Context, id int) error
}

// CourseExistenceChecker checks that a course exists
type CourseExistenceChecker interface {
	ExistsByID(ctx context.Context, id int) (bool, error)
}

// RatingCalculator recomputes course rating aggregates
type RatingCalculator interface {
	CalculateRatings(ctx context.Context, courseID int) (models.RatingSummary, error)
}

// RatingJobs schedules a deferred rating recalculation
type RatingJobs interface {
	RecalculateRatings(ctx context.Context, courseID int) error
}

type reviewService struct {
	repo    ReviewRepository
	courses CourseExistenceChecker
	ratings RatingCalculator
	jobs    RatingJobs
	logger  *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(repo ReviewRepository, courses CourseExistenceChecker, ratings RatingCalculator, jobs RatingJobs, logger *zap.Logger) *reviewService {
	return &reviewService{
		repo:    repo,
		courses: courses,
		ratings: ratings,
		jobs:    jobs,
		logger:  logger,
	}
}

// ListByCourse returns the reviews of a course
func (s *reviewService) ListByCourse(ctx context.Context, courseID int) ([]models.Review, error) {
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.repo.GetByReviewable(ctx, models.ReviewableCourse, courseID)
}

// Create adds the review of a user to a course and refreshes the course rating
func (s *reviewService) Create(ctx context.Context, userID, courseID int, req *models.CreateReviewRequest) (*models.Review, error) {
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:         userID,
		Rating:         req.Rating,
		Comment:        req.Comment,
		ReviewableType: models.ReviewableCourse,
		ReviewableID:   courseID,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, err
	}

	s.recalculate(ctx, review)
	return s.repo.GetByID(ctx, review.ID)
}

// Update changes rating or comment of a review. Only the author or an admin may do it.
func (s *reviewService) Update(ctx context.Context, userID int, role models.Role, reviewID int, req *models.UpdateReviewRequest) (*models.Review, error) {
	if req.Rating == nil && req.Comment == nil {
		return nil, fmt.Errorf("%w: at least one field is required", models.ErrInvalidInput)
	}
	if req.Comment != nil {
		comment := strings.TrimSpace(*req.Comment)
		req.Comment = &comment
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	review, err := s.authorize(ctx, userID, role, reviewID)
	if err != nil {
		return nil, err
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}
	if err := s.repo.Update(ctx, review); err != nil {
		return nil, err
	}

	s.recalculate(ctx, review)
	return s.repo.GetByID(ctx, reviewID)
}

// Delete removes a review. Only the author or an admin may do it.
func (s *reviewService) Delete(ctx context.Context, userID int, role models.Role, reviewID int) error {
	review, err := s.authorize(ctx, userID, role, reviewID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return err
	}

	s.recalculate(ctx, review)
	return nil
}

func (s *reviewService) ensureCourse(ctx context.Context, courseID int) error {
	exists, err := s.courses.ExistsByID(ctx, courseID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("course %w", models.ErrNotFound)
	}
	return nil
}

func (s *reviewService) authorize(ctx context.Context, userID int, role models.Role, reviewID int) (*models.Review, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: you can only modify your own reviews", models.ErrForbidden)
	}
	return review, nil
}

// recalculate refreshes the course rating after a review write.
// The review is already stored, so a failure is deferred to the worker instead of failing the request.
func (s *reviewService) recalculate(ctx context.Context, review *models.Review) {
	if review.ReviewableType != models.ReviewableCourse {
		return
	}

	if _, err := s.ratings.CalculateRatings(ctx, review.ReviewableID); err != nil {
		s.logger.Warn("failed to recalculate course rating, scheduling retry",
			zap.Int("course_id", review.ReviewableID), zap.Error(err))
		if err := s.jobs.RecalculateRatings(ctx, review.ReviewableID); err != nil {
			s.logger.Error("failed to schedule rating recalculation",
				zap.Int("course_id", review.ReviewableID), zap.Error(err))
		}
	}
}
