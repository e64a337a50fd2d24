package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/coursemarket/backend/internal/models"
	"github.com/coursemarket/backend/internal/tasks"
	"go.uber.org/zap"
)

// EnrollmentRepository is the interface that wraps methods for Enrollments table data access
type EnrollmentRepository interface {
	// Method GetByUserAndCourse retrieves the enrollment of a user in a course with its lesson progress.
	//
	// If the user is not enrolled, ErrNotFound will be returned.
	GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.Enrollment, error)
	// Method GetByUser retrieves all enrollments of a user with course summaries, newest first.
	GetByUser(ctx context.Context, userID int) ([]models.Enrollment, error)
	// Method Create inserts an enrollment. A duplicate (user, course) pair or payment intent
	// returns ErrAlreadyEnrolled.
	Create(ctx context.Context, enrollment *models.Enrollment) error
	// Method Update overwrites the mutable fields and, when replaceProgress is set, the lesson progress.
	Update(ctx context.Context, enrollment *models.Enrollment, replaceProgress bool) error
	// Method Delete removes the enrollment and its lesson progress in one transaction.
	//
	// If the user is not enrolled, ErrNotFound will be returned.
	Delete(ctx context.Context, userID, courseID int) error
}

// CourseReader loads a course by ID
type CourseReader interface {
	GetByID(ctx context.Context, id int) (*models.Course, error)
}

// PaymentGateway creates and inspects payment intents at the payment provider
type PaymentGateway interface {
	// Method CreateIntent creates a payment intent. Calls with the same idempotency key
	// return the same intent.
	CreateIntent(ctx context.Context, params models.CreateIntentParams) (*models.PaymentIntent, error)
	// Method GetIntent retrieves a payment intent.
	//
	// If the intent does not exist, ErrNotFound will be returned.
	GetIntent(ctx context.Context, id string) (*models.PaymentIntent, error)
}

// EnrollmentJobs schedules enrollment side effects
type EnrollmentJobs interface {
	SendEnrollmentConfirmation(ctx context.Context, payload tasks.EnrollmentConfirmationPayload) error
}

type enrollmentService struct {
	repo     EnrollmentRepository
	courses  CourseReader
	gateway  PaymentGateway
	jobs     EnrollmentJobs
	currency string
	logger   *zap.Logger
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(
	repo EnrollmentRepository,
	courses CourseReader,
	gateway PaymentGateway,
	jobs EnrollmentJobs,
	currency string,
	logger *zap.Logger,
) *enrollmentService {
	return &enrollmentService{
		repo:     repo,
		courses:  courses,
		gateway:  gateway,
		jobs:     jobs,
		currency: currency,
		logger:   logger,
	}
}

// Enroll enrolls a user in a course.
//
// Free courses are enrolled directly. Paid courses need a succeeded payment intent for the
// exact course price created for this user and course. Retrying with the intent of an existing
// enrollment returns that enrollment and false instead of creating a second one.
func (s *enrollmentService) Enroll(ctx context.Context, userID, courseID int, req *models.EnrollRequest) (*models.Enrollment, bool, error) {
	intentID := strings.TrimSpace(req.PaymentIntentID)

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetByUserAndCourse(ctx, userID, courseID)
	switch {
	case err == nil:
		if intentID != "" && existing.PaymentIntentID == intentID {
			return existing, false, nil
		}
		return nil, false, models.ErrAlreadyEnrolled
	case !errors.Is(err, models.ErrNotFound):
		return nil, false, err
	}

	now := time.Now().UTC()
	enrollment := &models.Enrollment{
		UserID:          userID,
		CourseID:        courseID,
		Progress:        0,
		Status:          models.EnrollmentStatusActive,
		EnrolledAt:      now,
		LastAccessed:    now,
		LessonsProgress: []models.LessonProgress{},
	}

	if course.IsFree() {
		enrollment.PaymentStatus = models.PaymentStatusFree
	} else {
		if intentID == "" {
			return nil, false, fmt.Errorf("%w: paymentIntentId is required for paid courses", models.ErrInvalidInput)
		}
		if err := s.verifyPayment(ctx, intentID, userID, course); err != nil {
			return nil, false, err
		}
		enrollment.PaymentStatus = models.PaymentStatusPaid
		enrollment.PaymentIntentID = intentID
	}

	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, models.ErrAlreadyEnrolled) && intentID != "" {
			// A concurrent retry with the same intent won the race
			if existing, getErr := s.repo.GetByUserAndCourse(ctx, userID, courseID); getErr == nil && existing.PaymentIntentID == intentID {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	payload := tasks.EnrollmentConfirmationPayload{EnrollmentID: enrollment.ID, UserID: userID, CourseID: courseID}
	if err := s.jobs.SendEnrollmentConfirmation(ctx, payload); err != nil {
		s.logger.Warn("failed to schedule enrollment confirmation",
			zap.Int("enrollment_id", enrollment.ID), zap.Error(err))
	}

	enrollment.Course = courseSummary(course)
	return enrollment, true, nil
}

// verifyPayment checks that the intent captured the course price for this user and course
func (s *enrollmentService) verifyPayment(ctx context.Context, intentID string, userID int, course *models.Course) error {
	intent, err := s.gateway.GetIntent(ctx, intentID)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: unknown payment intent", models.ErrPaymentRequired)
	}
	if err != nil {
		return err
	}

	if intent.Status != models.PaymentIntentSucceeded {
		return fmt.Errorf("%w: payment intent status is %s", models.ErrPaymentRequired, intent.Status)
	}
	if intent.Amount != toMinorUnits(course.Price) || !strings.EqualFold(intent.Currency, s.currency) {
		return fmt.Errorf("%w: paid amount does not match the course price", models.ErrPaymentRequired)
	}
	if intent.Metadata["user_id"] != strconv.Itoa(userID) || intent.Metadata["course_id"] != strconv.Itoa(course.ID) {
		return fmt.Errorf("%w: payment intent belongs to another enrollment", models.ErrPaymentRequired)
	}

	return nil
}

// Unenroll removes the enrollment of a user in a course with its lesson progress
func (s *enrollmentService) Unenroll(ctx context.Context, userID, courseID int) error {
	return s.repo.Delete(ctx, userID, courseID)
}

// Update applies a partial update. LessonsProgress, when present, replaces the whole list.
func (s *enrollmentService) Update(ctx context.Context, userID, courseID int, req *models.UpdateEnrollmentRequest) (*models.Enrollment, error) {
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: at least one field is required", models.ErrInvalidInput)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Status != nil && *req.Status == "" {
		return nil, fmt.Errorf("%w: status must be one of [active completed cancelled paused]", models.ErrInvalidInput)
	}
	if req.LessonsProgress != nil {
		seen := make(map[int]bool, len(*req.LessonsProgress))
		for i := range *req.LessonsProgress {
			lesson := &(*req.LessonsProgress)[i]
			if err := validateStruct(lesson); err != nil {
				return nil, err
			}
			if seen[lesson.LessonID] {
				return nil, fmt.Errorf("%w: duplicate lesson %d in lessonsProgress", models.ErrInvalidInput, lesson.LessonID)
			}
			seen[lesson.LessonID] = true
		}
	}

	enrollment, err := s.repo.GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	if req.Progress != nil {
		enrollment.Progress = *req.Progress
	}
	if req.Status != nil {
		enrollment.Status = *req.Status
	}
	if req.LastAccessed != nil {
		enrollment.LastAccessed = req.LastAccessed.UTC()
	}
	if req.CertificateURL != nil {
		enrollment.CertificateURL = *req.CertificateURL
	}
	if req.Notes != nil {
		enrollment.Notes = *req.Notes
	}
	if req.LessonsProgress != nil {
		enrollment.LessonsProgress = *req.LessonsProgress
	}

	if err := s.repo.Update(ctx, enrollment, req.LessonsProgress != nil); err != nil {
		return nil, err
	}

	return s.repo.GetByUserAndCourse(ctx, userID, courseID)
}

// GetMy returns the enrollments of a user with course summaries
func (s *enrollmentService) GetMy(ctx context.Context, userID int) ([]models.Enrollment, error) {
	enrollments, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}
	return enrollments, nil
}

// Get returns the enrollment of a user in a course
func (s *enrollmentService) Get(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	return s.repo.GetByUserAndCourse(ctx, userID, courseID)
}

// toMinorUnits converts a decimal price to cents
func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

func courseSummary(c *models.Course) *models.CourseListItem {
	return &models.CourseListItem{
		ID:             c.ID,
		Slug:           c.Slug,
		Title:          c.Title,
		Instructor:     c.Instructor,
		Price:          c.Price,
		Image:          c.Image,
		Rating:         c.Rating,
		Reviews:        c.Reviews,
		IsFeatured:     c.IsFeatured,
		ShortVideoLink: c.ShortVideoLink,
	}
}
