package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/coursemarket/backend/internal/models"
	"go.uber.org/zap"
)

// EnrollmentChecker checks whether a user is already enrolled in a course
type EnrollmentChecker interface {
	ExistsByUserAndCourse(ctx context.Context, userID, courseID int) (bool, error)
}

type paymentService struct {
	courses        CourseReader
	enrollments    EnrollmentChecker
	gateway        PaymentGateway
	currency       string
	publishableKey string
	logger         *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	courses CourseReader,
	enrollments EnrollmentChecker,
	gateway PaymentGateway,
	currency string,
	publishableKey string,
	logger *zap.Logger,
) *paymentService {
	return &paymentService{
		courses:        courses,
		enrollments:    enrollments,
		gateway:        gateway,
		currency:       currency,
		publishableKey: publishableKey,
		logger:         logger,
	}
}

// CreateCourseIntent creates the payment intent a user pays a course with.
// The idempotency key is derived from user, course and price, so retries get the same intent.
func (s *paymentService) CreateCourseIntent(ctx context.Context, userID int, req *models.CreatePaymentIntentRequest) (*models.PaymentIntentResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	course, err := s.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if course.IsFree() {
		return nil, fmt.Errorf("%w: course is free", models.ErrInvalidInput)
	}

	enrolled, err := s.enrollments.ExistsByUserAndCourse(ctx, userID, course.ID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, models.ErrAlreadyEnrolled
	}

	amount := toMinorUnits(course.Price)
	intent, err := s.gateway.CreateIntent(ctx, models.CreateIntentParams{
		Amount:         amount,
		Currency:       s.currency,
		IdempotencyKey: fmt.Sprintf("enroll-intent-%d-%d-%d", userID, course.ID, amount),
		Metadata: map[string]string{
			"user_id":   strconv.Itoa(userID),
			"course_id": strconv.Itoa(course.ID),
		},
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment intent created",
		zap.String("payment_intent_id", intent.ID), zap.Int("user_id", userID), zap.Int("course_id", course.ID))

	return &models.PaymentIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		PublishableKey:  s.publishableKey,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
	}, nil
}
