package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/coursemarket/backend/internal/models"
	"github.com/coursemarket/backend/internal/tasks"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// RatingService defines the rating operations the worker runs in the background
type RatingService interface {
	// CalculateRatings recomputes and stores the rating of one course.
	//
	// If the course does not exist, ErrNotFound is returned.
	CalculateRatings(ctx context.Context, courseID int) (models.RatingSummary, error)
	// ReconcileAll recomputes the rating of every course and returns the joined failures.
	ReconcileAll(ctx context.Context) error
}

// UserReader defines the interface for reading the recipient of an email
type UserReader interface {
	// GetByID retrieves a user by its ID
	//
	// If the user does not exist, ErrNotFound is returned.
	GetByID(ctx context.Context, id int) (*models.User, error)
}

// CourseReader defines the interface for reading the enrolled course
type CourseReader interface {
	// GetByID retrieves a course by its ID
	//
	// If the course does not exist, ErrNotFound is returned.
	GetByID(ctx context.Context, id int) (*models.Course, error)
}

// EnrollmentReader defines the interface for checking that an enrollment still exists
type EnrollmentReader interface {
	// GetByUserAndCourse retrieves the enrollment of a user in a course
	//
	// If the user is not enrolled, ErrNotFound is returned.
	GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.Enrollment, error)
}

// ExpiredTokenCleaner defines the interface for removing expired refresh tokens
type ExpiredTokenCleaner interface {
	// DeleteExpired removes tokens that expired before now and returns how many were removed
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Mailer sends HTML emails
type Mailer interface {
	Send(to, subject, body string) error
}

// smtpMailer sends emails through an SMTP server with gopkg.in/mail.v2
type smtpMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer creates a mailer for the given SMTP server
func NewSMTPMailer(host string, port int, username, password, from string) *smtpMailer {
	return &smtpMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send sends one HTML email
func (m *smtpMailer) Send(to, subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := mail.NewDialer(m.host, m.port, m.username, m.password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// Worker handles background task processing
type Worker struct {
	logger      *zap.Logger
	ratings     RatingService
	users       UserReader
	courses     CourseReader
	enrollments EnrollmentReader
	tokens      ExpiredTokenCleaner
	mailer      Mailer
}

// NewWorker creates a new worker instance
func NewWorker(
	logger *zap.Logger,
	ratings RatingService,
	users UserReader,
	courses CourseReader,
	enrollments EnrollmentReader,
	tokens ExpiredTokenCleaner,
	mailer Mailer,
) *Worker {
	return &Worker{
		logger:      logger,
		ratings:     ratings,
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		tokens:      tokens,
		mailer:      mailer,
	}
}

// Register binds every task type to its handler
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeRatingsRecalculate, w.HandleRatingsRecalculate)
	mux.HandleFunc(tasks.TypeRatingsReconcile, w.HandleRatingsReconcile)
	mux.HandleFunc(tasks.TypeEnrollmentConfirmation, w.HandleEnrollmentConfirmation)
	mux.HandleFunc(tasks.TypeTokensCleanup, w.HandleTokensCleanup)
}

// HandleRatingsRecalculate recomputes the rating of one course
func (w *Worker) HandleRatingsRecalculate(ctx context.Context, t *asynq.Task) error {
	p, err := tasks.ParseRatingsRecalculate(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	summary, err := w.ratings.CalculateRatings(ctx, p.CourseID)
	if err != nil {
		// Course was deleted before the task ran, nothing to update
		if errors.Is(err, models.ErrNotFound) {
			w.logger.Info("Skipping rating recalculation of deleted course", zap.Int("course_id", p.CourseID))
			return nil
		}
		return err
	}

	w.logger.Info("Course rating recalculated",
		zap.Int("course_id", p.CourseID),
		zap.Float64("rating", summary.Rating),
		zap.Int("reviews", summary.Reviews),
	)
	return nil
}

// HandleRatingsReconcile recomputes the rating of every course
func (w *Worker) HandleRatingsReconcile(ctx context.Context, t *asynq.Task) error {
	return w.ratings.ReconcileAll(ctx)
}

// HandleEnrollmentConfirmation emails the user about a new enrollment
func (w *Worker) HandleEnrollmentConfirmation(ctx context.Context, t *asynq.Task) error {
	p, err := tasks.ParseEnrollmentConfirmation(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	// User unenrolled before the task ran, we decided not to send the email
	if _, err := w.enrollments.GetByUserAndCourse(ctx, p.UserID, p.CourseID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	user, err := w.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	course, err := w.courses.GetByID(ctx, p.CourseID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	subject, body := enrollmentConfirmationEmail(user, course)
	if err := w.mailer.Send(user.Email, subject, body); err != nil {
		return err
	}

	w.logger.Info("Enrollment confirmation sent", zap.Int("user_id", p.UserID), zap.Int("course_id", p.CourseID))
	return nil
}

// HandleTokensCleanup removes expired refresh tokens
func (w *Worker) HandleTokensCleanup(ctx context.Context, t *asynq.Task) error {
	removed, err := w.tokens.DeleteExpired(ctx, time.Now())
	if err != nil {
		return err
	}

	w.logger.Info("Expired refresh tokens removed", zap.Int64("count", removed))
	return nil
}

// enrollmentConfirmationEmail builds the subject and HTML body of the confirmation email
func enrollmentConfirmationEmail(user *models.User, course *models.Course) (string, string) {
	subject := fmt.Sprintf("You are enrolled in %s", course.Title)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>you are now enrolled in <b>%s</b> by %s.</p><p>Happy learning!</p>",
		html.EscapeString(user.Name),
		html.EscapeString(course.Title),
		html.EscapeString(course.Instructor),
	)
	return subject, body
}
