package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/coursemarket/backend/internal/models"
)

// enrollmentRepository implements EnrollmentRepository
type enrollmentRepository struct {
	db *sql.DB
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db *sql.DB) *enrollmentRepository {
	return &enrollmentRepository{
		db: db,
	}
}

// GetByUserAndCourse retrieves the enrollment of a user in a course with its lesson progress
func (r *enrollmentRepository) GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.Enrollment, error) {
	query := `
		SELECT id, user_id, course_id, payment_status, payment_intent_id, progress, status,
			enrolled_at, last_accessed, certificate_url, notes
		FROM enrollments
		WHERE user_id = ? AND course_id = ?
	`

	enrollment := &models.Enrollment{}
	var intentID sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(
		&enrollment.ID,
		&enrollment.UserID,
		&enrollment.CourseID,
		&enrollment.PaymentStatus,
		&intentID,
		&enrollment.Progress,
		&enrollment.Status,
		&enrollment.EnrolledAt,
		&enrollment.LastAccessed,
		&enrollment.CertificateURL,
		&enrollment.Notes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("enrollment %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	enrollment.PaymentIntentID = intentID.String

	progress, err := r.getLessonProgress(ctx, "WHERE enrollment_id = ?", enrollment.ID)
	if err != nil {
		return nil, err
	}
	enrollment.LessonsProgress = progress[enrollment.ID]
	if enrollment.LessonsProgress == nil {
		enrollment.LessonsProgress = []models.LessonProgress{}
	}

	return enrollment, nil
}

// GetByUser retrieves all enrollments of a user with course summaries, newest first
func (r *enrollmentRepository) GetByUser(ctx context.Context, userID int) ([]models.Enrollment, error) {
	query := `
		SELECT e.id, e.user_id, e.course_id, e.payment_status, e.payment_intent_id, e.progress, e.status,
			e.enrolled_at, e.last_accessed, e.certificate_url, e.notes,
			c.id, c.slug, c.title, c.instructor, c.price, c.image, c.rating, c.reviews, c.is_featured, c.short_video_link
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = ?
		ORDER BY e.enrolled_at DESC, e.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	enrollments := make([]models.Enrollment, 0)
	for rows.Next() {
		var e models.Enrollment
		var intentID sql.NullString
		course := &models.CourseListItem{}
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.CourseID,
			&e.PaymentStatus,
			&intentID,
			&e.Progress,
			&e.Status,
			&e.EnrolledAt,
			&e.LastAccessed,
			&e.CertificateURL,
			&e.Notes,
			&course.ID,
			&course.Slug,
			&course.Title,
			&course.Instructor,
			&course.Price,
			&course.Image,
			&course.Rating,
			&course.Reviews,
			&course.IsFeatured,
			&course.ShortVideoLink,
		); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		e.PaymentIntentID = intentID.String
		e.Course = course
		enrollments = append(enrollments, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}

	if len(enrollments) == 0 {
		return enrollments, nil
	}

	progress, err := r.getLessonProgress(ctx,
		"WHERE enrollment_id IN (SELECT id FROM enrollments WHERE user_id = ?)", userID)
	if err != nil {
		return nil, err
	}
	for i := range enrollments {
		enrollments[i].LessonsProgress = progress[enrollments[i].ID]
		if enrollments[i].LessonsProgress == nil {
			enrollments[i].LessonsProgress = []models.LessonProgress{}
		}
	}

	return enrollments, nil
}

// getLessonProgress loads lesson progress rows grouped by enrollment id
func (r *enrollmentRepository) getLessonProgress(ctx context.Context, where string, args ...any) (map[int][]models.LessonProgress, error) {
	query := `
		SELECT enrollment_id, lesson_id, watched_duration, completed
		FROM enrollment_lesson_progress
		` + where + `
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson progress: %w", err)
	}
	defer rows.Close()

	result := make(map[int][]models.LessonProgress)
	for rows.Next() {
		var enrollmentID int
		var p models.LessonProgress
		if err := rows.Scan(&enrollmentID, &p.LessonID, &p.WatchedDuration, &p.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan lesson progress: %w", err)
		}
		result[enrollmentID] = append(result[enrollmentID], p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lesson progress: %w", err)
	}

	return result, nil
}

// ExistsByUserAndCourse checks if a user is enrolled in a course
func (r *enrollmentRepository) ExistsByUserAndCourse(ctx context.Context, userID, courseID int) (bool, error) {
	query := "SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = ? AND course_id = ?)"

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check enrollment existence: %w", err)
	}

	return exists, nil
}

// Create inserts an enrollment and its initial lesson progress in one transaction.
// A unique key violation on (user, course) or on the payment intent maps to ErrAlreadyEnrolled.
func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO enrollments (user_id, course_id, payment_status, payment_intent_id, progress, status,
			enrolled_at, last_accessed, certificate_url, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	intentID := sql.NullString{String: enrollment.PaymentIntentID, Valid: enrollment.PaymentIntentID != ""}
	result, err := tx.ExecContext(ctx, query,
		enrollment.UserID,
		enrollment.CourseID,
		enrollment.PaymentStatus,
		intentID,
		enrollment.Progress,
		enrollment.Status,
		enrollment.EnrolledAt,
		enrollment.LastAccessed,
		enrollment.CertificateURL,
		enrollment.Notes,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return models.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	enrollment.ID = int(id)

	if err := insertLessonProgress(ctx, tx, enrollment.ID, enrollment.LessonsProgress); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertLessonProgress(ctx context.Context, tx *sql.Tx, enrollmentID int, progress []models.LessonProgress) error {
	if len(progress) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(progress))
	args := make([]any, 0, len(progress)*4)
	for _, p := range progress {
		placeholders = append(placeholders, "(?, ?, ?, ?)")
		args = append(args, enrollmentID, p.LessonID, p.WatchedDuration, p.Completed)
	}

	query := `INSERT INTO enrollment_lesson_progress (enrollment_id, lesson_id, watched_duration, completed) VALUES ` +
		strings.Join(placeholders, ", ")

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("duplicate lesson in progress list: %w", models.ErrInvalidInput)
		}
		return fmt.Errorf("failed to insert lesson progress: %w", err)
	}

	return nil
}

// Update overwrites the mutable enrollment fields and, when replaceProgress is set,
// its lesson progress list
func (r *enrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment, replaceProgress bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE enrollments
		SET progress = ?, status = ?, last_accessed = ?, certificate_url = ?, notes = ?
		WHERE id = ?
	`

	result, err := tx.ExecContext(ctx, query,
		enrollment.Progress,
		enrollment.Status,
		enrollment.LastAccessed,
		enrollment.CertificateURL,
		enrollment.Notes,
		enrollment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("enrollment %w", models.ErrNotFound)
	}

	if replaceProgress {
		if _, err := tx.ExecContext(ctx, "DELETE FROM enrollment_lesson_progress WHERE enrollment_id = ?", enrollment.ID); err != nil {
			return fmt.Errorf("failed to delete lesson progress: %w", err)
		}
		if err := insertLessonProgress(ctx, tx, enrollment.ID, enrollment.LessonsProgress); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes the enrollment of a user in a course and its lesson progress in one transaction
func (r *enrollmentRepository) Delete(ctx context.Context, userID, courseID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRowContext(ctx, "SELECT id FROM enrollments WHERE user_id = ? AND course_id = ? FOR UPDATE", userID, courseID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("enrollment %w", models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get enrollment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM enrollment_lesson_progress WHERE enrollment_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete lesson progress: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM enrollments WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
