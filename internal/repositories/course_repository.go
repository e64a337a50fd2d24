package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/coursemarket/backend/internal/models"
)

// courseRepository implements CourseRepository
type courseRepository struct {
	db *sql.DB
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{
		db: db,
	}
}

// buildFilter builds the WHERE clause shared by GetAll and Count
func buildFilter(filter *models.CourseFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Search != "" {
		conditions = append(conditions, "title LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Featured != nil {
		conditions = append(conditions, "is_featured = ?")
		args = append(args, *filter.Featured)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// GetAll retrieves a page of courses, newest first
func (r *courseRepository) GetAll(ctx context.Context, filter *models.CourseFilter) ([]models.CourseListItem, error) {
	where, args := buildFilter(filter)

	query := `
		SELECT id, slug, title, instructor, price, image, rating, reviews, is_featured, short_video_link
		FROM courses` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	offset := (filter.Page - 1) * filter.Count
	args = append(args, filter.Count, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses := make([]models.CourseListItem, 0)
	for rows.Next() {
		var item models.CourseListItem
		if err := rows.Scan(
			&item.ID,
			&item.Slug,
			&item.Title,
			&item.Instructor,
			&item.Price,
			&item.Image,
			&item.Rating,
			&item.Reviews,
			&item.IsFeatured,
			&item.ShortVideoLink,
		); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating courses: %w", err)
	}

	return courses, nil
}

// Count returns the number of courses matching the filter
func (r *courseRepository) Count(ctx context.Context, filter *models.CourseFilter) (int, error) {
	where, args := buildFilter(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}

	return total, nil
}

// GetByID retrieves a course with its videos ordered by priority
func (r *courseRepository) GetByID(ctx context.Context, id int) (*models.Course, error) {
	query := `
		SELECT id, slug, title, description, description_html, instructor, price, image,
			rating, reviews, is_featured, short_video_link, created_at, updated_at
		FROM courses
		WHERE id = ?
	`

	course := &models.Course{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Slug,
		&course.Title,
		&course.Description,
		&course.DescriptionHTML,
		&course.Instructor,
		&course.Price,
		&course.Image,
		&course.Rating,
		&course.Reviews,
		&course.IsFeatured,
		&course.ShortVideoLink,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	videos, err := r.getVideos(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Videos = videos

	return course, nil
}

// getVideos retrieves course videos ordered by priority, ties kept in insertion order
func (r *courseRepository) getVideos(ctx context.Context, courseID int) ([]models.Video, error) {
	query := `
		SELECT id, course_id, title, url, cover_image, duration, priority
		FROM course_videos
		WHERE course_id = ?
		ORDER BY priority ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query course videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.CourseID, &v.Title, &v.URL, &v.CoverImage, &v.Duration, &v.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan course video: %w", err)
		}
		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course videos: %w", err)
	}

	return videos, nil
}

// GetFeaturedReels retrieves featured courses that have a short preview video
func (r *courseRepository) GetFeaturedReels(ctx context.Context) ([]models.FeaturedReel, error) {
	query := `
		SELECT id, title, instructor, image, short_video_link
		FROM courses
		WHERE is_featured = TRUE AND short_video_link <> ''
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query featured reels: %w", err)
	}
	defer rows.Close()

	reels := make([]models.FeaturedReel, 0)
	for rows.Next() {
		var reel models.FeaturedReel
		if err := rows.Scan(&reel.ID, &reel.Title, &reel.Instructor, &reel.Image, &reel.ShortVideoLink); err != nil {
			return nil, fmt.Errorf("failed to scan featured reel: %w", err)
		}
		reels = append(reels, reel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating featured reels: %w", err)
	}

	return reels, nil
}

// GetAllIDs returns the IDs of every course
func (r *courseRepository) GetAllIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM courses ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query course ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan course id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course ids: %w", err)
	}

	return ids, nil
}

// ExistsByID checks if a course exists
func (r *courseRepository) ExistsByID(ctx context.Context, id int) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM courses WHERE id = ?)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check course existence: %w", err)
	}

	return exists, nil
}

// ExistsBySlug checks if a course uses the given slug
func (r *courseRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM courses WHERE slug = ?)", slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}

	return exists, nil
}

// ExistsByTitle checks if another course uses the given title
// excludeID skips the course being updated, 0 checks all courses
func (r *courseRepository) ExistsByTitle(ctx context.Context, title string, excludeID int) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM courses WHERE title = ? AND id <> ?)"
	if err := r.db.QueryRowContext(ctx, query, title, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check title existence: %w", err)
	}

	return exists, nil
}

// Create inserts a course and its videos in one transaction
func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO courses (slug, title, description, description_html, instructor, price, image,
			is_featured, short_video_link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		course.Slug,
		course.Title,
		course.Description,
		course.DescriptionHTML,
		course.Instructor,
		course.Price,
		course.Image,
		course.IsFeatured,
		course.ShortVideoLink,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("course with this title %w", models.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create course: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	course.ID = int(id)

	if err := insertVideos(ctx, tx, course.ID, course.Videos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// insertVideos inserts videos in slice order so ids follow the sorted order
func insertVideos(ctx context.Context, tx *sql.Tx, courseID int, videos []models.Video) error {
	if len(videos) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(videos))
	args := make([]any, 0, len(videos)*6)
	for i := range videos {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?)")
		args = append(args, courseID, videos[i].Title, videos[i].URL, videos[i].CoverImage, videos[i].Duration, videos[i].Priority)
	}

	query := `INSERT INTO course_videos (course_id, title, url, cover_image, duration, priority) VALUES ` +
		strings.Join(placeholders, ", ")

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert course videos: %w", err)
	}

	// MySQL returns the id of the first row of a multi-row insert
	firstID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	for i := range videos {
		videos[i].ID = int(firstID) + i
		videos[i].CourseID = courseID
	}

	return nil
}

// Update overwrites the course fields and, when replaceVideos is set, its video list
func (r *courseRepository) Update(ctx context.Context, course *models.Course, replaceVideos bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE courses
		SET slug = ?, title = ?, description = ?, description_html = ?, instructor = ?, price = ?,
			image = ?, is_featured = ?, short_video_link = ?
		WHERE id = ?
	`

	result, err := tx.ExecContext(ctx, query,
		course.Slug,
		course.Title,
		course.Description,
		course.DescriptionHTML,
		course.Instructor,
		course.Price,
		course.Image,
		course.IsFeatured,
		course.ShortVideoLink,
		course.ID,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("course with this title %w", models.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update course: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("course %w", models.ErrNotFound)
	}

	if replaceVideos {
		if _, err := tx.ExecContext(ctx, "DELETE FROM course_videos WHERE course_id = ?", course.ID); err != nil {
			return fmt.Errorf("failed to delete course videos: %w", err)
		}
		if err := insertVideos(ctx, tx, course.ID, course.Videos); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes a course together with its reviews, enrollments (and their lesson progress)
// and videos in one transaction
func (r *courseRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		query string
		args  []any
		what  string
	}{
		{
			query: "DELETE FROM reviews WHERE reviewable_type = ? AND reviewable_id = ?",
			args:  []any{models.ReviewableCourse, id},
			what:  "course reviews",
		},
		{
			query: "DELETE p FROM enrollment_lesson_progress p JOIN enrollments e ON e.id = p.enrollment_id WHERE e.course_id = ?",
			args:  []any{id},
			what:  "lesson progress",
		},
		{
			query: "DELETE FROM enrollments WHERE course_id = ?",
			args:  []any{id},
			what:  "course enrollments",
		},
		{
			query: "DELETE FROM course_videos WHERE course_id = ?",
			args:  []any{id},
			what:  "course videos",
		},
	}

	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, step.args...); err != nil {
			return fmt.Errorf("failed to delete %s: %w", step.what, err)
		}
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("course %w", models.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateRatings stores the aggregated rating and review count of a course
func (r *courseRepository) UpdateRatings(ctx context.Context, id int, summary models.RatingSummary) error {
	query := `UPDATE courses SET rating = ?, reviews = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, summary.Rating, summary.Reviews, id)
	if err != nil {
		return fmt.Errorf("failed to update course ratings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("course %w", models.ErrNotFound)
	}

	return nil
}
