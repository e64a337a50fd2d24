package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coursemarket/backend/internal/models"
)

// reviewRepository implements ReviewRepository
type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *sql.DB) *reviewRepository {
	return &reviewRepository{
		db: db,
	}
}

// GetByReviewable retrieves the reviews of one reviewable, newest first
func (r *reviewRepository) GetByReviewable(ctx context.Context, reviewableType models.ReviewableType, reviewableID int) ([]models.Review, error) {
	query := `
		SELECT r.id, r.user_id, u.name, r.rating, r.comment, r.reviewable_type, r.reviewable_id, r.created_at, r.updated_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.reviewable_type = ? AND r.reviewable_id = ?
		ORDER BY r.created_at DESC, r.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, reviewableType, reviewableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(
			&review.ID,
			&review.UserID,
			&review.UserName,
			&review.Rating,
			&review.Comment,
			&review.ReviewableType,
			&review.ReviewableID,
			&review.CreatedAt,
			&review.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

// GetByID retrieves a review by ID
func (r *reviewRepository) GetByID(ctx context.Context, id int) (*models.Review, error) {
	query := `
		SELECT id, user_id, rating, comment, reviewable_type, reviewable_id, created_at, updated_at
		FROM reviews
		WHERE id = ?
	`

	review := &models.Review{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&review.ID,
		&review.UserID,
		&review.Rating,
		&review.Comment,
		&review.ReviewableType,
		&review.ReviewableID,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return review, nil
}

// Create inserts a new review, one per user and reviewable
func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (user_id, rating, comment, reviewable_type, reviewable_id)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, review.UserID, review.Rating, review.Comment, review.ReviewableType, review.ReviewableID)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("review for this course %w", models.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	review.ID = int(id)
	return nil
}

// Update stores the rating and comment of a review
func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	query := `UPDATE reviews SET rating = ?, comment = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, review.Rating, review.Comment, review.ID)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("review %w", models.ErrNotFound)
	}

	return nil
}

// Delete removes a review
func (r *reviewRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("review %w", models.ErrNotFound)
	}

	return nil
}

// AggregateByReviewable returns the raw average rating and review count of one reviewable.
// A reviewable without reviews yields a zero summary.
func (r *reviewRepository) AggregateByReviewable(ctx context.Context, reviewableType models.ReviewableType, reviewableID int) (models.RatingSummary, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE reviewable_type = ? AND reviewable_id = ?
	`

	var summary models.RatingSummary
	if err := r.db.QueryRowContext(ctx, query, reviewableType, reviewableID).Scan(&summary.Rating, &summary.Reviews); err != nil {
		return models.RatingSummary{}, fmt.Errorf("failed to aggregate reviews: %w", err)
	}

	return summary, nil
}
