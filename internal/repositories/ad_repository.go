package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/coursemarket/backend/internal/models"
)

// adRepository implements AdRepository
type adRepository struct {
	db *sql.DB
}

// NewAdRepository creates a new ad repository
func NewAdRepository(db *sql.DB) *adRepository {
	return &adRepository{
		db: db,
	}
}

// GetAll retrieves all ads, newest first
func (r *adRepository) GetAll(ctx context.Context) ([]models.Ad, error) {
	query := `
		SELECT id, image, title, subtitle, created_at
		FROM ads
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ads: %w", err)
	}
	defer rows.Close()

	ads := make([]models.Ad, 0)
	for rows.Next() {
		var ad models.Ad
		if err := rows.Scan(&ad.ID, &ad.Image, &ad.Title, &ad.Subtitle, &ad.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ad: %w", err)
		}
		ads = append(ads, ad)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ads: %w", err)
	}

	return ads, nil
}

// GetByID retrieves an ad by ID
func (r *adRepository) GetByID(ctx context.Context, id int) (*models.Ad, error) {
	query := `SELECT id, image, title, subtitle, created_at FROM ads WHERE id = ?`

	ad := &models.Ad{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&ad.ID, &ad.Image, &ad.Title, &ad.Subtitle, &ad.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ad %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ad: %w", err)
	}

	return ad, nil
}

// Create inserts a new ad
func (r *adRepository) Create(ctx context.Context, ad *models.Ad) error {
	query := `INSERT INTO ads (image, title, subtitle) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, ad.Image, ad.Title, ad.Subtitle)
	if err != nil {
		return fmt.Errorf("failed to create ad: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	ad.ID = int(id)
	return nil
}

// Update updates the ad fields present in the request
func (r *adRepository) Update(ctx context.Context, id int, req *models.UpdateAdRequest) error {
	var setParts []string
	var args []any

	if req.Image != nil {
		setParts = append(setParts, "image = ?")
		args = append(args, *req.Image)
	}
	if req.Title != nil {
		setParts = append(setParts, "title = ?")
		args = append(args, *req.Title)
	}
	if req.Subtitle != nil {
		setParts = append(setParts, "subtitle = ?")
		args = append(args, *req.Subtitle)
	}

	if len(setParts) == 0 {
		return fmt.Errorf("no fields to update: %w", models.ErrInvalidInput)
	}

	query := fmt.Sprintf(`
		UPDATE ads
		SET %s
		WHERE id = ?
	`, strings.Join(setParts, ", "))

	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update ad: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ad %w", models.ErrNotFound)
	}

	return nil
}

// Delete removes an ad
func (r *adRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM ads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("ad %w", models.ErrNotFound)
	}

	return nil
}
