package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coursemarket/backend/internal/models"
)

// mediaRepository implements media metadata operations
type mediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *sql.DB) *mediaRepository {
	return &mediaRepository{
		db: db,
	}
}

// Create inserts a new media record
func (r *mediaRepository) Create(ctx context.Context, media *models.Media) error {
	query := `
		INSERT INTO media (id, filename, content_type, size)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, media.ID, media.Filename, media.ContentType, media.Size); err != nil {
		return fmt.Errorf("failed to create media: %w", err)
	}

	return nil
}

// GetByID retrieves media metadata by ID
func (r *mediaRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	query := `
		SELECT id, filename, content_type, size, created_at
		FROM media
		WHERE id = ?
	`

	media := &models.Media{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&media.ID,
		&media.Filename,
		&media.ContentType,
		&media.Size,
		&media.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}

	return media, nil
}

// DeleteByID removes media metadata
func (r *mediaRepository) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("media %w", models.ErrNotFound)
	}

	return nil
}
