package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coursemarket/backend/internal/models"
)

// userTokenRepository implements UserTokenRepository
type userTokenRepository struct {
	db *sql.DB
}

// NewUserTokenRepository creates a new user token repository
func NewUserTokenRepository(db *sql.DB) *userTokenRepository {
	return &userTokenRepository{
		db: db,
	}
}

// Create stores a refresh token
func (r *userTokenRepository) Create(ctx context.Context, token *models.UserToken) error {
	query := `INSERT INTO user_tokens (user_id, token, expires_at) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, token.UserID, token.Token, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create user token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	token.ID = int(id)
	return nil
}

// GetByToken retrieves a stored refresh token that has not expired
func (r *userTokenRepository) GetByToken(ctx context.Context, token string) (*models.UserToken, error) {
	query := `
		SELECT id, user_id, token, expires_at
		FROM user_tokens
		WHERE token = ? AND expires_at > ?
	`

	userToken := &models.UserToken{}
	err := r.db.QueryRowContext(ctx, query, token, time.Now()).Scan(
		&userToken.ID,
		&userToken.UserID,
		&userToken.Token,
		&userToken.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user token: %w", err)
	}

	return userToken, nil
}

// Rotate replaces a refresh token with a new one
func (r *userTokenRepository) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error {
	query := `UPDATE user_tokens SET token = ?, expires_at = ? WHERE token = ?`

	result, err := r.db.ExecContext(ctx, query, newToken, expiresAt, oldToken)
	if err != nil {
		return fmt.Errorf("failed to rotate user token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("token %w", models.ErrNotFound)
	}

	return nil
}

// DeleteByUserID removes every refresh token of a user
func (r *userTokenRepository) DeleteByUserID(ctx context.Context, userID int) error {
	query := `DELETE FROM user_tokens WHERE user_id = ?`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user tokens: %w", err)
	}

	return nil
}

// DeleteExpired removes refresh tokens that expired before now and returns how many were removed
func (r *userTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM user_tokens WHERE expires_at <= ?`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
