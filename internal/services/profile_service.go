package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coursemarket/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ProfileRepository is the interface that wraps methods for Users table data access used by the profile endpoints
type ProfileRepository interface {
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, ErrNotFound will be returned.
	GetByID(ctx context.Context, id int) (*models.User, error)
	// Method GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method Update applies the non-nil fields of the request to the user.
	Update(ctx context.Context, id int, req *models.UpdateProfileRequest) error
	// Method UpdatePasswordHash stores a new password hash.
	UpdatePasswordHash(ctx context.Context, id int, passwordHash string) error
}

// TokenRevoker removes the refresh tokens of a user
type TokenRevoker interface {
	DeleteByUserID(ctx context.Context, userID int) error
}

type profileService struct {
	repo         ProfileRepository
	tokenRevoker TokenRevoker
	logger       *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(repo ProfileRepository, tokenRevoker TokenRevoker, logger *zap.Logger) *profileService {
	return &profileService{
		repo:         repo,
		tokenRevoker: tokenRevoker,
		logger:       logger,
	}
}

// GetMe returns the profile of the current user
func (s *profileService) GetMe(ctx context.Context, userID int) (*models.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateMe updates name, email and avatar of the current user.
// A new email must not belong to another account.
func (s *profileService) UpdateMe(ctx context.Context, userID int, req *models.UpdateProfileRequest) (*models.User, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if req.Name == nil && req.Email == nil && req.Avatar == nil {
		return nil, fmt.Errorf("%w: at least one field is required", models.ErrInvalidInput)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if req.Email != nil {
		owner, err := s.repo.GetByEmail(ctx, *req.Email)
		switch {
		case err == nil && owner.ID != userID:
			return nil, fmt.Errorf("user with this email %w", models.ErrAlreadyExists)
		case err != nil && !errors.Is(err, models.ErrNotFound):
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	if err := s.repo.Update(ctx, userID, req); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, userID)
}

// ChangePassword replaces the password of the current user and signs out every other session
func (s *profileService) ChangePassword(ctx context.Context, userID int, req *models.ChangePasswordRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("%w: current password is incorrect", models.ErrInvalidInput)
	}
	if req.NewPassword == req.CurrentPassword {
		return fmt.Errorf("%w: new password must differ from the current one", models.ErrInvalidInput)
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, string(passwordHash)); err != nil {
		return err
	}

	if err := s.tokenRevoker.DeleteByUserID(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.Int("user_id", userID), zap.Error(err))
	}

	return nil
}
