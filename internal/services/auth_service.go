package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coursemarket/backend/internal/auth/service"
	"github.com/coursemarket/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// UserRepository is the interface that wraps methods for Users table data access used by authentication
type UserRepository interface {
	// Method Create inserts a new user and sets its ID.
	//
	// If some error occurs during user creation, the error will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByEmail retrieves a user by email.
	//
	// If user with such email does not exist, ErrNotFound will be returned.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, ErrNotFound will be returned.
	GetByID(ctx context.Context, id int) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserTokenRepository is the interface that wraps methods for UserTokens table data access
type UserTokenRepository interface {
	// Method Create stores a refresh token.
	Create(ctx context.Context, token *models.UserToken) error
	// Method GetByToken retrieves a stored refresh token that has not expired.
	//
	// If token does not exist or is expired, ErrNotFound will be returned.
	GetByToken(ctx context.Context, token string) (*models.UserToken, error)
	// Method Rotate replaces a refresh token with a new one.
	Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error
}

// authService implements AuthService
type authService struct {
	userRepo       UserRepository
	userTokenRepo  UserTokenRepository
	tokenGenerator *service.TokenGenerator
	logger         *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo UserRepository,
	userTokenRepo UserTokenRepository,
	tokenGenerator *service.TokenGenerator,
	logger *zap.Logger,
) *authService {
	return &authService{
		userRepo:       userRepo,
		userTokenRepo:  userTokenRepo,
		tokenGenerator: tokenGenerator,
		logger:         logger,
	}
}

// Register creates a new user account and signs it in
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.TokenResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("user with this email %w", models.ErrAlreadyExists)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		Role:         models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Login authenticates a user by email and password
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// Refresh exchanges a stored refresh token for a new token pair and rotates the stored token
//
// Signature validation and the database lookup do not depend on each other, so they run in parallel.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", models.ErrInvalidInput)
	}

	var userToken *models.UserToken
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.tokenGenerator.ValidateRefreshToken(refreshToken); err != nil {
			return fmt.Errorf("invalid or expired refresh token: %w", models.ErrUnauthorized)
		}
		return nil
	})
	g.Go(func() error {
		token, err := s.userTokenRepo.GetByToken(gctx, refreshToken)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("invalid or expired refresh token: %w", models.ErrUnauthorized)
		}
		if err != nil {
			return err
		}
		userToken = token
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userToken.UserID)
	if err != nil {
		return nil, err
	}

	accessToken, newRefreshToken, err := s.tokenGenerator.GenerateTokens(user.ID, int(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	expiresAt := time.Now().Add(s.tokenGenerator.RefreshTokenExpiry())
	if err := s.userTokenRepo.Rotate(ctx, refreshToken, newRefreshToken, expiresAt); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Another request rotated the token first
			return nil, fmt.Errorf("invalid or expired refresh token: %w", models.ErrUnauthorized)
		}
		return nil, err
	}

	return &models.TokenResponse{AccessToken: accessToken, RefreshToken: newRefreshToken, User: user}, nil
}

// issueTokens generates a token pair and stores the refresh token
func (s *authService) issueTokens(ctx context.Context, user *models.User) (*models.TokenResponse, error) {
	accessToken, refreshToken, err := s.tokenGenerator.GenerateTokens(user.ID, int(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	userToken := &models.UserToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(s.tokenGenerator.RefreshTokenExpiry()),
	}
	if err := s.userTokenRepo.Create(ctx, userToken); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &models.TokenResponse{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}
