package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursemarket/backend/internal/cache"
	"github.com/coursemarket/backend/internal/models"
	"go.uber.org/zap"
)

// AdRepository is the interface that wraps methods for Ads table data access
type AdRepository interface {
	GetAll(ctx context.Context) ([]models.Ad, error)
	GetByID(ctx context.Context, id int) (*models.Ad, error)
	Create(ctx context.Context, ad *models.Ad) error
	Update(ctx context.Context, id int, req *models.UpdateAdRequest) error
	Delete(ctx context.Context, id int) error
}

type adService struct {
	repo   AdRepository
	cache  Cache
	logger *zap.Logger
}

// NewAdService creates a new ad service
func NewAdService(repo AdRepository, cache Cache, logger *zap.Logger) *adService {
	return &adService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// List returns all ads, newest first, served from cache when possible
func (s *adService) List(ctx context.Context) ([]models.Ad, error) {
	var ads []models.Ad
	hit, err := s.cache.GetJSON(ctx, cache.KeyAds, &ads)
	if err != nil {
		s.logger.Warn("failed to read ads from cache", zap.Error(err))
	}
	if hit {
		return ads, nil
	}

	ads, err = s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, cache.KeyAds, ads); err != nil {
		s.logger.Warn("failed to cache ads", zap.Error(err))
	}
	return ads, nil
}

// GetByID returns an ad
func (s *adService) GetByID(ctx context.Context, id int) (*models.Ad, error) {
	return s.repo.GetByID(ctx, id)
}

// Create stores a new ad
func (s *adService) Create(ctx context.Context, req *models.CreateAdRequest) (*models.Ad, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Subtitle = strings.TrimSpace(req.Subtitle)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	ad := &models.Ad{Image: req.Image, Title: req.Title, Subtitle: req.Subtitle}
	if err := s.repo.Create(ctx, ad); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return s.repo.GetByID(ctx, ad.ID)
}

// Update applies a partial update to an ad
func (s *adService) Update(ctx context.Context, id int, req *models.UpdateAdRequest) (*models.Ad, error) {
	if req.Image == nil && req.Title == nil && req.Subtitle == nil {
		return nil, fmt.Errorf("%w: at least one field is required", models.ErrInvalidInput)
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, req); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return s.repo.GetByID(ctx, id)
}

// Delete removes an ad
func (s *adService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *adService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyAds); err != nil {
		s.logger.Warn("failed to invalidate ads cache", zap.Error(err))
	}
}
