package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/coursemarket/backend/internal/models"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	mediaCategory     = "images"
	maxImageDimension = 1920
	// Decoding allocates width*height*4 bytes, so larger sources are refused up front
	maxSourcePixels = 40_000_000
)

// MediaRepository is the interface that wraps methods for Media table data access
type MediaRepository interface {
	Create(ctx context.Context, media *models.Media) error
	// Method GetByID retrieves media metadata.
	//
	// If media with such ID does not exist, ErrNotFound will be returned.
	GetByID(ctx context.Context, id string) (*models.Media, error)
	DeleteByID(ctx context.Context, id string) error
}

// FileStorage stores media files
type FileStorage interface {
	// Method Create creates a new file and returns a WriteCloser
	Create(id, category string) (io.WriteCloser, error)
	// Method Open opens a file for use with http.ServeContent
	Open(id, category string) (*os.File, error)
	// Method Delete removes a file
	Delete(id, category string) error
}

type mediaService struct {
	repo    MediaRepository
	storage FileStorage
	baseURL string
	logger  *zap.Logger
}

// NewMediaService creates a new media service.
// baseURL is the public prefix media files are served under.
func NewMediaService(repo MediaRepository, storage FileStorage, baseURL string, logger *zap.Logger) *mediaService {
	return &mediaService{
		repo:    repo,
		storage: storage,
		baseURL: baseURL,
		logger:  logger,
	}
}

var imageFormats = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
}

// countingWriter counts the bytes written through it
type countingWriter struct {
	size int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.size += int64(len(p))
	return len(p), nil
}

// Upload stores a jpeg or png image, downscaled to fit into 1920x1920
func (s *mediaService) Upload(ctx context.Context, r io.Reader, filename, contentType string) (*models.Media, error) {
	format, ok := imageFormats[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: only jpeg and png images are supported", models.ErrInvalidInput)
	}

	// DecodeConfig only reads the header; the consumed bytes are replayed for the full decode
	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, fmt.Errorf("%w: file is not a valid image", models.ErrInvalidInput)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return nil, fmt.Errorf("%w: image dimensions %dx%d are too large", models.ErrInvalidInput, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(io.MultiReader(&header, r), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: file is not a valid image", models.ErrInvalidInput)
	}
	img = fitImage(img)

	id := uuid.New().String()
	w, err := s.storage.Create(id, mediaCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	counter := &countingWriter{}
	err = imaging.Encode(io.MultiWriter(w, counter), img, format, imaging.JPEGQuality(85))
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.removeFile(id)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	media := &models.Media{
		ID:          id,
		Filename:    filepath.Base(filename),
		ContentType: contentType,
		Size:        counter.size,
	}
	if err := s.repo.Create(ctx, media); err != nil {
		s.removeFile(id)
		return nil, err
	}

	media.URL = s.url(id)
	return media, nil
}

// Open returns the metadata and the file of a stored image
func (s *mediaService) Open(ctx context.Context, id string) (*models.Media, *os.File, error) {
	media, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	file, err := s.storage.Open(id, mediaCategory)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("media file %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	media.URL = s.url(id)
	return media, file, nil
}

// Delete removes a stored image and its metadata
func (s *mediaService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}

	if err := s.storage.Delete(id, mediaCategory); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to delete media file", zap.String("media_id", id), zap.Error(err))
	}
	return nil
}

func (s *mediaService) url(id string) string {
	return s.baseURL + "/" + id
}

func (s *mediaService) removeFile(id string) {
	if err := s.storage.Delete(id, mediaCategory); err != nil {
		s.logger.Warn("failed to clean up media file", zap.String("media_id", id), zap.Error(err))
	}
}

// fitImage downscales images larger than the maximum dimension, keeping the aspect ratio
func fitImage(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxImageDimension && bounds.Dy() <= maxImageDimension {
		return img
	}
	return imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)
}
