package services

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/coursemarket/backend/internal/cache"
	"github.com/coursemarket/backend/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

const (
	defaultPage      = 1
	defaultPageCount = 10
	maxPageCount     = 100
)

// CourseRepository is the interface that wraps methods for Courses table data access
type CourseRepository interface {
	// Method GetAll retrieves a page of courses matching the filter, newest first.
	GetAll(ctx context.Context, filter *models.CourseFilter) ([]models.CourseListItem, error)
	// Method Count returns the number of courses matching the filter.
	Count(ctx context.Context, filter *models.CourseFilter) (int, error)
	// Method GetByID retrieves a course with its videos ordered by priority.
	//
	// If course with such ID does not exist, ErrNotFound will be returned.
	GetByID(ctx context.Context, id int) (*models.Course, error)
	// Method GetFeaturedReels retrieves featured courses that have a preview video.
	GetFeaturedReels(ctx context.Context) ([]models.FeaturedReel, error)
	// Method ExistsBySlug checks if any course uses the slug.
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	// Method ExistsByTitle checks if a course other than excludeID uses the title.
	ExistsByTitle(ctx context.Context, title string, excludeID int) (bool, error)
	// Method Create inserts a course with its videos in the given order.
	Create(ctx context.Context, course *models.Course) error
	// Method Update overwrites the course and, when replaceVideos is set, its video list.
	Update(ctx context.Context, course *models.Course, replaceVideos bool) error
	// Method Delete removes the course with its reviews, enrollments and videos in one transaction.
	//
	// If course with such ID does not exist, ErrNotFound will be returned.
	Delete(ctx context.Context, id int) error
}

// Cache is a best effort JSON cache
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

type courseService struct {
	repo     CourseRepository
	cache    Cache
	markdown goldmark.Markdown
	logger   *zap.Logger
}

// NewCourseService creates a new course service
func NewCourseService(repo CourseRepository, cache Cache, logger *zap.Logger) *courseService {
	return &courseService{
		repo:  repo,
		cache: cache,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		logger: logger,
	}
}

// List returns a page of courses. Page defaults to 1 and count to 10.
func (s *courseService) List(ctx context.Context, filter *models.CourseFilter) (*models.CourseListResponse, error) {
	if filter.Page < 1 {
		filter.Page = defaultPage
	}
	if filter.Count < 1 {
		filter.Count = defaultPageCount
	}
	if filter.Count > maxPageCount {
		filter.Count = maxPageCount
	}
	filter.Search = strings.TrimSpace(filter.Search)

	courses, err := s.repo.GetAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &models.CourseListResponse{
		Courses: courses,
		Page:    filter.Page,
		Count:   filter.Count,
		Total:   total,
	}, nil
}

// GetByID returns a course with its videos
func (s *courseService) GetByID(ctx context.Context, id int) (*models.Course, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid course id", models.ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}

// GetFeaturedReels returns featured courses with a preview video, served from cache when possible
func (s *courseService) GetFeaturedReels(ctx context.Context) ([]models.FeaturedReel, error) {
	var reels []models.FeaturedReel
	hit, err := s.cache.GetJSON(ctx, cache.KeyFeaturedReels, &reels)
	if err != nil {
		s.logger.Warn("failed to read featured reels from cache", zap.Error(err))
	}
	if hit {
		return reels, nil
	}

	reels, err = s.repo.GetFeaturedReels(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, cache.KeyFeaturedReels, reels); err != nil {
		s.logger.Warn("failed to cache featured reels", zap.Error(err))
	}
	return reels, nil
}

// Create validates and stores a new course.
// Videos are sorted by priority and the slug is derived from the title.
func (s *courseService) Create(ctx context.Context, req *models.CreateCourseRequest) (*models.Course, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if err := s.checkTitle(ctx, req.Title, 0); err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, req.Title, "")
	if err != nil {
		return nil, err
	}
	descriptionHTML, err := s.renderMarkdown(req.Description)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Slug:            slug,
		Title:           req.Title,
		Description:     req.Description,
		DescriptionHTML: descriptionHTML,
		Instructor:      strings.TrimSpace(req.Instructor),
		Price:           *req.Price,
		Image:           req.Image,
		Videos:          sortVideos(req.Videos),
		IsFeatured:      req.IsFeatured,
		ShortVideoLink:  req.ShortVideoLink,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return s.repo.GetByID(ctx, course.ID)
}

// Update applies a partial update. Videos, when present, replace the whole list.
func (s *courseService) Update(ctx context.Context, id int, req *models.UpdateCourseRequest) (*models.Course, error) {
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: at least one field is required", models.ErrInvalidInput)
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Videos != nil {
		for i := range *req.Videos {
			if err := validateStruct(&(*req.Videos)[i]); err != nil {
				return nil, err
			}
		}
	}

	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil && *req.Title != course.Title {
		if err := s.checkTitle(ctx, *req.Title, id); err != nil {
			return nil, err
		}
		slug, err := s.uniqueSlug(ctx, *req.Title, course.Slug)
		if err != nil {
			return nil, err
		}
		course.Title = *req.Title
		course.Slug = slug
	}
	if req.Description != nil {
		descriptionHTML, err := s.renderMarkdown(*req.Description)
		if err != nil {
			return nil, err
		}
		course.Description = *req.Description
		course.DescriptionHTML = descriptionHTML
	}
	if req.Instructor != nil {
		course.Instructor = strings.TrimSpace(*req.Instructor)
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.Image != nil {
		course.Image = *req.Image
	}
	if req.IsFeatured != nil {
		course.IsFeatured = *req.IsFeatured
	}
	if req.ShortVideoLink != nil {
		course.ShortVideoLink = *req.ShortVideoLink
	}
	if req.Videos != nil {
		course.Videos = sortVideos(*req.Videos)
	}

	if err := s.repo.Update(ctx, course, req.Videos != nil); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return s.repo.GetByID(ctx, id)
}

// Delete removes a course with its reviews, videos and enrollments
func (s *courseService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *courseService) checkTitle(ctx context.Context, title string, excludeID int) error {
	exists, err := s.repo.ExistsByTitle(ctx, title, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("course with this title %w", models.ErrAlreadyExists)
	}
	return nil
}

// uniqueSlug derives a slug from the title, adding a numeric suffix while it is taken.
// current is the slug the course already owns and is always reusable.
func (s *courseService) uniqueSlug(ctx context.Context, title, current string) (string, error) {
	base := slugify(title)
	candidate := base
	for i := 2; ; i++ {
		if candidate == current {
			return candidate, nil
		}
		exists, err := s.repo.ExistsBySlug(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *courseService) renderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render description: %w", err)
	}
	return buf.String(), nil
}

func (s *courseService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyFeaturedReels); err != nil {
		s.logger.Warn("failed to invalidate featured reels cache", zap.Error(err))
	}
}

// sortVideos returns the videos ordered by ascending priority, keeping input order for ties
func sortVideos(videos []models.Video) []models.Video {
	sorted := slices.Clone(videos)
	slices.SortStableFunc(sorted, func(a, b models.Video) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return sorted
}

// slugify lowercases the title and joins its letters and digits with dashes
func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "course"
	}
	if runes := []rune(slug); len(runes) > 200 {
		slug = strings.TrimSuffix(string(runes[:200]), "-")
	}
	return slug
}
