package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/coursemarket/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CourseService is the interface that wraps methods for course business logic.
type CourseService interface {
	// Method List returns a page of courses; zero page and count fall back to defaults.
	List(ctx context.Context, filter *models.CourseFilter) (*models.CourseListResponse, error)
	// Method GetByID returns a course with its videos sorted by priority.
	//
	// If course with such ID does not exist, ErrNotFound is returned.
	GetByID(ctx context.Context, id int) (*models.Course, error)
	// Method GetFeaturedReels returns featured courses with a short preview video.
	GetFeaturedReels(ctx context.Context) ([]models.FeaturedReel, error)
	// Method Create validates and stores a course.
	Create(ctx context.Context, req *models.CreateCourseRequest) (*models.Course, error)
	// Method Update applies a partial update; videos, when present, replace the list.
	Update(ctx context.Context, id int, req *models.UpdateCourseRequest) (*models.Course, error)
	// Method Delete removes a course with its reviews, videos and enrollments.
	Delete(ctx context.Context, id int) error
}

// CourseHandler handles course-related HTTP requests
type CourseHandler struct {
	BaseHandler
	courseService   CourseService
	adminMiddleware func(http.Handler) http.Handler
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courseService CourseService, adminMiddleware func(http.Handler) http.Handler, logger *zap.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:     BaseHandler{Logger: logger},
		courseService:   courseService,
		adminMiddleware: adminMiddleware,
	}
}

// RegisterRoutes registers all course handler routes
func (h *CourseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/courses", h.List)
	// featuredreels is a static segment, chi matches it before {id}
	r.Get("/courses/featuredreels", h.GetFeaturedReels)
	r.Get("/courses/{id}", h.GetByID)

	r.With(h.adminMiddleware).Post("/courses", h.Create)
	r.With(h.adminMiddleware).Put("/courses/{id}", h.Update)
	r.With(h.adminMiddleware).Delete("/courses/{id}", h.Delete)
}

// List handles GET /courses
// @Summary List courses
// @Tags courses
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param count query int false "Page size (default 10, max 100)"
// @Param search query string false "Title search"
// @Param featured query bool false "Only featured or only not featured courses"
// @Success 200 {object} models.CourseListResponse
// @Failure 400 {object} map[string]string "Invalid query parameter"
// @Router /courses [get]
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := &models.CourseFilter{Search: query.Get("search")}

	for name, dst := range map[string]*int{"page": &filter.Page, "count": &filter.Count} {
		if raw := query.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				h.RespondError(w, http.StatusBadRequest, "invalid "+name+" parameter")
				return
			}
			*dst = n
		}
	}
	if raw := query.Get("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			h.RespondError(w, http.StatusBadRequest, "invalid featured parameter")
			return
		}
		filter.Featured = &featured
	}

	resp, err := h.courseService.List(r.Context(), filter)
	if err != nil {
		h.RespondServiceError(w, err, "list courses")
		return
	}

	h.RespondJSON(w, http.StatusOK, resp)
}

// GetFeaturedReels handles GET /courses/featuredreels
// @Summary Featured reels
// @Description Featured courses that have a short preview video
// @Tags courses
// @Produce json
// @Success 200 {array} models.FeaturedReel
// @Router /courses/featuredreels [get]
func (h *CourseHandler) GetFeaturedReels(w http.ResponseWriter, r *http.Request) {
	reels, err := h.courseService.GetFeaturedReels(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "get featured reels")
		return
	}

	h.RespondJSON(w, http.StatusOK, reels)
}

// GetByID handles GET /courses/{id}
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} models.Course
// @Failure 400 {object} map[string]string "Invalid course ID"
// @Failure 404 {object} map[string]string "Course not found"
// @Router /courses/{id} [get]
func (h *CourseHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	course, err := h.courseService.GetByID(r.Context(), id)
	if err != nil {
		h.RespondServiceError(w, err, "get course")
		return
	}

	h.RespondJSON(w, http.StatusOK, course)
}

// Create handles POST /courses
// @Summary Create course
// @Description Videos are stored sorted by priority. Admin only.
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateCourseRequest true "Course"
// @Success 201 {object} models.Course
// @Failure 400 {object} map[string]string "Validation error or duplicate title"
// @Failure 401 {object} map[string]string "Authentication required"
// @Failure 403 {object} map[string]string "Insufficient permissions"
// @Router /courses [post]
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCourseRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	course, err := h.courseService.Create(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, err, "create course")
		return
	}

	h.RespondJSON(w, http.StatusCreated, course)
}

// Update handles PUT /courses/{id}
// @Summary Update course
// @Description Partial update. A videos list replaces the existing one. Admin only.
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body models.UpdateCourseRequest true "Course fields"
// @Success 200 {object} models.Course
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Course not found"
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateCourseRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	course, err := h.courseService.Update(r.Context(), id, &req)
	if err != nil {
		h.RespondServiceError(w, err, "update course")
		return
	}

	h.RespondJSON(w, http.StatusOK, course)
}

// Delete handles DELETE /courses/{id}
// @Summary Delete course
// @Description Removes the course with its reviews, videos and enrollments. Admin only.
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} map[string]string "Course deleted"
// @Failure 404 {object} map[string]string "Course not found"
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.courseService.Delete(r.Context(), id); err != nil {
		h.RespondServiceError(w, err, "delete course")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "course deleted successfully"})
}
