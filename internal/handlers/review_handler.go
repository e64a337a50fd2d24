package handlers

import (
	"context"
	"net/http"

	"github.com/coursemarket/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReviewService is the interface that wraps methods for review business logic.
// Every write recalculates the rating of the reviewed course.
type ReviewService interface {
	ListByCourse(ctx context.Context, courseID int) ([]models.Review, error)
	Create(ctx context.Context, userID, courseID int, req *models.CreateReviewRequest) (*models.Review, error)
	// Method Update changes a review. Only the author or an admin may do it, others get ErrForbidden.
	Update(ctx context.Context, userID int, role models.Role, reviewID int, req *models.UpdateReviewRequest) (*models.Review, error)
	// Method Delete removes a review. Only the author or an admin may do it, others get ErrForbidden.
	Delete(ctx context.Context, userID int, role models.Role, reviewID int) error
}

// ReviewHandler handles review-related HTTP requests
type ReviewHandler struct {
	BaseHandler
	reviewService  ReviewService
	authMiddleware func(http.Handler) http.Handler
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService ReviewService, authMiddleware func(http.Handler) http.Handler, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler:    BaseHandler{Logger: logger},
		reviewService:  reviewService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all review handler routes
func (h *ReviewHandler) RegisterRoutes(r chi.Router) {
	r.Get("/courses/{id}/reviews", h.ListByCourse)
	r.With(h.authMiddleware).Post("/courses/{id}/reviews", h.Create)
	r.With(h.authMiddleware).Put("/reviews/{id}", h.Update)
	r.With(h.authMiddleware).Delete("/reviews/{id}", h.Delete)
}

// ListByCourse handles GET /courses/{id}/reviews
// @Summary List course reviews
// @Tags reviews
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {array} models.Review
// @Failure 404 {object} map[string]string "Course not found"
// @Router /courses/{id}/reviews [get]
func (h *ReviewHandler) ListByCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	reviews, err := h.reviewService.ListByCourse(r.Context(), courseID)
	if err != nil {
		h.RespondServiceError(w, err, "list reviews")
		return
	}

	h.RespondJSON(w, http.StatusOK, reviews)
}

// Create handles POST /courses/{id}/reviews
// @Summary Review a course
// @Description One review per user and course. Rating is an integer from 1 to 5.
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body models.CreateReviewRequest true "Review"
// @Success 201 {object} models.Review
// @Failure 400 {object} map[string]string "Validation error or already reviewed"
// @Failure 404 {object} map[string]string "Course not found"
// @Router /courses/{id}/reviews [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	courseID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	var req models.CreateReviewRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	review, err := h.reviewService.Create(r.Context(), userID, courseID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "create review")
		return
	}

	h.RespondJSON(w, http.StatusCreated, review)
}

// Update handles PUT /reviews/{id}
// @Summary Update review
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Param request body models.UpdateReviewRequest true "Review fields"
// @Success 200 {object} models.Review
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	reviewID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateReviewRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	review, err := h.reviewService.Update(r.Context(), userID, role, reviewID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "update review")
		return
	}

	h.RespondJSON(w, http.StatusOK, review)
}

// Delete handles DELETE /reviews/{id}
// @Summary Delete review
// @Tags reviews
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 200 {object} map[string]string "Review deleted"
// @Failure 403 {object} map[string]string "Not the author"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	reviewID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.reviewService.Delete(r.Context(), userID, role, reviewID); err != nil {
		h.RespondServiceError(w, err, "delete review")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "review deleted successfully"})
}
