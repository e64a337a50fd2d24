package handlers

import (
	"context"
	"net/http"

	"github.com/coursemarket/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdService is the interface that wraps methods for ad business logic.
type AdService interface {
	List(ctx context.Context) ([]models.Ad, error)
	GetByID(ctx context.Context, id int) (*models.Ad, error)
	Create(ctx context.Context, req *models.CreateAdRequest) (*models.Ad, error)
	Update(ctx context.Context, id int, req *models.UpdateAdRequest) (*models.Ad, error)
	Delete(ctx context.Context, id int) error
}

// AdHandler handles ad-related HTTP requests
type AdHandler struct {
	BaseHandler
	adService       AdService
	adminMiddleware func(http.Handler) http.Handler
}

// NewAdHandler creates a new ad handler
func NewAdHandler(adService AdService, adminMiddleware func(http.Handler) http.Handler, logger *zap.Logger) *AdHandler {
	return &AdHandler{
		BaseHandler:     BaseHandler{Logger: logger},
		adService:       adService,
		adminMiddleware: adminMiddleware,
	}
}

// RegisterRoutes registers all ad handler routes
func (h *AdHandler) RegisterRoutes(r chi.Router) {
	r.Route("/ads", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.GetByID)

		r.With(h.adminMiddleware).Post("/", h.Create)
		r.With(h.adminMiddleware).Put("/{id}", h.Update)
		r.With(h.adminMiddleware).Delete("/{id}", h.Delete)
	})
}

// List handles GET /ads
// @Summary List ads
// @Tags ads
// @Produce json
// @Success 200 {array} models.Ad
// @Router /ads [get]
func (h *AdHandler) List(w http.ResponseWriter, r *http.Request) {
	ads, err := h.adService.List(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "list ads")
		return
	}

	h.RespondJSON(w, http.StatusOK, ads)
}

// GetByID handles GET /ads/{id}
// @Summary Get ad
// @Tags ads
// @Produce json
// @Param id path int true "Ad ID"
// @Success 200 {object} models.Ad
// @Failure 404 {object} map[string]string "Ad not found"
// @Router /ads/{id} [get]
func (h *AdHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	ad, err := h.adService.GetByID(r.Context(), id)
	if err != nil {
		h.RespondServiceError(w, err, "get ad")
		return
	}

	h.RespondJSON(w, http.StatusOK, ad)
}

// Create handles POST /ads
// @Summary Create ad
// @Tags ads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateAdRequest true "Ad"
// @Success 201 {object} models.Ad
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Admin role required"
// @Router /ads [post]
func (h *AdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAdRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	ad, err := h.adService.Create(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, err, "create ad")
		return
	}

	h.RespondJSON(w, http.StatusCreated, ad)
}

// Update handles PUT /ads/{id}
// @Summary Update ad
// @Tags ads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ad ID"
// @Param request body models.UpdateAdRequest true "Ad fields"
// @Success 200 {object} models.Ad
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Ad not found"
// @Router /ads/{id} [put]
func (h *AdHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateAdRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	ad, err := h.adService.Update(r.Context(), id, &req)
	if err != nil {
		h.RespondServiceError(w, err, "update ad")
		return
	}

	h.RespondJSON(w, http.StatusOK, ad)
}

// Delete handles DELETE /ads/{id}
// @Summary Delete ad
// @Tags ads
// @Produce json
// @Security BearerAuth
// @Param id path int true "Ad ID"
// @Success 200 {object} map[string]string "Ad deleted"
// @Failure 404 {object} map[string]string "Ad not found"
// @Router /ads/{id} [delete]
func (h *AdHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.adService.Delete(r.Context(), id); err != nil {
		h.RespondServiceError(w, err, "delete ad")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "ad deleted successfully"})
}
