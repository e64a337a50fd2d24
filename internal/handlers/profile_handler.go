package handlers

import (
	"context"
	"net/http"

	"github.com/coursemarket/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProfileService is the interface that wraps methods for the current user's profile
type ProfileService interface {
	GetMe(ctx context.Context, userID int) (*models.User, error)
	UpdateMe(ctx context.Context, userID int, req *models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID int, req *models.ChangePasswordRequest) error
}

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	BaseHandler
	profileService ProfileService
	authMiddleware func(http.Handler) http.Handler
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService ProfileService, authMiddleware func(http.Handler) http.Handler, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:    BaseHandler{Logger: logger},
		profileService: profileService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all profile handler routes
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Get("/users/me", h.GetMe)
		r.Put("/users/me", h.UpdateMe)
		r.Post("/users/changepassword", h.ChangePassword)
	})
}

// GetMe handles GET /users/me
// @Summary Get current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]string "Authentication required"
// @Router /users/me [get]
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	user, err := h.profileService.GetMe(r.Context(), userID)
	if err != nil {
		h.RespondServiceError(w, err, "get profile")
		return
	}

	h.RespondJSON(w, http.StatusOK, user)
}

// UpdateMe handles PUT /users/me
// @Summary Update current user
// @Description Update name, email or avatar. The email must not belong to another account.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string "Invalid request or email taken"
// @Failure 401 {object} map[string]string "Authentication required"
// @Router /users/me [put]
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.profileService.UpdateMe(r.Context(), userID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "update profile")
		return
	}

	h.RespondJSON(w, http.StatusOK, user)
}

// ChangePassword handles POST /users/changepassword
// @Summary Change password
// @Description The current password must match; the new one must satisfy the password rules and differ. Signs out other sessions.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChangePasswordRequest true "Passwords"
// @Success 200 {object} map[string]string "Password changed"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Authentication required"
// @Router /users/changepassword [post]
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.profileService.ChangePassword(r.Context(), userID, &req); err != nil {
		h.RespondServiceError(w, err, "change password")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}
