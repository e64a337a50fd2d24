package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coursemarket/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthService is the interface that wraps methods for authentication business logic.
type AuthService interface {
	// Method Register validates the credentials, creates the user and returns a token pair.
	//
	// If the email is taken, ErrAlreadyExists is returned. Invalid input returns ErrInvalidInput.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.TokenResponse, error)
	// Method Login checks email and password and returns a token pair.
	//
	// Wrong credentials return ErrInvalidCredentials.
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)
	// Method Refresh rotates a refresh token and returns a new token pair.
	//
	// Invalid or expired tokens return ErrUnauthorized.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService   AuthService
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	secureCookies bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, accessExpiry, refreshExpiry time.Duration, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler:   BaseHandler{Logger: logger},
		authService:   authService,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes registers all auth handler routes
// Note: This assumes the router is already scoped to /api
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
	})
}

// Register handles POST /auth/register
// @Summary Register a new user
// @Description Create an account. Returns the token pair in the body and as HTTP-only cookies.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration data"
// @Success 201 {object} models.TokenResponse
// @Failure 400 {object} map[string]string "Invalid request body or email already exists"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, err, "register user")
		return
	}

	h.setTokenCookies(w, resp.AccessToken, resp.RefreshToken)
	h.RespondJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login
// @Summary Login user
// @Description Authenticate with email and password. Returns the token pair in the body and as HTTP-only cookies.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.RespondServiceError(w, err, "login user")
		return
	}

	h.setTokenCookies(w, resp.AccessToken, resp.RefreshToken)
	h.RespondJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh
// @Summary Refresh access token
// @Description Rotate the refresh token. The token can be provided in the request body or as the refresh_token cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest false "Refresh token (optional if using cookie)"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} map[string]string "Refresh token required"
// @Failure 401 {object} map[string]string "Invalid or expired refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !h.DecodeOptionalJSON(w, r, &req) {
		return
	}

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		cookie, err := r.Cookie("refresh_token")
		if err != nil {
			h.RespondError(w, http.StatusBadRequest, "refresh token required")
			return
		}
		refreshToken = cookie.Value
	}

	resp, err := h.authService.Refresh(r.Context(), refreshToken)
	if err != nil {
		h.RespondServiceError(w, err, "refresh tokens")
		return
	}

	h.setTokenCookies(w, resp.AccessToken, resp.RefreshToken)
	h.RespondJSON(w, http.StatusOK, resp)
}

// setTokenCookies sets access and refresh tokens as HTTP-only cookies
func (h *AuthHandler) setTokenCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.accessExpiry.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/api/auth",
		MaxAge:   int(h.refreshExpiry.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
