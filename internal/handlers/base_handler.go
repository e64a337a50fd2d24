package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	authmw "github.com/coursemarket/backend/internal/auth/middleware"
	"github.com/coursemarket/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondServiceError maps a service error to its HTTP status.
// Unknown errors are logged and hidden behind a generic 500 message.
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, models.ErrAlreadyEnrolled):
		h.RespondError(w, http.StatusBadRequest, models.ErrAlreadyEnrolled.Error())
	case errors.Is(err, models.ErrNotFound):
		h.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrAlreadyExists):
		h.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrUnauthorized):
		h.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrForbidden):
		h.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrPaymentRequired):
		h.RespondError(w, http.StatusPaymentRequired, err.Error())
	default:
		h.Logger.Error("failed to "+action, zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// DecodeJSON decodes the request body into dst and writes the error response on failure
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decodeJSON(w, r, dst, false)
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be omitted.
// An empty body, with or without a Content-Length, leaves dst untouched.
func (h *BaseHandler) DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return h.decodeJSON(w, r, dst, true)
}

func (h *BaseHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// PathID parses a positive integer URL parameter and writes a 400 response on failure
func (h *BaseHandler) PathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// CurrentUser returns the authenticated user and writes a 401 response when there is none
func (h *BaseHandler) CurrentUser(w http.ResponseWriter, r *http.Request) (int, models.Role, bool) {
	userID, ok := authmw.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return 0, 0, false
	}
	role, _ := authmw.GetRole(r.Context())
	return userID, models.Role(role), true
}
