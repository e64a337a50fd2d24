package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/coursemarket/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxUploadSize   = 10 << 20 // 10MB
	uploadFormField = "file"
)

// MediaService is the interface that wraps methods for uploaded images.
type MediaService interface {
	// Method Upload stores a jpeg or png image. Other content types return ErrInvalidInput.
	Upload(ctx context.Context, r io.Reader, filename, contentType string) (*models.Media, error)
	// Method Open returns the metadata and the open file; the caller closes the file.
	Open(ctx context.Context, id string) (*models.Media, *os.File, error)
	Delete(ctx context.Context, id string) error
}

// MediaHandler handles image upload and delivery
type MediaHandler struct {
	BaseHandler
	mediaService    MediaService
	adminMiddleware func(http.Handler) http.Handler
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(mediaService MediaService, adminMiddleware func(http.Handler) http.Handler, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		BaseHandler:     BaseHandler{Logger: logger},
		mediaService:    mediaService,
		adminMiddleware: adminMiddleware,
	}
}

// RegisterRoutes registers the upload routes under the API router
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.With(h.adminMiddleware).Post("/uploads", h.Upload)
	r.With(h.adminMiddleware).Delete("/uploads/{id}", h.Delete)
}

// RegisterPublicRoutes registers image delivery, mounted outside the API prefix
func (h *MediaHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/media/{id}", h.Serve)
}

// Upload handles POST /uploads
// @Summary Upload image
// @Description Accepts a jpeg or png image up to 10MB in the "file" form field. Large images are downscaled to fit 1920x1920.
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image"
// @Success 201 {object} models.Media
// @Failure 400 {object} map[string]string "Missing file or unsupported format"
// @Failure 413 {object} map[string]string "File too large"
// @Router /uploads [post]
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadSize {
		h.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		h.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType, err := detectContentType(file, header.Header.Get("Content-Type"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	media, err := h.mediaService.Upload(r.Context(), file, header.Filename, contentType)
	if err != nil {
		h.RespondServiceError(w, err, "upload media")
		return
	}

	h.RespondJSON(w, http.StatusCreated, media)
}

// Delete handles DELETE /uploads/{id}
// @Summary Delete image
// @Tags media
// @Produce json
// @Security BearerAuth
// @Param id path string true "Media ID"
// @Success 200 {object} map[string]string "Media deleted"
// @Failure 404 {object} map[string]string "Media not found"
// @Router /uploads/{id} [delete]
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.mediaService.Delete(r.Context(), id); err != nil {
		h.RespondServiceError(w, err, "delete media")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "media deleted successfully"})
}

// Serve handles GET /media/{id}
// @Summary Get image
// @Tags media
// @Produce image/jpeg,image/png
// @Param id path string true "Media ID"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string "Media not found"
// @Router /media/{id} [get]
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	media, file, err := h.mediaService.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.RespondServiceError(w, err, "open media")
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", media.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, media.Filename, media.CreatedAt, file)
}

// detectContentType trusts a declared image type and sniffs everything else.
// The reader is rewound to the start.
func detectContentType(file io.ReadSeeker, declared string) (string, error) {
	switch declared {
	case "image/jpeg", "image/png":
		return declared, nil
	}

	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
