package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coursemarket/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockMediaService struct {
	dir         string
	uploadedCT  string
	uploadedLen int
	deleted     []string
}

func (m *mockMediaService) Upload(ctx context.Context, r io.Reader, filename, contentType string) (*models.Media, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.uploadedCT = contentType
	m.uploadedLen = len(data)
	if contentType != "image/png" && contentType != "image/jpeg" {
		return nil, fmt.Errorf("%w: only jpeg and png images are supported", models.ErrInvalidInput)
	}
	return &models.Media{ID: "abc", Filename: filename, ContentType: contentType, URL: "/media/abc"}, nil
}

func (m *mockMediaService) Open(ctx context.Context, id string) (*models.Media, *os.File, error) {
	file, err := os.Open(filepath.Join(m.dir, id))
	if err != nil {
		return nil, nil, fmt.Errorf("media %w", models.ErrNotFound)
	}
	return &models.Media{ID: id, Filename: "cover.png", ContentType: "image/png", CreatedAt: time.Now()}, file, nil
}

func (m *mockMediaService) Delete(ctx context.Context, id string) error {
	if id != "abc" {
		return fmt.Errorf("media %w", models.ErrNotFound)
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestMediaHandler_Upload(t *testing.T) {
	pngData := testPNG(t)

	tests := []struct {
		name           string
		field          string
		contentType    string
		data           []byte
		expectedStatus int
		expectedCT     string
	}{
		{
			name:           "declared png",
			field:          "file",
			contentType:    "image/png",
			data:           pngData,
			expectedStatus: http.StatusCreated,
			expectedCT:     "image/png",
		},
		{
			name:           "sniffed png",
			field:          "file",
			contentType:    "application/octet-stream",
			data:           pngData,
			expectedStatus: http.StatusCreated,
			expectedCT:     "image/png",
		},
		{
			name:           "unsupported format",
			field:          "file",
			data:           []byte("GIF89a......"),
			expectedStatus: http.StatusBadRequest,
			expectedCT:     "image/gif",
		},
		{
			name:           "missing file field",
			field:          "image",
			contentType:    "image/png",
			data:           pngData,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockMediaService{}
			router := newTestRouter(NewMediaHandler(svc, fakeAuth(1, models.RoleAdmin), zap.NewNop()))

			body, ct := multipartBody(t, tt.field, "cover.png", tt.contentType, tt.data)
			req := httptest.NewRequest(http.MethodPost, "/uploads", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCT, svc.uploadedCT)
			if tt.expectedCT != "" {
				assert.Equal(t, len(tt.data), svc.uploadedLen, "sniffing must not consume the file")
			}
		})
	}
}

func TestMediaHandler_UploadTooLarge(t *testing.T) {
	svc := &mockMediaService{}
	router := newTestRouter(NewMediaHandler(svc, fakeAuth(1, models.RoleAdmin), zap.NewNop()))

	body, ct := multipartBody(t, "file", "big.png", "image/png", make([]byte, maxUploadSize+1))
	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, svc.uploadedCT)
}

func TestMediaHandler_Serve(t *testing.T) {
	dir := t.TempDir()
	pngData := testPNG(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc"), pngData, 0o644))

	svc := &mockMediaService{dir: dir}
	h := NewMediaHandler(svc, fakeAuth(1, models.RoleAdmin), zap.NewNop())
	router := chi.NewRouter()
	h.RegisterPublicRoutes(router)

	w := doJSON(t, router, http.MethodGet, "/media/abc", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngData, w.Body.Bytes())

	w = doJSON(t, router, http.MethodGet, "/media/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMediaHandler_Delete(t *testing.T) {
	svc := &mockMediaService{}
	router := newTestRouter(NewMediaHandler(svc, fakeAuth(1, models.RoleAdmin), zap.NewNop()))

	w := doJSON(t, router, http.MethodDelete, "/uploads/abc", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"abc"}, svc.deleted)

	w = doJSON(t, router, http.MethodDelete, "/uploads/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
