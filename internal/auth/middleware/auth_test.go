package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockValidator struct {
	userID int
	role   int
	err    error
	token  string
}

func (m *mockValidator) ValidateAccessToken(token string) (int, int, error) {
	m.token = token
	return m.userID, m.role, m.err
}

func TestRoleMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		validator      *mockValidator
		requiredRole   int
		setupRequest   func(r *http.Request)
		expectedStatus int
		expectedToken  string
		expectedUserID int
	}{
		{
			name:      "bearer header",
			validator: &mockValidator{userID: 7, role: 1},
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer abc")
			},
			expectedStatus: http.StatusOK,
			expectedToken:  "abc",
			expectedUserID: 7,
		},
		{
			name:      "cookie fallback",
			validator: &mockValidator{userID: 8, role: 1},
			setupRequest: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: "from-cookie"})
			},
			expectedStatus: http.StatusOK,
			expectedToken:  "from-cookie",
			expectedUserID: 8,
		},
		{
			name:           "missing token",
			validator:      &mockValidator{},
			setupRequest:   func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:      "invalid token",
			validator: &mockValidator{err: errors.New("expired")},
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer abc")
			},
			expectedStatus: http.StatusUnauthorized,
			expectedToken:  "abc",
		},
		{
			name:         "insufficient role",
			validator:    &mockValidator{userID: 7, role: 1},
			requiredRole: 2,
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer abc")
			},
			expectedStatus: http.StatusForbidden,
			expectedToken:  "abc",
		},
		{
			name:         "admin passes admin check",
			validator:    &mockValidator{userID: 1, role: 2},
			requiredRole: 2,
			setupRequest: func(r *http.Request) {
				r.Header.Set("Authorization", "bearer abc")
			},
			expectedStatus: http.StatusOK,
			expectedToken:  "abc",
			expectedUserID: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID int
			handler := RoleMiddleware(tt.validator, tt.requiredRole)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, _ = GetUserID(r.Context())
				role, ok := GetRole(r.Context())
				assert.True(t, ok)
				assert.Equal(t, tt.validator.role, role)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setupRequest(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedToken, tt.validator.token)
			assert.Equal(t, tt.expectedUserID, gotUserID)
		})
	}
}

func TestGetUserID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := GetUserID(req.Context())
	assert.False(t, ok)
}
