package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/coursemarket/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type mockCourseService struct {
	listFilter *models.CourseFilter
	courses    map[int]*models.Course
	reels      []models.FeaturedReel
	createErr  error
	created    *models.CreateCourseRequest
	deleted    []int
}

func (m *mockCourseService) List(ctx context.Context, filter *models.CourseFilter) (*models.CourseListResponse, error) {
	m.listFilter = filter
	return &models.CourseListResponse{Courses: []models.CourseListItem{}, Page: filter.Page, Count: filter.Count}, nil
}

func (m *mockCourseService) GetByID(ctx context.Context, id int) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("course %w", models.ErrNotFound)
}

func (m *mockCourseService) GetFeaturedReels(ctx context.Context) ([]models.FeaturedReel, error) {
	return m.reels, nil
}

func (m *mockCourseService) Create(ctx context.Context, req *models.CreateCourseRequest) (*models.Course, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = req
	return &models.Course{ID: 10, Title: req.Title, Slug: "new-course"}, nil
}

func (m *mockCourseService) Update(ctx context.Context, id int, req *models.UpdateCourseRequest) (*models.Course, error) {
	c, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		c.Title = *req.Title
	}
	return c, nil
}

func (m *mockCourseService) Delete(ctx context.Context, id int) error {
	if _, ok := m.courses[id]; !ok {
		return fmt.Errorf("course %w", models.ErrNotFound)
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func TestCourseHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectFilter   func(t *testing.T, f *models.CourseFilter)
	}{
		{
			name:           "defaults are left to the service",
			query:          "",
			expectedStatus: http.StatusOK,
			expectFilter: func(t *testing.T, f *models.CourseFilter) {
				assert.Equal(t, 0, f.Page)
				assert.Equal(t, 0, f.Count)
				assert.Nil(t, f.Featured)
			},
		},
		{
			name:           "all parameters",
			query:          "?page=2&count=5&search=go&featured=true",
			expectedStatus: http.StatusOK,
			expectFilter: func(t *testing.T, f *models.CourseFilter) {
				assert.Equal(t, 2, f.Page)
				assert.Equal(t, 5, f.Count)
				assert.Equal(t, "go", f.Search)
				if assert.NotNil(t, f.Featured) {
					assert.True(t, *f.Featured)
				}
			},
		},
		{
			name:           "invalid page",
			query:          "?page=abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero count",
			query:          "?count=0",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid featured",
			query:          "?featured=maybe",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCourseService{}
			router := newTestRouter(NewCourseHandler(svc, fakeAuth(1, models.RoleAdmin), zap.NewNop()))

			w := doJSON(t, router, http.MethodGet, "/courses"+tt.query, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectFilter != nil {
				tt.expectFilter(t, svc.listFilter)
			}
		})
	}
}

func TestCourseHandler_GetByID(t *testing.T) {
	svc := &mockCourseService{courses: map[int]*models.Course{1: {ID: 1, Title: "Go"}}}
	router := newTestRouter(NewCourseHandler(svc, fakeAuth(1, models.RoleAdmin), zap.NewNop()))

	w := doJSON(t, router, http.MethodGet, "/courses/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Go", decodeBody[models.Course](t, w).Title)

	w = doJSON(t, router, http.MethodGet, "/courses/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/courses/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseHandler_FeaturedReelsRouteWinsOverID(t *testing.T) {
	svc := &mockCourseService{reels: []models.FeaturedReel{{ID: 3, Title: "Reel"}}}
	router := newTestRouter(NewCourseHandler(svc, fakeAuth(1, models.RoleAdmin), zap.NewNop()))

	w := doJSON(t, router, http.MethodGet, "/courses/featuredreels", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	reels := decodeBody[[]models.FeaturedReel](t, w)
	assert.Len(t, reels, 1)
}

func TestCourseHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		admin          bool
		body           any
		createErr      error
		expectedStatus int
	}{
		{
			name:           "created",
			admin:          true,
			body:           map[string]any{"title": "Go", "description": "d", "instructor": "i", "price": 0},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed body",
			admin:          true,
			body:           "{",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "duplicate title",
			admin:          true,
			body:           map[string]any{"title": "Go"},
			createErr:      fmt.Errorf("%w: course title already exists", models.ErrAlreadyExists),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "not an admin",
			admin:          false,
			body:           map[string]any{"title": "Go"},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCourseService{createErr: tt.createErr}
			admin := fakeAuth(1, models.RoleAdmin)
			if !tt.admin {
				admin = denyAll
			}
			router := newTestRouter(NewCourseHandler(svc, admin, zap.NewNop()))

			w := doJSON(t, router, http.MethodPost, "/courses", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusCreated {
				assert.Equal(t, "Go", svc.created.Title)
			}
		})
	}
}

func TestCourseHandler_UpdateAndDelete(t *testing.T) {
	svc := &mockCourseService{courses: map[int]*models.Course{1: {ID: 1, Title: "Go"}}}
	router := newTestRouter(NewCourseHandler(svc, fakeAuth(1, models.RoleAdmin), zap.NewNop()))

	w := doJSON(t, router, http.MethodPut, "/courses/1", map[string]any{"title": "Go 2"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Go 2", decodeBody[models.Course](t, w).Title)

	w = doJSON(t, router, http.MethodDelete, "/courses/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{1}, svc.deleted)

	w = doJSON(t, router, http.MethodDelete, "/courses/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
