package handlers

import (
	"context"
	"net/http"

	"github.com/coursemarket/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EnrollmentService is the interface that wraps methods for enrollment business logic.
type EnrollmentService interface {
	// Method Enroll enrolls the user in a course.
	//
	// Returns the enrollment and whether it was created. A retry with the payment intent of an
	// existing enrollment returns that enrollment and false. Other duplicates return ErrAlreadyEnrolled,
	// unpaid intents ErrPaymentRequired.
	Enroll(ctx context.Context, userID, courseID int, req *models.EnrollRequest) (*models.Enrollment, bool, error)
	// Method Unenroll removes the enrollment with its lesson progress.
	Unenroll(ctx context.Context, userID, courseID int) error
	// Method Update applies a partial update; lessonsProgress, when present, replaces the list.
	Update(ctx context.Context, userID, courseID int, req *models.UpdateEnrollmentRequest) (*models.Enrollment, error)
	GetMy(ctx context.Context, userID int) ([]models.Enrollment, error)
	Get(ctx context.Context, userID, courseID int) (*models.Enrollment, error)
}

// EnrollmentHandler handles enrollment-related HTTP requests
type EnrollmentHandler struct {
	BaseHandler
	enrollmentService EnrollmentService
	authMiddleware    func(http.Handler) http.Handler
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(enrollmentService EnrollmentService, authMiddleware func(http.Handler) http.Handler, logger *zap.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       BaseHandler{Logger: logger},
		enrollmentService: enrollmentService,
		authMiddleware:    authMiddleware,
	}
}

// RegisterRoutes registers all enrollment handler routes
func (h *EnrollmentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/enrollments", func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Get("/my", h.GetMy)
		r.Get("/{courseId}", h.Get)
		r.Post("/{courseId}", h.Enroll)
		r.Patch("/{courseId}", h.Update)
		r.Delete("/{courseId}", h.Unenroll)
	})
}

// GetMy handles GET /enrollments/my
// @Summary My enrollments
// @Description Enrollments of the current user with course summaries, newest first
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Enrollment
// @Failure 401 {object} map[string]string "Authentication required"
// @Router /enrollments/my [get]
func (h *EnrollmentHandler) GetMy(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	enrollments, err := h.enrollmentService.GetMy(r.Context(), userID)
	if err != nil {
		h.RespondServiceError(w, err, "get enrollments")
		return
	}

	h.RespondJSON(w, http.StatusOK, enrollments)
}

// Get handles GET /enrollments/{courseId}
// @Summary Get enrollment
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Success 200 {object} models.Enrollment
// @Failure 404 {object} map[string]string "Not enrolled"
// @Router /enrollments/{courseId} [get]
func (h *EnrollmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	courseID, ok := h.PathID(w, r, "courseId")
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.Get(r.Context(), userID, courseID)
	if err != nil {
		h.RespondServiceError(w, err, "get enrollment")
		return
	}

	h.RespondJSON(w, http.StatusOK, enrollment)
}

// Enroll handles POST /enrollments/{courseId}
// @Summary Enroll in a course
// @Description Free courses are enrolled directly. Paid courses need the id of a succeeded payment intent.
// @Description Retrying with the same payment intent returns the existing enrollment with 200.
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Param request body models.EnrollRequest false "Payment intent of a paid course"
// @Success 201 {object} models.Enrollment
// @Success 200 {object} models.Enrollment "Existing enrollment for the same payment intent"
// @Failure 400 {object} map[string]string "Already enrolled or payment intent missing"
// @Failure 402 {object} map[string]string "Payment not completed"
// @Failure 404 {object} map[string]string "Course not found"
// @Router /enrollments/{courseId} [post]
func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	courseID, ok := h.PathID(w, r, "courseId")
	if !ok {
		return
	}

	var req models.EnrollRequest
	if !h.DecodeOptionalJSON(w, r, &req) {
		return
	}

	enrollment, created, err := h.enrollmentService.Enroll(r.Context(), userID, courseID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "enroll")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.RespondJSON(w, status, enrollment)
}

// Update handles PATCH /enrollments/{courseId}
// @Summary Update enrollment
// @Description Partial update of progress, status, lastAccessed, certificateUrl, notes and lessonsProgress
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Param request body models.UpdateEnrollmentRequest true "Enrollment fields"
// @Success 200 {object} models.Enrollment
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Not enrolled"
// @Router /enrollments/{courseId} [patch]
func (h *EnrollmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	courseID, ok := h.PathID(w, r, "courseId")
	if !ok {
		return
	}

	var req models.UpdateEnrollmentRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	enrollment, err := h.enrollmentService.Update(r.Context(), userID, courseID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "update enrollment")
		return
	}

	h.RespondJSON(w, http.StatusOK, enrollment)
}

// Unenroll handles DELETE /enrollments/{courseId}
// @Summary Unenroll from a course
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Success 200 {object} map[string]string "Unenrolled"
// @Failure 404 {object} map[string]string "Not enrolled"
// @Router /enrollments/{courseId} [delete]
func (h *EnrollmentHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}
	courseID, ok := h.PathID(w, r, "courseId")
	if !ok {
		return
	}

	if err := h.enrollmentService.Unenroll(r.Context(), userID, courseID); err != nil {
		h.RespondServiceError(w, err, "unenroll")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "unenrolled successfully"})
}
