package handlers

import (
	"context"
	"net/http"

	"github.com/coursemarket/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PaymentService is the interface that wraps methods for payment business logic.
type PaymentService interface {
	// Method CreateCourseIntent creates a payment intent for the full price of a paid course.
	//
	// Returns ErrInvalidInput for free courses and ErrAlreadyEnrolled when the user owns the course.
	CreateCourseIntent(ctx context.Context, userID int, req *models.CreatePaymentIntentRequest) (*models.PaymentIntentResponse, error)
}

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	BaseHandler
	paymentService PaymentService
	authMiddleware func(http.Handler) http.Handler
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentService, authMiddleware func(http.Handler) http.Handler, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    BaseHandler{Logger: logger},
		paymentService: paymentService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all payment handler routes
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.With(h.authMiddleware).Post("/payments/intent", h.CreateIntent)
}

// CreateIntent handles POST /payments/intent
// @Summary Create payment intent
// @Description Creates a payment intent for a paid course. Pass the intent id to POST /enrollments/{courseId} after the payment succeeds.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreatePaymentIntentRequest true "Course to pay for"
// @Success 200 {object} models.PaymentIntentResponse
// @Failure 400 {object} map[string]string "Free course or already enrolled"
// @Failure 404 {object} map[string]string "Course not found"
// @Router /payments/intent [post]
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	var req models.CreatePaymentIntentRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.paymentService.CreateCourseIntent(r.Context(), userID, &req)
	if err != nil {
		h.RespondServiceError(w, err, "create payment intent")
		return
	}

	h.RespondJSON(w, http.StatusOK, resp)
}
