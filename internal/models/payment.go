package models

// PaymentIntentSucceeded is the provider status of a captured payment
const PaymentIntentSucceeded = "succeeded"

// PaymentIntent is the provider-independent view of a payment intent
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64 // minor units
	Currency     string
	Status       string
	Metadata     map[string]string
}

// CreateIntentParams describes a payment intent to create
type CreateIntentParams struct {
	Amount         int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// CreatePaymentIntentRequest is the client request for a course payment
type CreatePaymentIntentRequest struct {
	CourseID int `json:"courseId" validate:"required,gt=0"`
}

// PaymentIntentResponse is what the client needs to present the payment sheet
type PaymentIntentResponse struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	PublishableKey  string `json:"publishableKey"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}
