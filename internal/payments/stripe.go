// Package payments talks to the card payment provider
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursemarket/backend/internal/models"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// stripeGateway creates and inspects Stripe PaymentIntents
type stripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a gateway authenticated with the secret key.
// backends may be nil to use the default Stripe endpoints.
func NewStripeGateway(secretKey string, backends *stripe.Backends) *stripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &stripeGateway{api: api}
}

// CreateIntent creates a PaymentIntent with automatic payment methods.
// Requests with the same idempotency key return the same intent.
func (g *stripeGateway) CreateIntent(ctx context.Context, p models.CreateIntentParams) (*models.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return toPaymentIntent(pi), nil
}

// GetIntent retrieves a PaymentIntent by id
func (g *stripeGateway) GetIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, fmt.Errorf("payment intent %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	return toPaymentIntent(pi), nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *models.PaymentIntent {
	return &models.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
}
