package payments

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// ErrNotConfigured is returned when no Stripe secret key is configured.
var ErrNotConfigured = errors.New("Stripe integration pending")

// Intent is the part of a Stripe PaymentIntent the client needs to pay.
type Intent struct {
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
}

// IntentCreator abstracts Stripe PaymentIntent creation for testability.
type IntentCreator interface {
	Create(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
}

// StripeIntents creates PaymentIntents with the Stripe Go SDK.
type StripeIntents struct {
	SecretKey string
}

func (s *StripeIntents) Create(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	if s.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	client := paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: s.SecretKey}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		Metadata: metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	pi, err := client.New(params)
	if err != nil {
		return nil, err
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
