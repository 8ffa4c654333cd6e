package billing

import (
	"context"
	"time"
)

// Provider is the payment-provider abstraction. The core consumes checkout
// and portal sessions from it and feeds its verified webhook events into the
// Reconciler; it never drives subscription mutations through the provider
// API directly.
type Provider interface {
	// CreateCheckoutLink creates a hosted checkout session for a paid tier.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// GetCustomerPortalLink returns a temporary customer portal link where
	// the user can change payment methods, switch tiers, or cancel.
	GetCustomerPortalLink(ctx context.Context, sub *Subscription) (*PortalLink, error)

	// ParseWebhook verifies the webhook signature and normalizes the payload
	// into an Event. Returns ErrWebhookSignature on verification failure.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	PriceID    string // provider price identifier from the tier catalog
	CustomerID string // our user ID, round-tripped through provider custom data
	Email      string
	SuccessURL string
	CancelURL  string
}

// CheckoutLink is a hosted checkout session.
type CheckoutLink struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// PortalLink is a pre-authenticated customer portal session.
type PortalLink struct {
	URL              string
	CancelURL        string
	UpdatePaymentURL string
	ExpiresAt        time.Time
}
