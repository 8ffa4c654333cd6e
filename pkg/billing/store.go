package billing

import (
	"context"

	"github.com/google/uuid"
)

// Store defines subscription persistence. Each user has exactly one
// subscription, so UserID is the primary key.
type Store interface {
	// Get retrieves a subscription by user ID.
	// Returns ErrSubscriptionNotFound when none exists.
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// GetByProviderCustomerID resolves a provider customer identifier to the
	// owning subscription. Returns ErrSubscriptionNotFound when unknown.
	GetByProviderCustomerID(ctx context.Context, customerID string) (*Subscription, error)

	// Save creates or updates a subscription keyed by UserID.
	Save(ctx context.Context, sub *Subscription) error
}
