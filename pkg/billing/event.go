package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventKind is the closed set of provider event types the reconciler acts on.
// Anything else maps to EventUnknown, which is recorded and ignored.
type EventKind string

const (
	EventSubscriptionCreated   EventKind = "subscription_created"
	EventSubscriptionUpdated   EventKind = "subscription_updated"
	EventSubscriptionCancelled EventKind = "subscription_cancelled"
	EventPaymentFailed         EventKind = "payment_failed"
	EventUnknown               EventKind = "unknown"
)

// Event is a normalized, already-verified provider webhook event.
// Signature verification and payload parsing happen in the Provider
// implementation before an Event reaches the reconciler.
type Event struct {
	// ProviderEventID is the provider-assigned globally unique event ID,
	// the idempotency key for reconciliation.
	ProviderEventID string

	Kind          EventKind
	ProviderEvent string // original provider event name, e.g. subscription.canceled

	CustomerID         string // our user ID, carried in provider custom data
	ProviderCustomerID string // provider's own customer ID, e.g. Paddle ctm_
	SubscriptionID     string // provider's subscription ID
	PriceID        string // provider price the customer is on
	Status         string // provider-reported subscription status

	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	NextBilledAt *time.Time

	OccurredAt time.Time
	Raw        []byte // full payload, kept for the audit record
}

// Outcome is the resolved result of processing one event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeError     Outcome = "error"
)

// EventRecord is the immutable audit row written for every processed event,
// including duplicates, ignored kinds, and events that could not be linked to
// a subscription.
type EventRecord struct {
	ID              uuid.UUID
	ProviderEventID string
	Kind            EventKind

	// UserID links the event to a subscription; nil when the customer ID
	// could not be resolved.
	UserID *uuid.UUID

	Outcome     Outcome
	Raw         []byte
	OccurredAt  time.Time
	ProcessedAt time.Time
}

// EventStore persists billing event audit records and answers the two
// questions reconciliation needs: has this provider event ID been seen, and
// when did the last applied event for a subscription occur.
type EventStore interface {
	// Exists reports whether an event with the given provider event ID has
	// already been recorded.
	Exists(ctx context.Context, providerEventID string) (bool, error)

	// Record appends an audit record. Returns ErrEventAlreadyApplied when the
	// provider event ID is already present.
	Record(ctx context.Context, rec *EventRecord) error

	// LastAppliedAt returns the occurred-at timestamp of the most recent
	// applied event for the given user, or the zero time when none exists.
	LastAppliedAt(ctx context.Context, userID uuid.UUID) (time.Time, error)
}
