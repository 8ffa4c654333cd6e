package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/trendit-api/trendit/pkg/plans"
)

// Status is the subscription lifecycle state.
type Status string

const (
	StatusInactive  Status = "inactive" // account exists, never activated a paid tier
	StatusTrialing  Status = "trialing"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended" // payment failed, gate denies until resolved
	StatusCancelled Status = "cancelled"
)

// Subscription is the per-user billing state. Each user has exactly one
// subscription record (UserID is the primary key).
//
// Limits is a snapshot of the tier's catalog limits taken when the tier was
// (re)assigned. Later catalog changes do not retroactively alter an existing
// subscriber's contract; the snapshot only changes on tier transitions driven
// by webhook events or free-tier activation.
type Subscription struct {
	UserID uuid.UUID
	TierID plans.TierID
	Status Status

	// Provider-driven billing window. Nil for free-tier subscriptions and
	// for paid tiers before the first successful activation.
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
	NextRenewalAt *time.Time

	// Provider identifiers, empty until a checkout handshake completes.
	ProviderCustomerID     string
	ProviderSubscriptionID string

	Trial       bool
	TrialEndsAt *time.Time

	Limits map[plans.UsageType]int64

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt *time.Time
}

// DefaultFree returns the implicit free-tier subscription for a user that has
// never gone through checkout. It carries the free tier's limit snapshot and
// is usable by the gate without being persisted.
func DefaultFree(userID uuid.UUID, catalog *plans.Catalog) *Subscription {
	now := time.Now().UTC()
	free := catalog.Free()
	return &Subscription{
		UserID:    userID,
		TierID:    plans.TierFree,
		Status:    StatusInactive,
		Limits:    free.CloneLimits(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive reports whether the subscription is in paid active state.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsTrialing reports whether the subscription is in an unexpired trial.
func (s *Subscription) IsTrialing() bool {
	if s.Status != StatusTrialing {
		return false
	}
	if s.TrialEndsAt == nil {
		return true
	}
	return time.Now().UTC().Before(*s.TrialEndsAt)
}

// IsUsable reports whether metered requests may be admitted at all.
// The free tier is always usable regardless of lifecycle status; paid tiers
// require an active subscription or a live trial.
func (s *Subscription) IsUsable() bool {
	if s.TierID == plans.TierFree {
		return true
	}
	return s.IsActive() || s.IsTrialing()
}

// LimitFor returns the snapshotted limit for the given usage type.
func (s *Subscription) LimitFor(u plans.UsageType) (int64, bool) {
	limit, ok := s.Limits[u]
	return limit, ok
}
