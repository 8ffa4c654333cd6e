package plans

import (
	"maps"
	"time"
)

// Tier is a single catalog entry: a named pricing plan with per-usage-type
// quotas. Entries are immutable once loaded into a Catalog.
type Tier struct {
	ID          TierID
	Name        string
	Description string

	// PriceID is the payment provider's price identifier (e.g. Paddle's
	// pri_xxx). Empty for the free tier. Webhook events carry this ID, so it
	// is the join key between provider payloads and the catalog.
	PriceID string

	// Limits maps each usage type to its per-period quota.
	// Unlimited (-1) disables the limit.
	Limits map[UsageType]int64

	Price     Money
	Interval  BillingInterval
	TrialDays int

	// Retention is how long usage and collected data are kept for this tier.
	// Purging is housekeeping outside the gating path; the value is carried
	// here because it is part of the tier contract.
	Retention time.Duration
}

// Limit returns the quota for the given usage type.
// The second return is false when the tier does not define the type,
// which the catalog validation normally makes impossible.
func (t Tier) Limit(u UsageType) (int64, bool) {
	limit, ok := t.Limits[u]
	return limit, ok
}

// IsFree reports whether this tier bills through a payment provider.
func (t Tier) IsFree() bool {
	return t.Interval == IntervalNone || t.ID == TierFree
}

// CloneLimits returns a copy of the limit mapping, suitable for snapshotting
// onto a subscription without sharing the catalog's map.
func (t Tier) CloneLimits() map[UsageType]int64 {
	return maps.Clone(t.Limits)
}
