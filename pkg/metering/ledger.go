package metering

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trendit-api/trendit/pkg/plans"
)

// Record is one metered event. Records are immutable once appended and stay
// owned by the subscription that admitted them, even if that subscription
// later changes tier.
type Record struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	UsageType      plans.UsageType
	Cost           int64
	RecordedAt     time.Time

	// Opaque request context, not interpreted by the core.
	Endpoint  string
	RequestID string
}

// Ledger is the append-only usage store.
type Ledger interface {
	// Append records one admitted usage event. It is the unconditional
	// recording primitive: the gate has already approved the request when
	// Append is called.
	Append(ctx context.Context, rec Record) error

	// SumSince returns the total cost of all records for the subscription
	// and usage type with RecordedAt >= since. Zero when none exist.
	SumSince(ctx context.Context, subscriptionID uuid.UUID, usageType plans.UsageType, since time.Time) (int64, error)
}
