package metering

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trendit-api/trendit/pkg/plans"
)

type ledgerKey struct {
	sub uuid.UUID
	use plans.UsageType
}

// MemoryLedger is an in-memory Ledger for tests and single-process
// development. Records are held per (subscription, usage type).
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[ledgerKey][]Record
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[ledgerKey][]Record)}
}

func (l *MemoryLedger) Append(ctx context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey{sub: rec.SubscriptionID, use: rec.UsageType}
	l.records[key] = append(l.records[key], rec)
	return nil
}

func (l *MemoryLedger) SumSince(ctx context.Context, subscriptionID uuid.UUID, usageType plans.UsageType, since time.Time) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, rec := range l.records[ledgerKey{sub: subscriptionID, use: usageType}] {
		if !rec.RecordedAt.Before(since) {
			total += rec.Cost
		}
	}
	return total, nil
}

// Count returns the number of records held for a subscription and usage
// type, for tests.
func (l *MemoryLedger) Count(subscriptionID uuid.UUID, usageType plans.UsageType) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records[ledgerKey{sub: subscriptionID, use: usageType}])
}
