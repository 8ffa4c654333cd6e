package metering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trendit-api/trendit/pkg/billing"
	"github.com/trendit-api/trendit/pkg/plans"
)

// DenyReason distinguishes the two expected denial classes. They map to
// different caller-visible responses: quota exhaustion is a rate-limit-class
// condition, a non-usable subscription is a payment-required-class condition.
type DenyReason string

const (
	DenyQuotaExceeded        DenyReason = "quota_exceeded"
	DenySubscriptionRequired DenyReason = "subscription_required"
)

// Decision is the gate's answer for one request. Denials are normal business
// flow, not errors; CheckAndRecord returns a non-nil error only for caller
// bugs (unknown usage type, invalid cost) and storage failures.
type Decision struct {
	Allowed bool
	Reason  DenyReason // set when denied

	// Current is the usage recorded before this request; Limit the
	// snapshot quota. Carried on quota denials for caller-visible
	// messaging ("101/100 used this period"), and on allows for
	// rate-limit response headers.
	Current int64
	Limit   int64

	Period billing.Period

	// Record is the appended usage record when Allowed.
	Record *Record
}

// Remaining returns the quota left after this decision, or plans.Unlimited.
func (d Decision) Remaining() int64 {
	if d.Limit == plans.Unlimited {
		return plans.Unlimited
	}
	cost := int64(0)
	if d.Record != nil {
		cost = d.Record.Cost
	}
	if left := d.Limit - d.Current - cost; left > 0 {
		return left
	}
	return 0
}

// RequestContext carries opaque fields copied onto the usage record.
type RequestContext struct {
	Endpoint  string
	RequestID string
}

// Gate is the decision engine guarding metered operations.
type Gate struct {
	ledger Ledger
	locker KeyedLocker
	log    *slog.Logger
	now    func() time.Time
}

// GateOption configures optional gate behavior.
type GateOption func(*Gate)

// WithGateLogger sets the logger. Defaults to slog.Default.
func WithGateLogger(log *slog.Logger) GateOption {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// WithGateClock overrides the time source, for tests.
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate creates a Gate. Panics when ledger or locker is nil so
// misconfiguration fails at startup rather than on the first request.
func NewGate(ledger Ledger, locker KeyedLocker, opts ...GateOption) *Gate {
	if ledger == nil {
		panic("metering: Ledger is required")
	}
	if locker == nil {
		panic("metering: KeyedLocker is required")
	}

	g := &Gate{
		ledger: ledger,
		locker: locker,
		log:    slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckAndRecord decides whether the subscription may spend cost units of the
// given usage type in its current billing period, and appends the usage
// record when it may.
//
// A request is admitted as a whole: the entire cost is charged or the entire
// request is denied, and a request that exactly reaches the limit is allowed.
// Storage failures surface as errors; callers must fail closed on them, since
// failing open would allow unmetered, unbilled usage.
func (g *Gate) CheckAndRecord(ctx context.Context, sub *billing.Subscription, usageType plans.UsageType, cost int64, rctx RequestContext) (Decision, error) {
	if cost < 1 {
		return Decision{}, fmt.Errorf("%w: got %d", ErrInvalidCost, cost)
	}
	if !plans.IsKnownUsageType(usageType) {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownUsageType, usageType)
	}

	// Status gate first: independent of usage numbers.
	if !sub.IsUsable() {
		return Decision{Allowed: false, Reason: DenySubscriptionRequired}, nil
	}

	limit, ok := sub.LimitFor(usageType)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q on subscription %s", ErrLimitNotConfigured, usageType, sub.UserID)
	}

	unlock, err := g.locker.Lock(ctx, sub.UserID)
	if err != nil {
		return Decision{}, errors.Join(ErrLedgerFailed, err)
	}
	defer unlock()

	now := g.now()
	period := billing.CurrentPeriod(sub, now)
	if period.Stale {
		g.log.WarnContext(ctx, "provider billing period elapsed, metering against calendar month",
			"user_id", sub.UserID, "period_end", sub.PeriodEnd)
	}

	current, err := g.ledger.SumSince(ctx, sub.UserID, usageType, period.Start)
	if err != nil {
		return Decision{}, errors.Join(ErrLedgerFailed, err)
	}

	if limit != plans.Unlimited && current+cost > limit {
		return Decision{
			Allowed: false,
			Reason:  DenyQuotaExceeded,
			Current: current,
			Limit:   limit,
			Period:  period,
		}, nil
	}

	rec := Record{
		ID:             uuid.New(),
		SubscriptionID: sub.UserID,
		UsageType:      usageType,
		Cost:           cost,
		RecordedAt:     now,
		Endpoint:       rctx.Endpoint,
		RequestID:      rctx.RequestID,
	}
	if err := g.ledger.Append(ctx, rec); err != nil {
		return Decision{}, errors.Join(ErrLedgerFailed, err)
	}

	return Decision{
		Allowed: true,
		Current: current,
		Limit:   limit,
		Period:  period,
		Record:  &rec,
	}, nil
}

// Usage reports consumption-to-date for one usage type without recording
// anything, for dashboards and usage endpoints.
func (g *Gate) Usage(ctx context.Context, sub *billing.Subscription, usageType plans.UsageType) (current, limit int64, err error) {
	if !plans.IsKnownUsageType(usageType) {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownUsageType, usageType)
	}

	limit, ok := sub.LimitFor(usageType)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q on subscription %s", ErrLimitNotConfigured, usageType, sub.UserID)
	}

	period := billing.CurrentPeriod(sub, g.now())
	current, err = g.ledger.SumSince(ctx, sub.UserID, usageType, period.Start)
	if err != nil {
		return 0, 0, errors.Join(ErrLedgerFailed, err)
	}
	return current, limit, nil
}
