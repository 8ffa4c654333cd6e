package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trendit-api/trendit/pkg/plans"
)

// StatusChangeHook is invoked after the reconciler persists a status
// transition, with the updated subscription and the event kind that caused
// it. Used for side channels like payment-failure notification emails.
type StatusChangeHook func(ctx context.Context, sub *Subscription, kind EventKind)

// Reconciler applies provider webhook events to subscription records.
//
// Processing is idempotent (keyed by the provider event ID) and serialized
// per subscription; concurrent distinct events for the same subscription are
// ordered by their provider-supplied occurred-at timestamp, so an out-of-date
// delivery can never overwrite a newer state.
type Reconciler struct {
	subs    Store
	events  EventStore
	catalog *plans.Catalog
	log     *slog.Logger
	onState StatusChangeHook
	now     func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// ReconcilerOption configures optional reconciler behavior.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger sets the logger. Defaults to slog.Default.
func WithReconcilerLogger(log *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// WithStatusChangeHook registers a callback for applied status transitions.
func WithStatusChangeHook(hook StatusChangeHook) ReconcilerOption {
	return func(r *Reconciler) { r.onState = hook }
}

// WithReconcilerClock overrides the time source, for tests.
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReconciler creates a Reconciler. Panics when a required dependency is
// nil so misconfiguration fails at startup, not on the first webhook.
func NewReconciler(subs Store, events EventStore, catalog *plans.Catalog, opts ...ReconcilerOption) *Reconciler {
	if subs == nil {
		panic("billing: subscription Store is required")
	}
	if events == nil {
		panic("billing: EventStore is required")
	}
	if catalog == nil {
		panic("billing: plans.Catalog is required")
	}

	r := &Reconciler{
		subs:    subs,
		events:  events,
		catalog: catalog,
		log:     slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply processes one verified provider event. It returns a non-nil error
// only for infrastructure failures the provider should retry (storage
// unavailability). Duplicates, unknown event kinds, and events that cannot be
// linked to a subscription all resolve to nil after being recorded, because a
// provider retry cannot fix them.
func (r *Reconciler) Apply(ctx context.Context, ev *Event) error {
	if ev.ProviderEventID == "" {
		return ErrMissingEventID
	}

	seen, err := r.events.Exists(ctx, ev.ProviderEventID)
	if err != nil {
		return fmt.Errorf("check event %s: %w", ev.ProviderEventID, err)
	}
	if seen {
		r.log.InfoContext(ctx, "duplicate billing event, skipping",
			"event_id", ev.ProviderEventID, "kind", string(ev.Kind))
		return nil
	}

	if ev.Kind == EventUnknown {
		r.log.InfoContext(ctx, "unrecognized billing event kind, recording as ignored",
			"event_id", ev.ProviderEventID, "provider_event", ev.ProviderEvent)
		return r.record(ctx, ev, nil, OutcomeIgnored)
	}

	userID, resolved, err := r.resolveUser(ctx, ev)
	if err != nil {
		return fmt.Errorf("resolve customer for event %s: %w", ev.ProviderEventID, err)
	}
	if !resolved {
		r.log.WarnContext(ctx, "billing event for unresolvable customer",
			"event_id", ev.ProviderEventID, "customer_id", ev.CustomerID,
			"provider_customer_id", ev.ProviderCustomerID)
		return r.record(ctx, ev, nil, OutcomeError)
	}

	unlock := r.lock(userID)
	defer unlock()

	lastApplied, err := r.events.LastAppliedAt(ctx, userID)
	if err != nil {
		return fmt.Errorf("read last applied event for %s: %w", userID, err)
	}
	if !lastApplied.IsZero() && ev.OccurredAt.Before(lastApplied) {
		r.log.InfoContext(ctx, "out-of-order billing event, recording as ignored",
			"event_id", ev.ProviderEventID, "occurred_at", ev.OccurredAt, "last_applied", lastApplied)
		return r.record(ctx, ev, &userID, OutcomeIgnored)
	}

	sub, err := r.subscriptionFor(ctx, userID, ev)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			r.log.WarnContext(ctx, "billing event for unknown subscription",
				"event_id", ev.ProviderEventID, "user_id", userID, "kind", string(ev.Kind))
			return r.record(ctx, ev, nil, OutcomeError)
		}
		return fmt.Errorf("load subscription %s: %w", userID, err)
	}

	statusBefore := sub.Status

	switch ev.Kind {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		if err := r.applyTier(ctx, sub, ev); err != nil {
			r.log.WarnContext(ctx, "billing event carries unknown price, not applied",
				"event_id", ev.ProviderEventID, "price_id", ev.PriceID)
			return r.record(ctx, ev, &userID, OutcomeError)
		}

	case EventSubscriptionCancelled:
		// Immediate downgrade: tier and snapshot reset to the free catalog
		// values, provider period dropped so metering falls back to calendar
		// months. There is no end-of-period grace window.
		now := r.now()
		free := r.catalog.Free()
		sub.Status = StatusCancelled
		sub.TierID = plans.TierFree
		sub.Limits = free.CloneLimits()
		sub.PeriodStart, sub.PeriodEnd, sub.NextRenewalAt = nil, nil, nil
		sub.Trial, sub.TrialEndsAt = false, nil
		sub.CancelledAt = &now

	case EventPaymentFailed:
		sub.Status = StatusSuspended

	case EventUnknown:
		// handled above; listed to keep the switch exhaustive
	}

	sub.UpdatedAt = r.now()
	if err := r.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription %s: %w", userID, err)
	}

	if err := r.record(ctx, ev, &userID, OutcomeApplied); err != nil {
		return err
	}

	if r.onState != nil && sub.Status != statusBefore {
		r.onState(ctx, sub, ev.Kind)
	}

	r.log.InfoContext(ctx, "billing event applied",
		"event_id", ev.ProviderEventID, "kind", string(ev.Kind),
		"user_id", userID, "status", string(sub.Status), "tier", string(sub.TierID))
	return nil
}

// resolveUser links an event to a user. The checkout custom data carrying our
// user UUID is authoritative; when it is absent or mangled (provider-initiated
// events do not echo custom data), the provider's own customer ID captured
// from an earlier webhook resolves the subscription instead. Returns
// resolved=false when neither path links the event; the error is reserved for
// storage failures the provider should retry.
func (r *Reconciler) resolveUser(ctx context.Context, ev *Event) (uuid.UUID, bool, error) {
	if id, err := uuid.Parse(ev.CustomerID); err == nil {
		return id, true, nil
	}
	if ev.ProviderCustomerID == "" {
		return uuid.Nil, false, nil
	}

	sub, err := r.subs.GetByProviderCustomerID(ctx, ev.ProviderCustomerID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return sub.UserID, true, nil
}

// subscriptionFor loads the subscription an event targets. Creation events
// may legitimately arrive before any local record exists (first checkout), in
// which case a fresh free-tier record is used as the base.
func (r *Reconciler) subscriptionFor(ctx context.Context, userID uuid.UUID, ev *Event) (*Subscription, error) {
	sub, err := r.subs.Get(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) && ev.Kind == EventSubscriptionCreated {
		return DefaultFree(userID, r.catalog), nil
	}
	return sub, err
}

// applyTier moves the subscription onto the tier named by the event's price
// ID, snapshotting that tier's limits. Provider-owned amounts (proration,
// invoice totals) are recorded in the raw payload only, never recomputed.
func (r *Reconciler) applyTier(ctx context.Context, sub *Subscription, ev *Event) error {
	tier, ok := r.catalog.ByPriceID(ev.PriceID)
	if !ok {
		return ErrUnknownPriceID
	}

	sub.TierID = tier.ID
	sub.Limits = tier.CloneLimits()
	sub.ProviderSubscriptionID = ev.SubscriptionID
	if ev.ProviderCustomerID != "" {
		sub.ProviderCustomerID = ev.ProviderCustomerID
	}
	sub.PeriodStart = ev.PeriodStart
	sub.PeriodEnd = ev.PeriodEnd
	sub.NextRenewalAt = ev.NextBilledAt

	switch ev.Status {
	case "trialing":
		sub.Status = StatusTrialing
		sub.Trial = true
		if sub.TrialEndsAt == nil && tier.TrialDays > 0 {
			end := r.now().AddDate(0, 0, tier.TrialDays)
			sub.TrialEndsAt = &end
		}
	default:
		sub.Status = StatusActive
		sub.Trial = false
		sub.TrialEndsAt = nil
	}
	return nil
}

func (r *Reconciler) record(ctx context.Context, ev *Event, userID *uuid.UUID, outcome Outcome) error {
	rec := &EventRecord{
		ID:              uuid.New(),
		ProviderEventID: ev.ProviderEventID,
		Kind:            ev.Kind,
		UserID:          userID,
		Outcome:         outcome,
		Raw:             ev.Raw,
		OccurredAt:      ev.OccurredAt,
		ProcessedAt:     r.now(),
	}
	if err := r.events.Record(ctx, rec); err != nil {
		// A concurrent delivery of the same event won the race; treat it
		// like the duplicate short-circuit above.
		if errors.Is(err, ErrEventAlreadyApplied) {
			r.log.InfoContext(ctx, "billing event recorded concurrently, skipping",
				"event_id", ev.ProviderEventID)
			return nil
		}
		return fmt.Errorf("record event %s: %w", ev.ProviderEventID, err)
	}
	return nil
}

func (r *Reconciler) lock(userID uuid.UUID) func() {
	r.mu.Lock()
	m, ok := r.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[userID] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
