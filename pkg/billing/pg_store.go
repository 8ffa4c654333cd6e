package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trendit-api/trendit/pkg/pg"
	"github.com/trendit-api/trendit/pkg/plans"
)

// PGStore is the Postgres-backed subscription store.
// Limit snapshots are stored as JSONB so tier changes never require schema
// migrations.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres subscription store. Panics on a nil pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("billing: pgx pool is required")
	}
	return &PGStore{pool: pool}
}

const subscriptionColumns = `user_id, tier_id, status, period_start, period_end,
	next_renewal_at, provider_customer_id, provider_subscription_id,
	trial, trial_ends_at, limits, created_at, updated_at, cancelled_at`

func (s *PGStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)
	return scanSubscription(row)
}

func (s *PGStore) GetByProviderCustomerID(ctx context.Context, customerID string) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_customer_id = $1`, customerID)
	return scanSubscription(row)
}

func (s *PGStore) Save(ctx context.Context, sub *Subscription) error {
	limits, err := json.Marshal(sub.Limits)
	if err != nil {
		return fmt.Errorf("marshal limit snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			tier_id = EXCLUDED.tier_id,
			status = EXCLUDED.status,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			next_renewal_at = EXCLUDED.next_renewal_at,
			provider_customer_id = EXCLUDED.provider_customer_id,
			provider_subscription_id = EXCLUDED.provider_subscription_id,
			trial = EXCLUDED.trial,
			trial_ends_at = EXCLUDED.trial_ends_at,
			limits = EXCLUDED.limits,
			updated_at = EXCLUDED.updated_at,
			cancelled_at = EXCLUDED.cancelled_at`,
		sub.UserID, sub.TierID, sub.Status, sub.PeriodStart, sub.PeriodEnd,
		sub.NextRenewalAt, sub.ProviderCustomerID, sub.ProviderSubscriptionID,
		sub.Trial, sub.TrialEndsAt, limits, sub.CreatedAt, sub.UpdatedAt, sub.CancelledAt)
	if err != nil {
		return fmt.Errorf("save subscription %s: %w", sub.UserID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var sub Subscription
	var limits []byte

	err := row.Scan(&sub.UserID, &sub.TierID, &sub.Status, &sub.PeriodStart,
		&sub.PeriodEnd, &sub.NextRenewalAt, &sub.ProviderCustomerID,
		&sub.ProviderSubscriptionID, &sub.Trial, &sub.TrialEndsAt, &limits,
		&sub.CreatedAt, &sub.UpdatedAt, &sub.CancelledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}

	sub.Limits = make(map[plans.UsageType]int64)
	if len(limits) > 0 {
		if err := json.Unmarshal(limits, &sub.Limits); err != nil {
			return nil, fmt.Errorf("unmarshal limit snapshot: %w", err)
		}
	}
	return &sub, nil
}

// PGEventStore is the Postgres-backed billing event audit store. The unique
// index on provider_event_id enforces at-most-once application even across
// concurrent webhook deliveries on different instances.
type PGEventStore struct {
	pool *pgxpool.Pool
}

// NewPGEventStore creates a Postgres billing event store. Panics on a nil pool.
func NewPGEventStore(pool *pgxpool.Pool) *PGEventStore {
	if pool == nil {
		panic("billing: pgx pool is required")
	}
	return &PGEventStore{pool: pool}
}

func (s *PGEventStore) Exists(ctx context.Context, providerEventID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM billing_events WHERE provider_event_id = $1)`,
		providerEventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check billing event: %w", err)
	}
	return exists, nil
}

func (s *PGEventStore) Record(ctx context.Context, rec *EventRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO billing_events
			(id, provider_event_id, kind, user_id, outcome, raw, occurred_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.ProviderEventID, rec.Kind, rec.UserID, rec.Outcome,
		rec.Raw, rec.OccurredAt, rec.ProcessedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrEventAlreadyApplied
		}
		return fmt.Errorf("record billing event %s: %w", rec.ProviderEventID, err)
	}
	return nil
}

func (s *PGEventStore) LastAppliedAt(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	var last *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT MAX(occurred_at) FROM billing_events
		WHERE user_id = $1 AND outcome = $2`,
		userID, OutcomeApplied).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("read last applied event: %w", err)
	}
	if last == nil {
		return time.Time{}, nil
	}
	return last.UTC(), nil
}
