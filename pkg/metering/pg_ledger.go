package metering

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trendit-api/trendit/pkg/plans"
)

// PGLedger is the Postgres-backed usage ledger. The usage_records table
// carries an index on (subscription_id, usage_type, recorded_at) so SumSince
// stays a single indexed aggregate.
type PGLedger struct {
	pool *pgxpool.Pool
}

// NewPGLedger creates a Postgres usage ledger. Panics on a nil pool.
func NewPGLedger(pool *pgxpool.Pool) *PGLedger {
	if pool == nil {
		panic("metering: pgx pool is required")
	}
	return &PGLedger{pool: pool}
}

func (l *PGLedger) Append(ctx context.Context, rec Record) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO usage_records
			(id, subscription_id, usage_type, cost, recorded_at, endpoint, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.SubscriptionID, rec.UsageType, rec.Cost, rec.RecordedAt,
		rec.Endpoint, rec.RequestID)
	if err != nil {
		return fmt.Errorf("append usage record: %w", err)
	}
	return nil
}

func (l *PGLedger) SumSince(ctx context.Context, subscriptionID uuid.UUID, usageType plans.UsageType, since time.Time) (int64, error) {
	var total int64
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(cost), 0) FROM usage_records
		WHERE subscription_id = $1 AND usage_type = $2 AND recorded_at >= $3`,
		subscriptionID, usageType, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum usage records: %w", err)
	}
	return total, nil
}

// advisoryLocker serializes check-then-append across server instances using
// Postgres advisory locks, so strict quota enforcement holds when multiple
// replicas share one database.
type advisoryLocker struct {
	pool *pgxpool.Pool
}

// NewAdvisoryLocker returns a KeyedLocker backed by pg_advisory_lock.
// The lock is held on a dedicated pooled connection until unlock runs.
func NewAdvisoryLocker(pool *pgxpool.Pool) KeyedLocker {
	if pool == nil {
		panic("metering: pgx pool is required")
	}
	return &advisoryLocker{pool: pool}
}

func (l *advisoryLocker) Lock(ctx context.Context, key uuid.UUID) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for advisory lock: %w", err)
	}

	id := advisoryKey(key)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, id); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	return func() {
		// Unlock must run even when the request context is already done.
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, id)
		conn.Release()
	}, nil
}

// advisoryKey folds a UUID into the int64 keyspace pg advisory locks use.
func advisoryKey(key uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(key[:])
	return int64(h.Sum64())
}
