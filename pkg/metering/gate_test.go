package metering_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendit-api/trendit/pkg/billing"
	"github.com/trendit-api/trendit/pkg/metering"
	"github.com/trendit-api/trendit/pkg/plans"
)

func freeSub(limit int64) *billing.Subscription {
	return &billing.Subscription{
		UserID: uuid.New(),
		TierID: plans.TierFree,
		Status: billing.StatusInactive,
		Limits: map[plans.UsageType]int64{
			plans.UsageAPICall:           limit,
			plans.UsageExport:            5,
			plans.UsageSentimentAnalysis: 25,
		},
	}
}

func newGate(t *testing.T) (*metering.Gate, *metering.MemoryLedger) {
	t.Helper()
	ledger := metering.NewMemoryLedger()
	return metering.NewGate(ledger, metering.NewMutexLocker()), ledger
}

func TestGateCheckAndRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("free tier quota scenario", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		sub := freeSub(100)

		for i := 0; i < 100; i++ {
			d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
			require.NoError(t, err)
			require.True(t, d.Allowed, "call %d should be allowed", i+1)
		}

		d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, metering.DenyQuotaExceeded, d.Reason)
		assert.Equal(t, int64(100), d.Current)
		assert.Equal(t, int64(100), d.Limit)
	})

	t.Run("exact limit allowed, one past denied", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		sub := freeSub(10)

		d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 10, metering.RequestContext{})
		require.NoError(t, err)
		assert.True(t, d.Allowed, "cost reaching the limit exactly is allowed")
		assert.Equal(t, int64(0), d.Remaining())

		d, err = gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	})

	t.Run("batched cost is all or nothing", func(t *testing.T) {
		t.Parallel()

		gate, ledger := newGate(t)
		sub := freeSub(100)

		d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 98, metering.RequestContext{})
		require.NoError(t, err)
		require.True(t, d.Allowed)

		// 98 used, 2 left: a batch of 5 is denied outright, no partial charge.
		d, err = gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 5, metering.RequestContext{})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, int64(98), d.Current)

		total, err := ledger.SumSince(ctx, sub.UserID, plans.UsageAPICall, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, int64(98), total, "denied batch must not be charged")
	})

	t.Run("denial is sticky within a period", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		sub := freeSub(3)

		d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 3, metering.RequestContext{})
		require.NoError(t, err)
		require.True(t, d.Allowed)

		for i := 0; i < 3; i++ {
			d, err = gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
			require.NoError(t, err)
			assert.False(t, d.Allowed, "usage only grows, so denial repeats")
		}
	})

	t.Run("unlimited sentinel bypasses counting", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		sub := freeSub(plans.Unlimited)

		for i := 0; i < 50; i++ {
			d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1000, metering.RequestContext{})
			require.NoError(t, err)
			require.True(t, d.Allowed)
			assert.Equal(t, plans.Unlimited, d.Remaining())
		}
	})

	t.Run("suspended subscription denied regardless of usage", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		sub := &billing.Subscription{
			UserID: uuid.New(),
			TierID: plans.TierPro,
			Status: billing.StatusSuspended,
			Limits: map[plans.UsageType]int64{
				plans.UsageAPICall:           10000,
				plans.UsageExport:            500,
				plans.UsageSentimentAnalysis: 2500,
			},
		}

		d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, metering.DenySubscriptionRequired, d.Reason)
	})

	t.Run("usage types metered independently", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		sub := freeSub(1)

		d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
		require.NoError(t, err)
		require.True(t, d.Allowed)

		d, err = gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
		require.NoError(t, err)
		require.False(t, d.Allowed)

		d, err = gate.CheckAndRecord(ctx, sub, plans.UsageExport, 1, metering.RequestContext{})
		require.NoError(t, err)
		assert.True(t, d.Allowed, "export quota is independent of api_call quota")
	})

	t.Run("unknown usage type fails fast", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		sub := freeSub(100)

		_, err := gate.CheckAndRecord(ctx, sub, plans.UsageType("bitcoin_mining"), 1, metering.RequestContext{})
		require.ErrorIs(t, err, metering.ErrUnknownUsageType)
	})

	t.Run("non-positive cost rejected", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		sub := freeSub(100)

		_, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 0, metering.RequestContext{})
		require.ErrorIs(t, err, metering.ErrInvalidCost)

		_, err = gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, -3, metering.RequestContext{})
		require.ErrorIs(t, err, metering.ErrInvalidCost)
	})

	t.Run("missing snapshot entry fails fast", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		sub := &billing.Subscription{
			UserID: uuid.New(),
			TierID: plans.TierFree,
			Limits: map[plans.UsageType]int64{plans.UsageAPICall: 100},
		}

		_, err := gate.CheckAndRecord(ctx, sub, plans.UsageExport, 1, metering.RequestContext{})
		require.ErrorIs(t, err, metering.ErrLimitNotConfigured)
	})

	t.Run("period rollover resets counting", func(t *testing.T) {
		t.Parallel()

		ledger := metering.NewMemoryLedger()
		now := time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC)
		gate := metering.NewGate(ledger, metering.NewMutexLocker(),
			metering.WithGateClock(func() time.Time { return now }))
		sub := freeSub(5)

		d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 5, metering.RequestContext{})
		require.NoError(t, err)
		require.True(t, d.Allowed)

		d, err = gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
		require.NoError(t, err)
		require.False(t, d.Allowed)

		// Next calendar month: August usage no longer counts.
		now = time.Date(2026, 9, 1, 0, 1, 0, 0, time.UTC)

		d, err = gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(0), d.Current)
	})

	t.Run("tier upgrade takes effect immediately", func(t *testing.T) {
		t.Parallel()

		gate, _ := newGate(t)
		sub := freeSub(100)

		d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 100, metering.RequestContext{})
		require.NoError(t, err)
		require.True(t, d.Allowed)

		d, err = gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
		require.NoError(t, err)
		require.False(t, d.Allowed)

		// Simulate the reconciler applying a PRO activation: new snapshot,
		// prior usage of 100 still on the ledger.
		sub.Status = billing.StatusActive
		sub.TierID = plans.TierPro
		sub.Limits[plans.UsageAPICall] = 10000

		d, err = gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(100), d.Current)
	})

	t.Run("concurrent requests never overshoot", func(t *testing.T) {
		t.Parallel()

		gate, ledger := newGate(t)
		sub := freeSub(50)

		var wg sync.WaitGroup
		allowed := make(chan bool, 200)
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1, metering.RequestContext{})
				if err == nil && d.Allowed {
					allowed <- true
				}
			}()
		}
		wg.Wait()
		close(allowed)

		var count int
		for range allowed {
			count++
		}
		assert.Equal(t, 50, count, "exactly the quota is admitted under contention")

		total, err := ledger.SumSince(ctx, sub.UserID, plans.UsageAPICall, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, int64(50), total)
	})
}

func TestGateUsage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	gate, _ := newGate(t)
	sub := freeSub(100)

	current, limit, err := gate.Usage(ctx, sub, plans.UsageAPICall)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)
	assert.Equal(t, int64(100), limit)

	_, err = gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 7, metering.RequestContext{})
	require.NoError(t, err)

	current, limit, err = gate.Usage(ctx, sub, plans.UsageAPICall)
	require.NoError(t, err)
	assert.Equal(t, int64(7), current)
	assert.Equal(t, int64(100), limit)

	_, _, err = gate.Usage(ctx, sub, plans.UsageType("nope"))
	require.ErrorIs(t, err, metering.ErrUnknownUsageType)
}
