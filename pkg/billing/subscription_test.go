package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendit-api/trendit/pkg/billing"
	"github.com/trendit-api/trendit/pkg/plans"
)

func TestSubscriptionUsability(t *testing.T) {
	t.Parallel()

	t.Run("free tier usable regardless of status", func(t *testing.T) {
		t.Parallel()

		sub := &billing.Subscription{TierID: plans.TierFree, Status: billing.StatusInactive}
		assert.True(t, sub.IsUsable())

		sub.Status = billing.StatusCancelled
		assert.True(t, sub.IsUsable())
	})

	t.Run("paid tier requires active or trialing", func(t *testing.T) {
		t.Parallel()

		sub := &billing.Subscription{TierID: plans.TierPro, Status: billing.StatusActive}
		assert.True(t, sub.IsUsable())

		sub.Status = billing.StatusSuspended
		assert.False(t, sub.IsUsable())

		sub.Status = billing.StatusInactive
		assert.False(t, sub.IsUsable())
	})

	t.Run("expired trial is not usable", func(t *testing.T) {
		t.Parallel()

		past := time.Now().UTC().Add(-time.Hour)
		sub := &billing.Subscription{
			TierID:      plans.TierPro,
			Status:      billing.StatusTrialing,
			Trial:       true,
			TrialEndsAt: &past,
		}
		assert.False(t, sub.IsTrialing())
		assert.False(t, sub.IsUsable())

		future := time.Now().UTC().Add(time.Hour)
		sub.TrialEndsAt = &future
		assert.True(t, sub.IsUsable())
	})
}

func TestDefaultFree(t *testing.T) {
	t.Parallel()

	catalog, err := plans.NewCatalog(context.Background(), plans.NewInMemSource(plans.DefaultTiers()...))
	require.NoError(t, err)

	userID := uuid.New()
	sub := billing.DefaultFree(userID, catalog)

	assert.Equal(t, userID, sub.UserID)
	assert.Equal(t, plans.TierFree, sub.TierID)
	assert.Equal(t, billing.StatusInactive, sub.Status)
	assert.True(t, sub.IsUsable())
	assert.Equal(t, catalog.Free().Limits, sub.Limits)

	// Snapshot is a copy, not the catalog's map.
	sub.Limits[plans.UsageAPICall] = 1
	assert.Equal(t, int64(100), catalog.Free().Limits[plans.UsageAPICall])
}
