package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaddleEvent(t *testing.T) {
	t.Parallel()

	t.Run("subscription created carries both customer identities", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		payload := []byte(`{
			"event_id": "evt_01abc",
			"event_type": "subscription.created",
			"occurred_at": "2026-08-10T00:00:01Z",
			"data": {
				"id": "sub_01abc",
				"status": "active",
				"customer_id": "ctm_01abc",
				"custom_data": {"customer_id": "` + userID.String() + `"},
				"current_billing_period": {
					"starts_at": "2026-08-10T00:00:00Z",
					"ends_at": "2026-09-10T00:00:00Z"
				},
				"next_billed_at": "2026-09-10T00:00:00Z",
				"items": [{"price": {"id": "pri_pro_monthly"}}]
			}
		}`)

		ev, err := parsePaddleEvent(payload)
		require.NoError(t, err)

		assert.Equal(t, "evt_01abc", ev.ProviderEventID)
		assert.Equal(t, EventSubscriptionCreated, ev.Kind)
		assert.Equal(t, userID.String(), ev.CustomerID)
		assert.Equal(t, "ctm_01abc", ev.ProviderCustomerID)
		assert.Equal(t, "sub_01abc", ev.SubscriptionID)
		assert.Equal(t, "pri_pro_monthly", ev.PriceID)
		assert.Equal(t, "active", ev.Status)
		require.NotNil(t, ev.PeriodStart)
		assert.Equal(t, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), *ev.PeriodStart)
		require.NotNil(t, ev.NextBilledAt)
	})

	t.Run("payment failure without custom data still names the provider customer", func(t *testing.T) {
		t.Parallel()

		payload := []byte(`{
			"event_id": "evt_02def",
			"event_type": "transaction.payment_failed",
			"occurred_at": "2026-08-15T00:00:00Z",
			"data": {
				"id": "txn_02def",
				"subscription_id": "sub_01abc",
				"customer_id": "ctm_01abc"
			}
		}`)

		ev, err := parsePaddleEvent(payload)
		require.NoError(t, err)

		assert.Equal(t, EventPaymentFailed, ev.Kind)
		assert.Empty(t, ev.CustomerID)
		assert.Equal(t, "ctm_01abc", ev.ProviderCustomerID)
		assert.Equal(t, "sub_01abc", ev.SubscriptionID)
	})

	t.Run("unrecognized event type maps to unknown", func(t *testing.T) {
		t.Parallel()

		ev, err := parsePaddleEvent([]byte(`{
			"event_id": "evt_03ghi",
			"event_type": "address.updated",
			"occurred_at": "2026-08-15T00:00:00Z",
			"data": {"id": "add_03ghi"}
		}`))
		require.NoError(t, err)
		assert.Equal(t, EventUnknown, ev.Kind)
		assert.Equal(t, "address.updated", ev.ProviderEvent)
	})
}

func TestGetCustomerPortalLinkGuards(t *testing.T) {
	t.Parallel()

	provider, err := NewPaddleProvider(PaddleConfig{
		APIKey:        "test_api_key",
		WebhookSecret: "test_webhook_secret",
		Environment:   "sandbox",
	})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("no provider subscription", func(t *testing.T) {
		t.Parallel()
		_, err := provider.GetCustomerPortalLink(ctx, &Subscription{UserID: uuid.New()})
		require.ErrorIs(t, err, ErrNoProviderSub)
	})

	t.Run("no provider customer", func(t *testing.T) {
		t.Parallel()
		// The portal session API takes Paddle's ctm_ ID only; a user UUID is
		// never a valid substitute, so the call is refused locally.
		_, err := provider.GetCustomerPortalLink(ctx, &Subscription{
			UserID:                 uuid.New(),
			ProviderSubscriptionID: "sub_01abc",
		})
		require.ErrorIs(t, err, ErrNoProviderCustomer)
	})
}
