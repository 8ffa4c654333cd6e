package plans_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendit-api/trendit/pkg/plans"
)

func TestNewCatalog(t *testing.T) {
	t.Parallel()

	t.Run("loads default tiers", func(t *testing.T) {
		t.Parallel()

		catalog, err := plans.NewCatalog(context.Background(), plans.NewInMemSource(plans.DefaultTiers()...))
		require.NoError(t, err)

		free, err := catalog.Get(plans.TierFree)
		require.NoError(t, err)
		limit, ok := free.Limit(plans.UsageAPICall)
		require.True(t, ok)
		assert.Equal(t, int64(100), limit)

		ent, err := catalog.Get(plans.TierEnterprise)
		require.NoError(t, err)
		limit, ok = ent.Limit(plans.UsageExport)
		require.True(t, ok)
		assert.Equal(t, plans.Unlimited, limit)
	})

	t.Run("rejects missing free tier", func(t *testing.T) {
		t.Parallel()

		src := plans.NewInMemSource(plans.Tier{
			ID:      plans.TierPro,
			Name:    "Pro",
			PriceID: "pri_x",
			Limits: map[plans.UsageType]int64{
				plans.UsageAPICall:           1,
				plans.UsageExport:            1,
				plans.UsageSentimentAnalysis: 1,
			},
			Interval: plans.IntervalMonthly,
		})

		_, err := plans.NewCatalog(context.Background(), src)
		require.ErrorIs(t, err, plans.ErrFreeTierRequired)
	})

	t.Run("rejects tier missing a usage type", func(t *testing.T) {
		t.Parallel()

		src := plans.NewInMemSource(plans.Tier{
			ID:   plans.TierFree,
			Name: "Free",
			Limits: map[plans.UsageType]int64{
				plans.UsageAPICall: 100,
			},
			Interval: plans.IntervalNone,
		})

		_, err := plans.NewCatalog(context.Background(), src)
		require.ErrorIs(t, err, plans.ErrInvalidTierConfiguration)
	})

	t.Run("rejects negative non-sentinel limit", func(t *testing.T) {
		t.Parallel()

		src := plans.NewInMemSource(plans.Tier{
			ID:   plans.TierFree,
			Name: "Free",
			Limits: map[plans.UsageType]int64{
				plans.UsageAPICall:           -7,
				plans.UsageExport:            1,
				plans.UsageSentimentAnalysis: 1,
			},
			Interval: plans.IntervalNone,
		})

		_, err := plans.NewCatalog(context.Background(), src)
		require.ErrorIs(t, err, plans.ErrInvalidTierConfiguration)
	})

	t.Run("rejects paid tier without price ID", func(t *testing.T) {
		t.Parallel()

		tiers := plans.DefaultTiers()
		tiers[1].PriceID = ""

		_, err := plans.NewCatalog(context.Background(), plans.NewInMemSource(tiers...))
		require.ErrorIs(t, err, plans.ErrInvalidTierConfiguration)
	})
}

func TestCatalogLookups(t *testing.T) {
	t.Parallel()

	catalog, err := plans.NewCatalog(context.Background(), plans.NewInMemSource(plans.DefaultTiers()...))
	require.NoError(t, err)

	t.Run("by price ID", func(t *testing.T) {
		t.Parallel()

		tier, ok := catalog.ByPriceID("pri_pro_monthly")
		require.True(t, ok)
		assert.Equal(t, plans.TierPro, tier.ID)

		_, ok = catalog.ByPriceID("pri_unknown")
		assert.False(t, ok)
	})

	t.Run("price", func(t *testing.T) {
		t.Parallel()

		price, err := catalog.Price(plans.TierPro)
		require.NoError(t, err)
		assert.Equal(t, plans.Money{Amount: 2900, Currency: "USD"}, price)

		_, err = catalog.Price(plans.TierID("nonexistent"))
		require.ErrorIs(t, err, plans.ErrTierNotFound)
	})

	t.Run("limits returns a copy", func(t *testing.T) {
		t.Parallel()

		limits, err := catalog.Limits(plans.TierFree)
		require.NoError(t, err)
		limits[plans.UsageAPICall] = 999999

		fresh, err := catalog.Limits(plans.TierFree)
		require.NoError(t, err)
		assert.Equal(t, int64(100), fresh[plans.UsageAPICall])
	})
}

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	content := `
tiers:
  - id: free
    name: Free
    interval: none
    retention_days: 30
    limits:
      api_call: 50
      export: 2
      sentiment_analysis: 10
  - id: pro
    name: Pro
    price_id: pri_test_pro
    interval: monthly
    trial_days: 7
    retention_days: 90
    price: {amount: 1900, currency: USD}
    limits:
      api_call: 5000
      export: 100
      sentiment_analysis: -1
`
	path := t.TempDir() + "/tiers.yaml"
	require.NoError(t, writeFile(path, content))

	catalog, err := plans.NewCatalog(context.Background(), plans.NewYAMLSource(path))
	require.NoError(t, err)

	pro, err := catalog.Get(plans.TierPro)
	require.NoError(t, err)
	assert.Equal(t, "pri_test_pro", pro.PriceID)
	assert.Equal(t, 7, pro.TrialDays)
	assert.Equal(t, int64(1900), pro.Price.Amount)

	limit, ok := pro.Limit(plans.UsageSentimentAnalysis)
	require.True(t, ok)
	assert.Equal(t, plans.Unlimited, limit)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
