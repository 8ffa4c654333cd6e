package plans

import (
	"context"
	"maps"
	"time"
)

type inMemSource struct {
	tiers map[TierID]Tier
}

// NewInMemSource returns a Source backed by the given tiers. The tiers are
// deep-copied so later mutation of the arguments cannot leak into the catalog.
// Panics when no tiers are provided.
func NewInMemSource(tiers ...Tier) Source {
	if len(tiers) == 0 {
		panic("plans: at least one tier is required")
	}

	copied := make(map[TierID]Tier, len(tiers))
	for _, tier := range tiers {
		tier.Limits = maps.Clone(tier.Limits)
		copied[tier.ID] = tier
	}

	return &inMemSource{tiers: copied}
}

func (s *inMemSource) Load(ctx context.Context) (map[TierID]Tier, error) {
	copied := make(map[TierID]Tier, len(s.tiers))
	for id, tier := range s.tiers {
		tier.Limits = maps.Clone(tier.Limits)
		copied[id] = tier
	}
	return copied, nil
}

// DefaultTiers returns the built-in catalog used when no tiers file is
// configured. Quotas mirror the published pricing page.
func DefaultTiers() []Tier {
	return []Tier{
		{
			ID:          TierFree,
			Name:        "Free",
			Description: "Evaluation tier with monthly quotas",
			Limits: map[UsageType]int64{
				UsageAPICall:           100,
				UsageExport:            5,
				UsageSentimentAnalysis: 25,
			},
			Price:     Money{Amount: 0, Currency: "USD"},
			Interval:  IntervalNone,
			Retention: 30 * 24 * time.Hour,
		},
		{
			ID:          TierPro,
			Name:        "Pro",
			Description: "For production workloads",
			PriceID:     "pri_pro_monthly",
			Limits: map[UsageType]int64{
				UsageAPICall:           10000,
				UsageExport:            500,
				UsageSentimentAnalysis: 2500,
			},
			Price:     Money{Amount: 2900, Currency: "USD"},
			Interval:  IntervalMonthly,
			TrialDays: 14,
			Retention: 90 * 24 * time.Hour,
		},
		{
			ID:          TierEnterprise,
			Name:        "Enterprise",
			Description: "Unmetered API access",
			PriceID:     "pri_enterprise_monthly",
			Limits: map[UsageType]int64{
				UsageAPICall:           Unlimited,
				UsageExport:            Unlimited,
				UsageSentimentAnalysis: 50000,
			},
			Price:     Money{Amount: 19900, Currency: "USD"},
			Interval:  IntervalMonthly,
			Retention: 365 * 24 * time.Hour,
		},
	}
}
