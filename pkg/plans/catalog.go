package plans

import (
	"context"
	"errors"
	"fmt"
)

// Source defines how tiers are loaded into the catalog.
type Source interface {
	Load(ctx context.Context) (map[TierID]Tier, error)
}

// Catalog is the immutable tier registry. It is built once at startup and
// shared by reference; nothing mutates it afterwards.
type Catalog struct {
	tiers   map[TierID]Tier
	byPrice map[string]TierID
}

// NewCatalog loads tiers from src and validates them. It returns an error
// when a tier is misconfigured: every tier must cover every known usage type
// with a non-negative or Unlimited quota, and the free tier must exist.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		panic("plans: Source is required")
	}

	tiers, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}

	if err := validateTiers(tiers); err != nil {
		return nil, err
	}

	byPrice := make(map[string]TierID)
	for id, tier := range tiers {
		if tier.PriceID != "" {
			byPrice[tier.PriceID] = id
		}
	}

	return &Catalog{tiers: tiers, byPrice: byPrice}, nil
}

// Get returns the tier with the given ID.
func (c *Catalog) Get(id TierID) (Tier, error) {
	tier, ok := c.tiers[id]
	if !ok {
		return Tier{}, ErrTierNotFound
	}
	return tier, nil
}

// ByPriceID resolves a provider price identifier to its tier.
// Used by webhook reconciliation to map provider payloads onto the catalog.
func (c *Catalog) ByPriceID(priceID string) (Tier, bool) {
	id, ok := c.byPrice[priceID]
	if !ok {
		return Tier{}, false
	}
	return c.tiers[id], true
}

// Limits returns a copy of the limit mapping for the given tier.
func (c *Catalog) Limits(id TierID) (map[UsageType]int64, error) {
	tier, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return tier.CloneLimits(), nil
}

// Price returns the price of the given tier.
func (c *Catalog) Price(id TierID) (Money, error) {
	tier, err := c.Get(id)
	if err != nil {
		return Money{}, err
	}
	return tier.Price, nil
}

// Free returns the free tier. The constructor guarantees it exists.
func (c *Catalog) Free() Tier {
	return c.tiers[TierFree]
}

// Tiers returns all catalog entries keyed by ID. The returned map shares the
// catalog's tiers by value; callers must not mutate the nested limit maps.
func (c *Catalog) Tiers() map[TierID]Tier {
	return c.tiers
}

func validateTiers(tiers map[TierID]Tier) error {
	if _, ok := tiers[TierFree]; !ok {
		return ErrFreeTierRequired
	}

	for id, tier := range tiers {
		if tier.ID != id {
			return errors.Join(ErrInvalidTierConfiguration,
				fmt.Errorf("tier ID mismatch: map key %s != tier.ID %s", id, tier.ID))
		}

		for _, u := range KnownUsageTypes() {
			limit, ok := tier.Limits[u]
			if !ok {
				return errors.Join(ErrInvalidTierConfiguration,
					fmt.Errorf("tier %s does not define a limit for usage type %s", id, u))
			}
			if limit < 0 && limit != Unlimited {
				return errors.Join(ErrInvalidTierConfiguration,
					fmt.Errorf("tier %s has invalid limit %d for usage type %s", id, limit, u))
			}
		}

		if tier.TrialDays < 0 {
			return errors.Join(ErrInvalidTierConfiguration,
				fmt.Errorf("tier %s has negative trial days: %d", id, tier.TrialDays))
		}

		if !tier.IsFree() && tier.PriceID == "" {
			return errors.Join(ErrInvalidTierConfiguration,
				fmt.Errorf("paid tier %s has no provider price ID", id))
		}
	}

	return nil
}
