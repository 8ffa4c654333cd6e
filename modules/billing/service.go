// Package billingapi exposes the billing surface of the API: checkout and
// portal sessions, the subscription view, usage summaries, and the Paddle
// webhook endpoint. Subscription state itself lives in pkg/billing; this
// module only orchestrates it per request.
package billingapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trendit-api/trendit/pkg/billing"
	"github.com/trendit-api/trendit/pkg/metering"
	"github.com/trendit-api/trendit/pkg/plans"
)

var ErrFreeTierCheckout = errors.New("free tier does not require checkout")

// Config carries the redirect targets handed to the payment provider.
type Config struct {
	CheckoutSuccessURL string `env:"CHECKOUT_SUCCESS_URL" envDefault:"https://app.trendit.dev/billing/success"`
	CheckoutCancelURL  string `env:"CHECKOUT_CANCEL_URL" envDefault:"https://app.trendit.dev/billing"`
}

// Service orchestrates billing operations for one authenticated user.
type Service struct {
	cfg        Config
	subs       billing.Store
	catalog    *plans.Catalog
	provider   billing.Provider
	reconciler *billing.Reconciler
	gate       *metering.Gate
	log        *slog.Logger
}

// NewService wires the billing module. Panics on nil dependencies.
func NewService(
	cfg Config,
	subs billing.Store,
	catalog *plans.Catalog,
	provider billing.Provider,
	reconciler *billing.Reconciler,
	gate *metering.Gate,
	log *slog.Logger,
) *Service {
	if subs == nil || catalog == nil || provider == nil || reconciler == nil || gate == nil {
		panic("billingapi: all dependencies are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:        cfg,
		subs:       subs,
		catalog:    catalog,
		provider:   provider,
		reconciler: reconciler,
		gate:       gate,
		log:        log,
	}
}

// SubscriptionFor returns the user's subscription, falling back to the
// default free-tier record for users who never checked out. The fallback is
// not persisted; it materializes on first webhook or free activation.
func (s *Service) SubscriptionFor(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	sub, err := s.subs.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return billing.DefaultFree(userID, s.catalog), nil
		}
		return nil, err
	}
	return sub, nil
}

// Checkout creates a hosted checkout session for a paid tier. Selecting the
// free tier activates it directly and returns ErrFreeTierCheckout so the
// handler can answer without a redirect.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, email string, tierID plans.TierID) (*billing.CheckoutLink, error) {
	tier, err := s.catalog.Get(tierID)
	if err != nil {
		return nil, err
	}

	if tier.IsFree() {
		sub := billing.DefaultFree(userID, s.catalog)
		if err := s.subs.Save(ctx, sub); err != nil {
			return nil, err
		}
		s.log.InfoContext(ctx, "free tier activated without checkout", "user_id", userID)
		return nil, ErrFreeTierCheckout
	}

	link, err := s.provider.CreateCheckoutLink(ctx, billing.CheckoutRequest{
		PriceID:    tier.PriceID,
		CustomerID: userID.String(),
		Email:      email,
		SuccessURL: s.cfg.CheckoutSuccessURL,
		CancelURL:  s.cfg.CheckoutCancelURL,
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout session created",
		"user_id", userID, "tier", tierID, "session_id", link.SessionID)
	return link, nil
}

// Portal returns a customer portal session for managing the subscription.
func (s *Service) Portal(ctx context.Context, userID uuid.UUID) (*billing.PortalLink, error) {
	sub, err := s.subs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.provider.GetCustomerPortalLink(ctx, sub)
}

// UsageLine is one usage type's consumption within the current period.
type UsageLine struct {
	UsageType plans.UsageType `json:"usage_type"`
	Current   int64           `json:"current"`
	Limit     int64           `json:"limit"`
	Unlimited bool            `json:"unlimited"`
}

// UsageSummary is the dashboard view of the current billing period.
type UsageSummary struct {
	TierID      plans.TierID   `json:"tier_id"`
	Status      billing.Status `json:"status"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Lines       []UsageLine    `json:"lines"`
}

// Usage reports consumption for every known usage type in the user's
// current billing period.
func (s *Service) Usage(ctx context.Context, userID uuid.UUID, now time.Time) (*UsageSummary, error) {
	sub, err := s.SubscriptionFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	period := billing.CurrentPeriod(sub, now)
	summary := &UsageSummary{
		TierID:      sub.TierID,
		Status:      sub.Status,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
	}

	for _, u := range plans.KnownUsageTypes() {
		current, limit, err := s.gate.Usage(ctx, sub, u)
		if err != nil {
			return nil, err
		}
		summary.Lines = append(summary.Lines, UsageLine{
			UsageType: u,
			Current:   current,
			Limit:     limit,
			Unlimited: limit == plans.Unlimited,
		})
	}
	return summary, nil
}

// ProcessWebhook verifies and applies one provider webhook delivery.
func (s *Service) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}
	return s.reconciler.Apply(ctx, event)
}
