package billingapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trendit-api/trendit/core"
	"github.com/trendit-api/trendit/modules/account"
	"github.com/trendit-api/trendit/pkg/billing"
	"github.com/trendit-api/trendit/pkg/plans"
)

// maxWebhookBody bounds webhook payload reads. Paddle events are small;
// anything larger is hostile.
const maxWebhookBody = 1 << 20

// Router mounts the authenticated billing endpoints behind the given auth
// middleware. The webhook endpoint is mounted separately because the
// provider cannot authenticate as a user.
func Router(svc *Service, auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Post("/checkout", svc.handleCheckout)
	r.Get("/portal", svc.handlePortal)
	r.Get("/subscription", svc.handleSubscription)
	r.Get("/usage", svc.handleUsage)

	return r
}

type checkoutRequest struct {
	TierID plans.TierID `json:"tier_id"`
}

func (s *Service) handleCheckout(w http.ResponseWriter, r *http.Request) {
	user := account.UserFromContext(r.Context())

	var req checkoutRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	link, err := s.Checkout(r.Context(), user.ID, user.Email, req.TierID)
	if err != nil {
		switch {
		case errors.Is(err, ErrFreeTierCheckout):
			core.JSON(w, http.StatusOK, map[string]any{"activated": true, "tier_id": plans.TierFree})
		case errors.Is(err, plans.ErrTierNotFound):
			core.Error(w, r, core.ErrUnprocessableEntity)
		case errors.Is(err, billing.ErrProviderError):
			core.Error(w, r, core.ErrServiceUnavailable)
		default:
			core.Error(w, r, err)
		}
		return
	}

	core.JSON(w, http.StatusCreated, map[string]any{
		"checkout_url": link.URL,
		"session_id":   link.SessionID,
		"expires_at":   link.ExpiresAt,
	})
}

func (s *Service) handlePortal(w http.ResponseWriter, r *http.Request) {
	user := account.UserFromContext(r.Context())

	link, err := s.Portal(r.Context(), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrSubscriptionNotFound), errors.Is(err, billing.ErrNoProviderSub),
			errors.Is(err, billing.ErrNoProviderCustomer):
			core.Error(w, r, core.ErrNotFound)
		case errors.Is(err, billing.ErrProviderError):
			core.Error(w, r, core.ErrServiceUnavailable)
		default:
			core.Error(w, r, err)
		}
		return
	}

	core.JSON(w, http.StatusOK, map[string]any{
		"portal_url": link.URL,
		"expires_at": link.ExpiresAt,
	})
}

func (s *Service) handleSubscription(w http.ResponseWriter, r *http.Request) {
	user := account.UserFromContext(r.Context())

	sub, err := s.SubscriptionFor(r.Context(), user.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, sub)
}

func (s *Service) handleUsage(w http.ResponseWriter, r *http.Request) {
	user := account.UserFromContext(r.Context())

	summary, err := s.Usage(r.Context(), user.ID, time.Now().UTC())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, summary)
}

// WebhookHandler handles provider webhook deliveries. Signature failures
// get 401 so a misconfigured secret is visible; reconciliation errors get
// 500 so the provider retries; everything else is 200 regardless of
// outcome, because retrying a business no-op cannot change it.
func WebhookHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			core.Error(w, r, core.ErrBadRequest)
			return
		}

		err = svc.ProcessWebhook(r.Context(), payload, r.Header.Get("Paddle-Signature"))
		if err != nil {
			if errors.Is(err, billing.ErrWebhookSignature) {
				core.Error(w, r, core.ErrUnauthorized)
				return
			}
			core.Error(w, r, err)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
