package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider on top of the official Paddle SDK.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle-backed Provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

// CreateCheckoutLink creates a hosted checkout transaction in Paddle.
// The user ID travels in custom data so webhook events can be linked back.
func (p *PaddleProvider) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.PriceID == "" {
		return nil, ErrMissingPriceID
	}
	if req.CustomerID == "" {
		return nil, ErrMissingCustomerID
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"customer_id": req.CustomerID,
		},
	}
	if req.Email != "" {
		txReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	tx, err := p.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}

	if tx.Checkout == nil || tx.Checkout.URL == nil || *tx.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutLink{
		URL:       *tx.Checkout.URL,
		SessionID: tx.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour), // Paddle checkout links expire in 24h
	}, nil
}

// GetCustomerPortalLink returns a link to Paddle's customer portal. The
// portal session requires Paddle's own customer ID, captured from webhook
// payloads at reconciliation; a subscription that never saw a webhook has
// nothing to open a portal for.
func (p *PaddleProvider) GetCustomerPortalLink(ctx context.Context, sub *Subscription) (*PortalLink, error) {
	if sub == nil || sub.ProviderSubscriptionID == "" {
		return nil, ErrNoProviderSub
	}
	if sub.ProviderCustomerID == "" {
		return nil, ErrNoProviderCustomer
	}

	session, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, &paddle.CreateCustomerPortalSessionRequest{
		CustomerID:      sub.ProviderCustomerID,
		SubscriptionIDs: []string{sub.ProviderSubscriptionID},
	})
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}

	link := &PortalLink{
		URL:       session.URLs.General.Overview,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	for _, subURL := range session.URLs.Subscriptions {
		if subURL.ID == sub.ProviderSubscriptionID {
			link.CancelURL = subURL.CancelSubscription
			link.UpdatePaymentURL = subURL.UpdateSubscriptionPaymentMethod
			break
		}
	}

	if link.URL == "" {
		return nil, ErrNoPortalURL
	}
	return link, nil
}

// ParseWebhook verifies the Paddle signature and normalizes the payload into
// an Event for the Reconciler. The SDK verifier wants an http.Request, so one
// is rebuilt around the payload.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookSignature, err)
	}
	if !valid {
		return nil, ErrWebhookSignature
	}

	return parsePaddleEvent(payload)
}

// parsePaddleEvent normalizes a verified Paddle payload into an Event.
// Two customer identities travel in the payload: Paddle's own ctm_ ID at the
// top of data, and our user UUID inside custom_data (set at checkout).
func parsePaddleEvent(payload []byte) (*Event, error) {
	var envelope struct {
		EventID    string          `json:"event_id"`
		EventType  string          `json:"event_type"`
		OccurredAt time.Time       `json:"occurred_at"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	event := &Event{
		ProviderEventID: envelope.EventID,
		Kind:            mapPaddleEventType(envelope.EventType),
		ProviderEvent:   envelope.EventType,
		OccurredAt:      envelope.OccurredAt.UTC(),
		Raw:             payload,
	}

	var data struct {
		ID             string `json:"id"`
		SubscriptionID string `json:"subscription_id"`
		CustomerID     string `json:"customer_id"`
		Status         string `json:"status"`
		CustomData     struct {
			CustomerID string `json:"customer_id"`
		} `json:"custom_data"`
		CurrentBillingPeriod *struct {
			StartsAt time.Time `json:"starts_at"`
			EndsAt   time.Time `json:"ends_at"`
		} `json:"current_billing_period"`
		NextBilledAt *time.Time `json:"next_billed_at"`
		Items        []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
			PriceID string `json:"price_id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("parse webhook data: %w", err)
	}

	event.CustomerID = data.CustomData.CustomerID
	event.ProviderCustomerID = data.CustomerID
	event.Status = data.Status

	if strings.HasPrefix(envelope.EventType, "subscription.") {
		event.SubscriptionID = data.ID
	} else if data.SubscriptionID != "" {
		event.SubscriptionID = data.SubscriptionID
	}

	if data.CurrentBillingPeriod != nil {
		start := data.CurrentBillingPeriod.StartsAt.UTC()
		end := data.CurrentBillingPeriod.EndsAt.UTC()
		event.PeriodStart, event.PeriodEnd = &start, &end
	}
	if data.NextBilledAt != nil {
		next := data.NextBilledAt.UTC()
		event.NextBilledAt = &next
	}

	for _, item := range data.Items {
		if item.Price.ID != "" {
			event.PriceID = item.Price.ID
			break
		}
		if item.PriceID != "" {
			event.PriceID = item.PriceID
			break
		}
	}

	return event, nil
}

// mapPaddleEventType maps Paddle event names to reconciler event kinds.
// transaction.payment_failed covers one-off payment failures; Paddle reports
// renewal failures as subscription.past_due, mapped the same way.
func mapPaddleEventType(name string) EventKind {
	switch name {
	case "subscription.created", "subscription.activated":
		return EventSubscriptionCreated
	case "subscription.updated", "subscription.resumed":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCancelled
	case "subscription.past_due", "transaction.payment_failed":
		return EventPaymentFailed
	default:
		return EventUnknown
	}
}
