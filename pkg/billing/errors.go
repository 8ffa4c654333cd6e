package billing

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrEventAlreadyApplied  = errors.New("billing event already applied")

	ErrMissingEventID     = errors.New("billing event has no provider event ID")
	ErrUnknownPriceID     = errors.New("provider price ID not present in catalog")
	ErrProviderError      = errors.New("billing provider error")
	ErrWebhookSignature   = errors.New("webhook signature verification failed")
	ErrNoCheckoutURL      = errors.New("no checkout URL returned from provider")
	ErrNoPortalURL        = errors.New("no portal URL returned from provider")
	ErrNoProviderSub      = errors.New("subscription has no provider subscription ID")
	ErrNoProviderCustomer = errors.New("subscription has no provider customer ID")
	ErrMissingPriceID     = errors.New("price ID is required")
	ErrMissingCustomerID  = errors.New("customer ID is required")
)
