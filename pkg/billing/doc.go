// Package billing owns the subscription side of the metering core: the
// per-user subscription record with its tier limit snapshot, the billing
// period resolver, and the webhook reconciler that applies payment-provider
// events to subscription state.
//
// The package never calls the payment provider to mutate anything. Checkout
// and portal sessions are created through the Provider abstraction on user
// request; all subscription state changes arrive asynchronously as webhook
// events and are applied by the Reconciler, idempotently, keyed by the
// provider's unique event ID.
//
// Typical wiring:
//
//	provider, _ := billing.NewPaddleProvider(paddleCfg)
//	rec := billing.NewReconciler(subStore, eventStore, catalog)
//	event, err := provider.ParseWebhook(ctx, payload, signature)
//	if err == nil {
//		err = rec.Apply(ctx, event)
//	}
package billing
