// Package metering implements the usage ledger and the gate decision engine
// that sits between an incoming request and the protected operation.
//
// The ledger is append-only: one immutable record per admitted request, never
// mutated or deleted, forming the audit trail for billing disputes. The gate
// composes subscription state, the billing period resolver, and the ledger to
// answer "is this usage allowed, and if so, record it" atomically per request.
//
//	gate := metering.NewGate(ledger, metering.NewMutexLocker())
//	decision, err := gate.CheckAndRecord(ctx, sub, plans.UsageAPICall, 1)
//	if err != nil {
//		// storage failure: fail closed, deny the request
//	}
//	if !decision.Allowed {
//		// decision.Reason distinguishes quota exhaustion from an
//		// inactive subscription
//	}
//
// The check-then-append sequence is serialized per subscription through a
// KeyedLocker, so concurrent requests from one customer cannot overshoot the
// quota. Usage counts are never cached in memory between calls; every
// decision re-reads the shared store.
package metering
