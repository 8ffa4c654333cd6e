package metering

import "errors"

var (
	// ErrUnknownUsageType indicates a caller bug: the gate was asked about a
	// usage type outside the closed set. Never treated as unlimited or free.
	ErrUnknownUsageType = errors.New("unknown usage type")

	// ErrLimitNotConfigured indicates a corrupted limit snapshot: the usage
	// type is known but the subscription carries no limit for it.
	ErrLimitNotConfigured = errors.New("no limit configured for usage type")

	ErrInvalidCost  = errors.New("usage cost must be a positive integer")
	ErrLedgerFailed = errors.New("usage ledger operation failed")
)
