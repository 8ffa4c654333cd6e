package plans

// UsageType is a category of metered action. The set is closed: the gate
// refuses to meter anything outside KnownUsageTypes.
type UsageType string

const (
	UsageAPICall           UsageType = "api_call"
	UsageExport            UsageType = "export"
	UsageSentimentAnalysis UsageType = "sentiment_analysis"
)

// KnownUsageTypes returns every usage type the catalog must cover.
func KnownUsageTypes() []UsageType {
	return []UsageType{UsageAPICall, UsageExport, UsageSentimentAnalysis}
}

// IsKnownUsageType reports whether u is part of the closed usage-type set.
func IsKnownUsageType(u UsageType) bool {
	switch u {
	case UsageAPICall, UsageExport, UsageSentimentAnalysis:
		return true
	}
	return false
}

// Unlimited indicates no limit for a usage type (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// TierID identifies a catalog tier. The enumeration is closed.
type TierID string

const (
	TierFree       TierID = "free"
	TierPro        TierID = "pro"
	TierEnterprise TierID = "enterprise"
)

// Money represents a monetary amount in the smallest currency unit.
// $29.00 USD is Amount: 2900, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount" json:"amount"`
	Currency string `yaml:"currency" json:"currency"`
}

// BillingInterval is the billing frequency of a tier.
type BillingInterval string

const (
	IntervalNone    BillingInterval = "none" // free tier, no provider billing
	IntervalMonthly BillingInterval = "monthly"
	IntervalAnnual  BillingInterval = "annual"
)
