// Package plans holds the static tier catalog: which subscription tiers
// exist, what they cost, and how much of each metered usage type they allow
// per billing period.
//
// The catalog is loaded once at process start from a Source (in-memory for
// tests, YAML file in production) and is immutable afterwards. Validation is
// strict: every tier must define a limit for every known usage type, so a
// missing limit is caught at startup rather than at request time.
//
// Usage:
//
//	catalog, err := plans.NewCatalog(ctx, plans.NewYAMLSource("config/tiers.yaml"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	tier, _ := catalog.Get(plans.TierPro)
//	limit, _ := tier.Limit(plans.UsageAPICall)
package plans
