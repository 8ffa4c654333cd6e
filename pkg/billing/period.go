package billing

import "time"

// Period is the accounting window usage accumulates over.
// Stale is set when the subscription carries provider period bounds that have
// already elapsed (renewal webhook not yet delivered); the resolver then falls
// back to a calendar month instead of extending the stale paid period, so
// quota cannot carry over indefinitely. Callers can observe the flag for
// later reconciliation.
type Period struct {
	Start time.Time
	End   time.Time
	Stale bool
}

// Contains reports whether t falls inside the period ([Start, End)).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// CurrentPeriod resolves the billing period containing now for the given
// subscription. It is a pure function of (subscription state, now): calling
// it repeatedly within one request cannot drift.
//
// Provider-assigned bounds are returned verbatim while now falls inside them.
// Without provider bounds (free tier, or paid tier before activation) the
// window is the calendar month containing now. Provider bounds that now has
// already passed yield the calendar-month fallback flagged Stale.
func CurrentPeriod(sub *Subscription, now time.Time) Period {
	now = now.UTC()

	if sub.PeriodStart != nil && sub.PeriodEnd != nil {
		start, end := sub.PeriodStart.UTC(), sub.PeriodEnd.UTC()
		if !now.Before(start) && now.Before(end) {
			return Period{Start: start, End: end}
		}
		if !now.Before(end) {
			p := calendarMonth(now)
			p.Stale = true
			return p
		}
		// now precedes the stored window (clock skew or a future-dated
		// period); meter against the calendar month until it opens.
	}

	return calendarMonth(now)
}

func calendarMonth(now time.Time) Period {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}
