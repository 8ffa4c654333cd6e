package billingapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/trendit-api/trendit/pkg/billing"
	"github.com/trendit-api/trendit/pkg/email"
)

// EmailLookupFunc resolves a user ID to the address notifications go to.
type EmailLookupFunc func(ctx context.Context, id uuid.UUID) (string, error)

// StatusChangeNotifier returns a reconciler hook that emails the user about
// billing state transitions. Send failures are logged, never propagated:
// the webhook must stay idempotent and fast regardless of mail delivery.
func StatusChangeNotifier(lookup EmailLookupFunc, sender email.Sender, log *slog.Logger) billing.StatusChangeHook {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, sub *billing.Subscription, kind billing.EventKind) {
		addr, err := lookup(ctx, sub.UserID)
		if err != nil {
			log.WarnContext(ctx, "cannot resolve user for billing notification",
				"user_id", sub.UserID, "error", err)
			return
		}

		subject, body, tag := notificationContent(sub)
		if subject == "" {
			return
		}

		if err := sender.SendEmail(ctx, email.SendEmailParams{
			SendTo:   addr,
			Subject:  subject,
			BodyHTML: body,
			Tag:      tag,
		}); err != nil {
			log.ErrorContext(ctx, "failed to send billing notification",
				"user_id", sub.UserID, "tag", tag, "error", err)
		}
	}
}

func notificationContent(sub *billing.Subscription) (subject, body, tag string) {
	switch sub.Status {
	case billing.StatusActive:
		return "Your Trendit subscription is active",
			fmt.Sprintf("<p>Your <strong>%s</strong> plan is now active. Happy querying!</p>", sub.TierID),
			"subscription-active"
	case billing.StatusTrialing:
		return "Your Trendit trial has started",
			fmt.Sprintf("<p>Your <strong>%s</strong> trial is underway.</p>", sub.TierID),
			"trial-started"
	case billing.StatusSuspended:
		return "Action required: payment failed",
			"<p>We could not process your last payment. Please update your payment method to restore access.</p>",
			"payment-failed"
	case billing.StatusCancelled:
		return "Your Trendit subscription was cancelled",
			"<p>Your subscription has ended and your account is back on the free plan.</p>",
			"subscription-cancelled"
	default:
		return "", "", ""
	}
}
