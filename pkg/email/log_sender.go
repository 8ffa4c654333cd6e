package email

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the application log instead of delivering
// them. Used in development and tests where no Postmark tokens exist.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender returns a Sender that logs instead of sending.
func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

func (s *LogSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "email suppressed in development",
		"to", params.SendTo, "subject", params.Subject, "tag", params.Tag)
	return nil
}
