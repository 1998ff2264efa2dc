// Package email delivers lifecycle notifications over SMTP.
package email

import (
	"context"
	"time"

	"inspect_portal_backend/platform/config"
)

// Sender delivers the application's outbound emails.
type Sender interface {
	SendOfferDispatchedEmail(ctx context.Context, toEmail, customerName string, totalCents int64, validUntil time.Time) error
	SendOfferReminderEmail(ctx context.Context, toEmail, inspectorName string, attempt int, totalCents int64, validUntil time.Time) error
	SendOfferEscalationEmail(ctx context.Context, toEmail, adminName, offerID string, daysOpen int, totalCents int64) error
	SendWeatherAlertEmail(ctx context.Context, toEmail, inspectorName, region, severity, headline string) error
}

// NoopSender silently drops every email. Used when email is disabled.
type NoopSender struct{}

func (NoopSender) SendOfferDispatchedEmail(context.Context, string, string, int64, time.Time) error {
	return nil
}

func (NoopSender) SendOfferReminderEmail(context.Context, string, string, int, int64, time.Time) error {
	return nil
}

func (NoopSender) SendOfferEscalationEmail(context.Context, string, string, string, int, int64) error {
	return nil
}

func (NoopSender) SendWeatherAlertEmail(context.Context, string, string, string, string, string) error {
	return nil
}

// NewSender returns the configured Sender: SMTP when email is enabled,
// otherwise a noop.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
