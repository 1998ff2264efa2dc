package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface over a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendOfferDispatchedEmail(ctx context.Context, toEmail, customerName string, totalCents int64, validUntil time.Time) error {
	content, err := renderEmailTemplate("offer_dispatched.html", offerDispatchedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Uw offerte staat klaar",
			Heading: "Uw offerte staat klaar",
		},
		CustomerName:   customerName,
		TotalFormatted: formatCurrencyEUR(totalCents),
		ValidUntil:     validUntil.Format("02-01-2006"),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectOfferDispatched, content)
}

func (s *SMTPSender) SendOfferReminderEmail(ctx context.Context, toEmail, inspectorName string, attempt int, totalCents int64, validUntil time.Time) error {
	content, err := renderEmailTemplate("offer_reminder.html", offerReminderEmailData{
		baseEmailData: baseEmailData{
			Title:   "Herinnering: offerte wacht op reactie",
			Heading: "Een van uw offertes wacht nog op reactie",
		},
		InspectorName:  inspectorName,
		Attempt:        attempt,
		TotalFormatted: formatCurrencyEUR(totalCents),
		ValidUntil:     validUntil.Format("02-01-2006"),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectOfferReminder, content)
}

func (s *SMTPSender) SendOfferEscalationEmail(ctx context.Context, toEmail, adminName, offerID string, daysOpen int, totalCents int64) error {
	subject := fmt.Sprintf(subjectOfferEscalationFmt, daysOpen)
	content, err := renderEmailTemplate("offer_escalation.html", offerEscalationEmailData{
		baseEmailData: baseEmailData{
			Title:   "Offerte vraagt om aandacht",
			Heading: "Een offerte staat al te lang open",
		},
		AdminName:      adminName,
		OfferID:        offerID,
		DaysOpen:       daysOpen,
		TotalFormatted: formatCurrencyEUR(totalCents),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendWeatherAlertEmail(ctx context.Context, toEmail, inspectorName, region, severity, headline string) error {
	subject := fmt.Sprintf(subjectWeatherAlertFmt, region)
	content, err := renderEmailTemplate("weather_alert.html", weatherAlertEmailData{
		baseEmailData: baseEmailData{
			Title:   "Weerswaarschuwing",
			Heading: "Weerswaarschuwing voor uw regio",
		},
		InspectorName: inspectorName,
		Region:        region,
		Severity:      severity,
		Headline:      headline,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}
