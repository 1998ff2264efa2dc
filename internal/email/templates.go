package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type offerDispatchedEmailData struct {
	baseEmailData
	CustomerName   string
	TotalFormatted string
	ValidUntil     string
}

type offerReminderEmailData struct {
	baseEmailData
	InspectorName  string
	Attempt        int
	TotalFormatted string
	ValidUntil     string
}

type offerEscalationEmailData struct {
	baseEmailData
	AdminName      string
	OfferID        string
	DaysOpen       int
	TotalFormatted string
}

type weatherAlertEmailData struct {
	baseEmailData
	InspectorName string
	Region        string
	Severity      string
	Headline      string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrencyEUR(cents int64) string {
	return fmt.Sprintf("€%.2f", float64(cents)/100)
}
