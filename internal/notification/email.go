package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/smukkama/weather-index-server/internal/protocol"
	"github.com/smukkama/weather-index-server/pkg/config"
)

// EmailNotifier sends email notifications for weather index alerts
type EmailNotifier struct {
	config *config.SMTPConfig
	logger *zap.Logger
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{config: cfg, logger: logger}
}

var alertTemplate = template.Must(template.New("alert").Parse(`
Weather Index Alert
===================

Region: {{.Region}}
Level: {{.LevelName}}
Index: {{printf "%.3f" .IndexValue}}
Created: {{.CreatedAt}}
Alert ID: {{.AlertID}}

{{.Message}}

The composite weather index for {{.Region}} has reached {{printf "%.3f" .IndexValue}},
which classifies as "{{.LevelName}}". The alert stays active until conditions
return to normal.

---
Weather Index Server Notification System
`))

// SendAlertEvent sends an email for an alert-created event
func (e *EmailNotifier) SendAlertEvent(event *protocol.AlertEvent) error {
	subject := fmt.Sprintf("Weather alert - %s - %s", event.Region, event.LevelName)

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, event); err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return e.sendEmail(subject, buf.String())
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		e.logger.Info("SMTP not configured, skipping email", zap.String("subject", subject))
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := smtp.SendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.Info("Email sent", zap.String("subject", subject))
	return nil
}
