// src/services/email_service.go
package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/tokentracker/src/config"
	"github.com/username/tokentracker/src/logger"
	"github.com/username/tokentracker/src/models"
	"github.com/username/tokentracker/src/utils"
)

func NewEmailService() EmailService {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
		return &MockEmailService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
			appURL:      config.Cfg.FrontendBaseURL,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{}
	}
}

func welcomeText(displayName, appURL string) string {
	return fmt.Sprintf(`Hi %s,

Welcome to Token Tracker! Your account is ready. Track prices, build a
favorites list and try buy, swap and send flows with the demo wallet:
%s

Thanks,
The Token Tracker Team`, displayName, appURL)
}

func receiptLines(r models.TransactionReceipt) []string {
	lines := []string{
		r.Message,
		"",
		"Transaction ID: " + r.ID,
		"Amount: " + r.Summary.Display.Amount,
	}
	for _, fee := range r.Summary.Fees {
		lines = append(lines, fmt.Sprintf("%s: %s", fee.Name, utils.FormatMoney(fee.Amount)))
	}
	lines = append(lines,
		"Total: "+r.Summary.Display.Total,
		"Completed: "+r.CompletedAt.UTC().Format(time.RFC1123),
	)
	return lines
}

func receiptSubject(r models.TransactionReceipt) string {
	return fmt.Sprintf("Your %s receipt (%s)", r.Action, r.ID)
}

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
	appURL      string
}

func (s *MailgunEmailService) send(toEmail, subject, text, htmlBody, tag string) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := s.mg.NewMessage(from, subject, text, toEmail)
	message.SetHtml(htmlBody)
	if err := message.AddTag(tag); err != nil {
		logger.L.Warn("Failed to tag email", "tag", tag, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send email via Mailgun", "error", err, "tag", tag, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Email sent successfully via Mailgun", "tag", tag, "id", id)
	return nil
}

func (s *MailgunEmailService) SendWelcomeEmail(toEmail, displayName string) error {
	text := welcomeText(displayName, s.appURL)
	htmlBody := fmt.Sprintf(`
	<html>
		<body style="font-family: Arial, sans-serif; line-height: 1.6;">
			<p>Hi %s,</p>
			<p>Welcome to Token Tracker! Your account is ready.</p>
			<p><a href="%s" target="_blank" style="color: #6366f1; text-decoration: none; font-weight: bold;">Open Token Tracker</a></p>
			<p>Thanks,<br>The Token Tracker Team</p>
		</body>
	</html>`, html.EscapeString(displayName), html.EscapeString(s.appURL))
	return s.send(toEmail, "Welcome to Token Tracker", text, htmlBody, "welcome")
}

func (s *MailgunEmailService) SendReceiptEmail(toEmail string, receipt models.TransactionReceipt) error {
	lines := receiptLines(receipt)
	var b strings.Builder
	b.WriteString(`<html><body style="font-family: Arial, sans-serif; line-height: 1.6;">`)
	for _, l := range lines {
		if l == "" {
			b.WriteString("<br>")
			continue
		}
		b.WriteString("<p>" + html.EscapeString(l) + "</p>")
	}
	b.WriteString("</body></html>")
	return s.send(toEmail, receiptSubject(receipt), strings.Join(lines, "\n"), b.String(), "receipt")
}

// MockEmailService logs instead of sending.
type MockEmailService struct{}

func (m *MockEmailService) SendWelcomeEmail(toEmail, displayName string) error {
	logger.L.Info("MockEmailService: Would send welcome email.", "to", toEmail, "displayName", displayName)
	return nil
}

func (m *MockEmailService) SendReceiptEmail(toEmail string, receipt models.TransactionReceipt) error {
	logger.L.Info("MockEmailService: Would send receipt email.", "to", toEmail, "subject", receiptSubject(receipt), "total", receipt.Summary.Display.Total)
	return nil
}
