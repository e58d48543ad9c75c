package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/username/tokentracker/src/config"
	"github.com/username/tokentracker/src/models"
)

func TestNewEmailService_FallsBackToMock(t *testing.T) {
	prev := config.Cfg
	t.Cleanup(func() { config.Cfg = prev })

	config.Cfg = nil
	assert.IsType(t, &MockEmailService{}, NewEmailService())

	config.Cfg = &config.AppConfig{EmailServiceProvider: "mailgun"}
	assert.IsType(t, &MockEmailService{}, NewEmailService(), "incomplete mailgun config")

	config.Cfg = &config.AppConfig{EmailServiceProvider: "mailgun", MailgunDomain: "mg.example.com", MailgunPrivateAPIKey: "key", SenderEmail: "no-reply@example.com"}
	assert.IsType(t, &MailgunEmailService{}, NewEmailService())
}

func TestReceiptLines(t *testing.T) {
	r := models.TransactionReceipt{
		ID:      "SW12345678ABCD",
		Action:  models.ActionSwap,
		Message: "Successfully swapped 1 ETH for 3000 USDC",
		Summary: models.TransactionSummary{
			Fees:    []models.AppliedFee{{Name: "Network fee", Amount: decimal.RequireFromString("0.5")}},
			Display: models.SummaryDisplay{Amount: "1.00", Total: "1.50"},
		},
		CompletedAt: time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC),
	}
	lines := receiptLines(r)
	assert.Equal(t, "Successfully swapped 1 ETH for 3000 USDC", lines[0])
	assert.Contains(t, lines, "Transaction ID: SW12345678ABCD")
	assert.Contains(t, lines, "Network fee: 0.50")
	assert.Contains(t, lines, "Total: 1.50")
	assert.Equal(t, "Your swap receipt (SW12345678ABCD)", receiptSubject(r))

	assert.NoError(t, (&MockEmailService{}).SendReceiptEmail("a@b.co", r))
}
