package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/vendorledger-backend/pkg/config"
)

// Email is one outbound message.
type Email struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type sendgridSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer sends through the SendGrid v3 API, retrying transport
// failures, throttling and 5xx responses a bounded number of times.
type SendGridMailer struct {
	client      sendgridSender
	from        *mail.Email
	maxAttempts int
	backoff     time.Duration
}

// NewSendGridMailer builds a mailer from config. It returns nil when SendGrid
// is not configured.
func NewSendGridMailer(cfg config.SendgridConfig) *SendGridMailer {
	if !cfg.Enabled() {
		return nil
	}
	return newSendGridMailer(sendgrid.NewSendClient(cfg.APIKey), cfg.FromName, cfg.DefaultFrom, cfg.MaxAttempts)
}

func newSendGridMailer(client sendgridSender, fromName, fromEmail string, maxAttempts int) *SendGridMailer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &SendGridMailer{
		client:      client,
		from:        mail.NewEmail(fromName, fromEmail),
		maxAttempts: maxAttempts,
		backoff:     500 * time.Millisecond,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, email Email) error {
	if strings.TrimSpace(email.To) == "" {
		return fmt.Errorf("email recipient required")
	}
	message := mail.NewSingleEmail(m.from, email.Subject, mail.NewEmail(email.ToName, email.To), email.PlainText, email.HTML)

	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		resp, err := m.client.SendWithContext(ctx, message)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("sendgrid send: %w", err)
		case resp.StatusCode == 429 || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("sendgrid error: status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return fmt.Errorf("sendgrid rejected message: status %d, body: %s", resp.StatusCode, resp.Body)
		default:
			return nil
		}

		if attempt == m.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("after %d attempts: %w", m.maxAttempts, lastErr)
}
