package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/resend/resend-go/v2"
)

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, e Email) error
	Channel() string
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
}

func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{
		client: resend.NewCustomClient(&http.Client{Timeout: 10 * time.Second}, apiKey),
	}
}

func (s *ResendSender) Channel() string { return "resend" }

func (s *ResendSender) Send(ctx context.Context, e Email) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.From,
		To:      []string{e.To},
		Subject: e.Subject,
		Html:    e.HTML,
	})
	if err != nil {
		return fmt.Errorf("notify: resend: %w", err)
	}
	return nil
}

// LogSender only logs the prepared email. Used when no provider key is configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Channel() string { return "log" }

func (s LogSender) Send(ctx context.Context, e Email) error {
	l := s.Log
	if l == nil {
		l = slog.Default()
	}
	preview := e.HTML
	if len(preview) > 200 {
		preview = preview[:200]
	}
	l.InfoContext(ctx, "email notification prepared", "to", e.To, "subject", e.Subject, "body_preview", preview)
	return nil
}
