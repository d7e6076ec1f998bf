package mailer

import (
	"context"
	"log/slog"

	jobAuth "github.com/MrEthical07/jobAuth"
)

// LogMailer writes mail requests to a logger instead of sending them. Secrets
// are logged in full, so it must never be used outside development.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func (m LogMailer) SendActivation(ctx context.Context, email, token string) error {
	m.logger().InfoContext(ctx, "mail", "template", TemplateActivation, "recipient", email, "token", token)
	return nil
}

func (m LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.logger().InfoContext(ctx, "mail", "template", TemplatePasswordReset, "recipient", email, "token", token)
	return nil
}

func (m LogMailer) SendOTP(ctx context.Context, email, code string) error {
	m.logger().InfoContext(ctx, "mail", "template", TemplateEmailOTP, "recipient", email, "code", code)
	return nil
}

var _ jobAuth.Mailer = LogMailer{}
