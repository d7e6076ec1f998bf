// Package mailer implements jobAuth.Mailer.
//
// [NotificationMailer] posts templated mail requests to the notification
// service; links are built from configured base URLs. [LogMailer] only logs
// and is meant for local development.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
)

const (
	TemplateActivation    = "account-activation"
	TemplatePasswordReset = "password-reset"
	TemplateEmailOTP      = "email-change-otp"
)

// ErrDelivery is returned when the notification service refuses a request.
var ErrDelivery = errors.New("mailer: delivery failed")

// NotificationConfig configures [NotificationMailer].
type NotificationConfig struct {
	// Endpoint receives POSTed mail requests.
	Endpoint string
	// ActivationURL and ResetURL get the token appended as ?token=.
	ActivationURL string
	ResetURL      string
	// HTTPClient should carry an m2m.Transport so requests are authenticated.
	HTTPClient *http.Client
}

// NotificationMailer delivers mail through the notification service.
type NotificationMailer struct {
	cfg    NotificationConfig
	client *http.Client
}

type mailRequest struct {
	Template  string            `json:"template"`
	Recipient string            `json:"recipient"`
	Data      map[string]string `json:"data"`
}

func NewNotificationMailer(cfg NotificationConfig) (*NotificationMailer, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("mailer: endpoint is required")
	}
	for name, raw := range map[string]string{"activation": cfg.ActivationURL, "reset": cfg.ResetURL} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return nil, fmt.Errorf("mailer: invalid %s url: %w", name, err)
		}
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NotificationMailer{cfg: cfg, client: client}, nil
}

func (m *NotificationMailer) SendActivation(ctx context.Context, email, token string) error {
	return m.send(ctx, mailRequest{
		Template:  TemplateActivation,
		Recipient: email,
		Data:      map[string]string{"link": withToken(m.cfg.ActivationURL, token)},
	})
}

func (m *NotificationMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	return m.send(ctx, mailRequest{
		Template:  TemplatePasswordReset,
		Recipient: email,
		Data:      map[string]string{"link": withToken(m.cfg.ResetURL, token)},
	})
}

func (m *NotificationMailer) SendOTP(ctx context.Context, email, code string) error {
	return m.send(ctx, mailRequest{
		Template:  TemplateEmailOTP,
		Recipient: email,
		Data:      map[string]string{"code": code},
	})
}

func (m *NotificationMailer) send(ctx context.Context, payload mailRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: template %s status %d", ErrDelivery, payload.Template, resp.StatusCode)
	}
	return nil
}

func withToken(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + url.Values{"token": {token}}.Encode()
}

var _ jobAuth.Mailer = (*NotificationMailer)(nil)
