package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrWebhookMissingURL = errors.New("delivery: webhook url required")

// WebhookOptions configures a WebhookSender.
type WebhookOptions struct {
	// URL receives a JSON envelope per message via POST.
	URL     string
	Timeout time.Duration
	Headers map[string]string
	// BearerToken, when set, is sent as an Authorization header.
	BearerToken string
}

// WebhookSender posts messages to an HTTP delivery relay (an internal mail
// or SMS gateway). The relay owns the actual transport.
type WebhookSender struct {
	client *resty.Client
	url    string
}

type webhookEnvelope struct {
	Recipient   string `json:"recipient"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	ContentType string `json:"content_type"`
}

// NewWebhookSender builds an HTTP-backed Deliverer.
func NewWebhookSender(opts WebhookOptions) (*WebhookSender, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, ErrWebhookMissingURL
	}

	client := resty.New()
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if len(opts.Headers) > 0 {
		client.SetHeaders(opts.Headers)
	}
	if opts.BearerToken != "" {
		client.SetAuthToken(opts.BearerToken)
	}

	return &WebhookSender{client: client, url: opts.URL}, nil
}

func (s *WebhookSender) Deliver(ctx context.Context, recipient, subject string, body Body) error {
	if strings.TrimSpace(recipient) == "" {
		return ErrNoRecipient
	}

	contentType := body.ContentType
	if contentType == "" {
		contentType = ContentTypeText
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(webhookEnvelope{
			Recipient:   recipient,
			Subject:     subject,
			Body:        body.Content,
			ContentType: contentType,
		}).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: status %s", ErrDeliveryFailed, resp.Status())
	}
	return nil
}
