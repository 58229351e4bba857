// Package delivery carries generated codes to users. The crypto core never
// imports it; callers hand a rendered body to a Deliverer and surface its
// failure as "code was generated but never reached the user". No retries
// happen at this layer.
package delivery

import (
	"context"
	"errors"
)

var (
	ErrNoRecipient    = errors.New("delivery: recipient required")
	ErrDeliveryFailed = errors.New("delivery: send failed")
)

// MIME types used by Body.
const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// Body is a rendered message body together with its MIME type, so a sender
// can never mislabel an HTML body as plain text or vice versa.
type Body struct {
	Content     string
	ContentType string
}

// Deliverer sends one message to one recipient.
type Deliverer interface {
	Deliver(ctx context.Context, recipient, subject string, body Body) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, recipient, subject string, body Body) error

func (f DelivererFunc) Deliver(ctx context.Context, recipient, subject string, body Body) error {
	return f(ctx, recipient, subject, body)
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
