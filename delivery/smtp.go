package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

var (
	ErrSMTPMissingHost = errors.New("delivery: smtp host required")
	ErrSMTPMissingFrom = errors.New("delivery: smtp sender address required")
)

// Well-known submission hosts, all speaking STARTTLS on port 587.
const (
	HostGmail   = "smtp.gmail.com"
	HostYahoo   = "smtp.mail.yahoo.com"
	HostOutlook = "smtp-mail.outlook.com"
	HostZoho    = "smtp.zoho.com"
	HostAOL     = "smtp.aol.com"

	PortSubmission = 587
)

// SMTPOptions configures an SMTPSender.
type SMTPOptions struct {
	Host string
	// Port defaults to PortSubmission.
	Port     int
	Username string
	Password string
	// From defaults to Username.
	From string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers messages over SMTP with PLAIN auth and opportunistic
// STARTTLS (the net/smtp client upgrades automatically when the server
// advertises it).
type SMTPSender struct {
	opts SMTPOptions
	send sendFunc
}

// NewSMTPSender builds an SMTP-backed Deliverer.
func NewSMTPSender(opts SMTPOptions) (*SMTPSender, error) {
	if strings.TrimSpace(opts.Host) == "" {
		return nil, ErrSMTPMissingHost
	}
	if opts.Port == 0 {
		opts.Port = PortSubmission
	}
	if opts.From == "" {
		opts.From = opts.Username
	}
	if opts.From == "" {
		return nil, ErrSMTPMissingFrom
	}
	return &SMTPSender{opts: opts, send: smtp.SendMail}, nil
}

// WithSendFunc overrides the transport function (useful for tests).
func (s *SMTPSender) WithSendFunc(fn sendFunc) {
	if fn != nil {
		s.send = fn
	}
}

func (s *SMTPSender) Deliver(ctx context.Context, recipient, subject string, body Body) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(recipient) == "" {
		return ErrNoRecipient
	}

	var auth smtp.Auth
	if s.opts.Username != "" {
		auth = smtp.PlainAuth("", s.opts.Username, s.opts.Password, s.opts.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	msg := buildMessage(s.opts.From, recipient, subject, body)
	if err := s.send(addr, auth, s.opts.From, []string{recipient}, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

func buildMessage(from, to, subject string, body Body) []byte {
	contentType := body.ContentType
	if contentType == "" {
		contentType = ContentTypeText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(body.Content)
	return []byte(b.String())
}
