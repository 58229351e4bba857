package delivery

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

func TestNewSMTPSenderValidation(t *testing.T) {
	if _, err := NewSMTPSender(SMTPOptions{}); !errors.Is(err, ErrSMTPMissingHost) {
		t.Fatalf("NewSMTPSender(no host) error = %v, want ErrSMTPMissingHost", err)
	}
	if _, err := NewSMTPSender(SMTPOptions{Host: HostGmail}); !errors.Is(err, ErrSMTPMissingFrom) {
		t.Fatalf("NewSMTPSender(no from) error = %v, want ErrSMTPMissingFrom", err)
	}
}

func TestSMTPSenderDeliver(t *testing.T) {
	sender, err := NewSMTPSender(SMTPOptions{
		Host:     HostGmail,
		Username: "app@example.com",
		Password: "app-password",
	})
	if err != nil {
		t.Fatalf("NewSMTPSender() error = %v", err)
	}

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	sender.WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	})

	body := Body{Content: "Your code: 123456", ContentType: ContentTypeText}
	if err := sender.Deliver(context.Background(), "user@example.com", "Verification code", body); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if gotAddr != HostGmail+":587" {
		t.Fatalf("addr = %s, want %s:587", gotAddr, HostGmail)
	}
	if gotFrom != "app@example.com" || len(gotTo) != 1 || gotTo[0] != "user@example.com" {
		t.Fatalf("from = %s, to = %v", gotFrom, gotTo)
	}

	msg := string(gotMsg)
	for _, want := range []string{
		"From: app@example.com\r\n",
		"To: user@example.com\r\n",
		"Subject: Verification code\r\n",
		"Content-Type: " + ContentTypeText + "\r\n",
		"\r\n\r\nYour code: 123456",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestSMTPSenderDeliverErrors(t *testing.T) {
	sender, err := NewSMTPSender(SMTPOptions{Host: HostOutlook, From: "app@example.com"})
	if err != nil {
		t.Fatalf("NewSMTPSender() error = %v", err)
	}
	sender.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	})

	if err := sender.Deliver(context.Background(), "", "s", Body{}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("Deliver(no recipient) error = %v, want ErrNoRecipient", err)
	}
	if err := sender.Deliver(context.Background(), "user@example.com", "s", Body{}); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Deliver(transport failure) error = %v, want ErrDeliveryFailed", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sender.Deliver(ctx, "user@example.com", "s", Body{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Deliver(cancelled) error = %v, want context.Canceled", err)
	}
}
