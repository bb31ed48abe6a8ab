package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestNewSMTPSender_Validation(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{From: "noreply@realty.test"}); err == nil {
		t.Fatalf("expected error for missing host")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp.realty.test", From: "not an address"}); err == nil {
		t.Fatalf("expected error for invalid from")
	}
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.realty.test", From: "noreply@realty.test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.cfg.Port != 587 {
		t.Fatalf("expected default port 587, got %d", s.cfg.Port)
	}
}

func TestSMTPSender_SendVerificationCode(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{
		Host:     "smtp.realty.test",
		Port:     2525,
		From:     "noreply@realty.test",
		FromName: "Realty",
	})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	s.deliver = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.SendVerificationCode(context.Background(), "ana@x.com", "Ana", "123456", expires); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "smtp.realty.test:2525" || gotFrom != "noreply@realty.test" {
		t.Fatalf("unexpected envelope %s %s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "ana@x.com" {
		t.Fatalf("unexpected recipients %v", gotTo)
	}
	for _, want := range []string{"Subject: Confirm your email", "123456", "2026-01-02T03:04:05Z", "Hello Ana"} {
		if !strings.Contains(gotMsg, want) {
			t.Fatalf("message missing %q:\n%s", want, gotMsg)
		}
	}
}

func TestSMTPSender_InvalidRecipient(t *testing.T) {
	s, _ := NewSMTPSender(SMTPConfig{Host: "smtp.realty.test", From: "noreply@realty.test"})
	s.deliver = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatalf("deliver must not be called")
		return nil
	}
	if err := s.SendVerificationCode(context.Background(), "nope", "", "123456", time.Now()); err == nil {
		t.Fatalf("expected invalid recipient error")
	}
}

func TestDisabledSender(t *testing.T) {
	err := NewDisabledSender("smtp not configured").SendVerificationCode(context.Background(), "a@b.c", "", "1", time.Now())
	if !errors.Is(err, ErrSenderDisabled) {
		t.Fatalf("expected ErrSenderDisabled, got %v", err)
	}
	if !strings.Contains(err.Error(), "smtp not configured") {
		t.Fatalf("expected configured reason, got %v", err)
	}
	if err := NewDisabledSender("").SendVerificationCode(context.Background(), "a@b.c", "", "1", time.Now()); !errors.Is(err, ErrSenderDisabled) {
		t.Fatalf("expected ErrSenderDisabled without reason, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewDisabledSender("x").SendVerificationCode(ctx, "a@b.c", "", "1", time.Now()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error first, got %v", err)
	}
}
