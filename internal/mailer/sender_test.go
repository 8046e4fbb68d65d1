package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fdg312/incident-hub/internal/config"
)

type captureLogger struct {
	lines []string
}

func (l *captureLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func TestNewSenderFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr bool
	}{
		{name: "default local", cfg: config.Config{}, want: "*mailer.LocalSender"},
		{name: "smtp", cfg: config.Config{EmailSenderMode: "smtp", SMTPHost: "mail.local", SMTPPort: 25, SMTPFrom: "a@b.c"}, want: "*mailer.SMTPSender"},
		{name: "smtp without host", cfg: config.Config{EmailSenderMode: "smtp", SMTPPort: 25, SMTPFrom: "a@b.c"}, wantErr: true},
		{name: "smtp user without password", cfg: config.Config{EmailSenderMode: "smtp", SMTPHost: "h", SMTPPort: 25, SMTPFrom: "a@b.c", SMTPUsername: "u"}, wantErr: true},
		{name: "resend", cfg: config.Config{EmailSenderMode: "resend", ResendAPIKey: "re_123"}, want: "*mailer.ResendSender"},
		{name: "resend without key", cfg: config.Config{EmailSenderMode: "resend"}, wantErr: true},
		{name: "unknown", cfg: config.Config{EmailSenderMode: "pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewSenderFromConfig(&tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := fmt.Sprintf("%T", sender); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestLocalSenderLogs(t *testing.T) {
	logger := &captureLogger{}
	sender := NewLocalSender(logger)

	if err := sender.Send(context.Background(), PasswordReset("demo@example.com", "Demo")); err != nil {
		t.Fatal(err)
	}
	if len(logger.lines) != 1 || !strings.Contains(logger.lines[0], "to=demo@example.com") {
		t.Fatalf("unexpected log lines %v", logger.lines)
	}
}

func TestPasswordReset(t *testing.T) {
	msg := PasswordReset("demo@example.com", "Demo")
	if msg.To != "demo@example.com" || msg.Subject == "" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !strings.HasPrefix(msg.Text, "Hello Demo,") {
		t.Errorf("unexpected greeting in %q", msg.Text)
	}

	if got := PasswordReset("x@example.com", " ").Text; !strings.HasPrefix(got, "Hello,") {
		t.Errorf("expected generic greeting, got %q", got)
	}
}

func TestResendSender(t *testing.T) {
	var got resendRequest
	var idempotencyKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer re_test" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"statusCode":401,"name":"missing_api_key","message":"bad key"}`))
			return
		}
		idempotencyKey = r.Header.Get("Idempotency-Key")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	sender := NewResendSender(ResendConfig{APIKey: "re_test", From: "Incident Hub <hub@example.com>", Endpoint: srv.URL})
	if err := sender.Send(context.Background(), Message{ID: "reset-42", To: "a@example.com", Subject: "Hi", Text: "Body", Category: "password_reset"}); err != nil {
		t.Fatal(err)
	}
	if len(got.To) != 1 || got.To[0] != "a@example.com" || got.Subject != "Hi" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0].Value != "password_reset" {
		t.Fatalf("expected category tag, got %+v", got.Tags)
	}
	if idempotencyKey != "reset-42" {
		t.Fatalf("expected Idempotency-Key from message id, got %q", idempotencyKey)
	}

	bad := NewResendSender(ResendConfig{APIKey: "wrong", Endpoint: srv.URL})
	err := bad.Send(context.Background(), Message{To: "a@example.com"})
	if err == nil || !strings.Contains(err.Error(), "missing_api_key") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	raw := buildMessage("Hub <hub@example.com>", Message{
		ID:       "m-1",
		To:       "a@example.com\r\nBcc: x@evil",
		Subject:  "Hi\nthere",
		Text:     "Body",
		Category: "password_reset",
	}, now)

	if strings.Contains(raw, "\r\nBcc:") {
		t.Fatalf("header injection not stripped: %q", raw)
	}
	if !strings.Contains(raw, "Subject: Hi there\r\n") {
		t.Errorf("unexpected subject in %q", raw)
	}
	if !strings.HasSuffix(raw, "\r\n\r\nBody") {
		t.Errorf("expected blank line before body, got %q", raw)
	}
	for _, want := range []string{
		"Message-ID: <m-1@example.com>\r\n",
		"Date: Sat, 14 Mar 2026 09:30:00 +0000\r\n",
		"X-Category: password_reset\r\n",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("expected %q in %q", want, raw)
		}
	}
}

func TestBuildMessageEncoding(t *testing.T) {
	raw := buildMessage("not-an-address", Message{ID: "m-2", To: "a@example.com", Subject: "Отчёт принят", Text: "line1\nline2"}, time.Now())

	if !strings.Contains(raw, "Subject: =?utf-8?q?") {
		t.Errorf("expected Q-encoded subject, got %q", raw)
	}
	if !strings.Contains(raw, "Message-ID: <m-2@localhost>") {
		t.Errorf("expected localhost message id, got %q", raw)
	}
	if !strings.HasSuffix(raw, "line1\r\nline2") {
		t.Errorf("expected CRLF body, got %q", raw)
	}
}

func TestEnvelopeAddress(t *testing.T) {
	addr, err := envelopeAddress("Incident Hub <no-reply@example.com>")
	if err != nil || addr != "no-reply@example.com" {
		t.Fatalf("got %q, %v", addr, err)
	}
	if _, err := envelopeAddress("not an address"); err == nil {
		t.Fatal("expected error")
	}
}
