package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/incident-hub/internal/config"
	"github.com/google/uuid"
)

// Message is a plain-text email.
type Message struct {
	// ID is used as Message-ID and as the Resend idempotency key.
	// Senders fill it in when empty.
	ID       string
	To       string
	Subject  string
	Text     string
	Category string
}

func (m Message) withID() Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return m
}

// Sender delivers plain-text email messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Logger interface {
	Printf(format string, v ...any)
}

// NewSenderFromConfig выбирает отправителя по EMAIL_SENDER_MODE.
// По умолчанию письма только пишутся в лог.
func NewSenderFromConfig(cfg *config.Config, logger Logger) (Sender, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.EmailSenderMode))
	if mode == "" {
		mode = "local"
	}

	switch mode {
	case "local":
		return NewLocalSender(logger), nil
	case "smtp":
		if strings.TrimSpace(cfg.SMTPHost) == "" {
			return nil, errors.New("SMTP_HOST is required for EMAIL_SENDER_MODE=smtp")
		}
		if cfg.SMTPPort <= 0 {
			return nil, errors.New("SMTP_PORT must be greater than 0 for EMAIL_SENDER_MODE=smtp")
		}
		if strings.TrimSpace(cfg.SMTPFrom) == "" {
			return nil, errors.New("SMTP_FROM is required for EMAIL_SENDER_MODE=smtp")
		}
		if strings.TrimSpace(cfg.SMTPUsername) != "" && strings.TrimSpace(cfg.SMTPPassword) == "" {
			return nil, errors.New("SMTP_PASSWORD is required when SMTP_USERNAME is set")
		}

		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			UseTLS:   cfg.SMTPUseTLS,
		}), nil
	case "resend":
		if strings.TrimSpace(cfg.ResendAPIKey) == "" {
			return nil, errors.New("RESEND_API_KEY is required for EMAIL_SENDER_MODE=resend")
		}
		return NewResendSender(ResendConfig{
			APIKey: cfg.ResendAPIKey,
			From:   cfg.ResendFrom,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported EMAIL_SENDER_MODE=%q", mode)
	}
}

// PasswordReset builds the reset-instructions mail for an account.
func PasswordReset(to, firstName string) Message {
	greeting := "Hello"
	if name := strings.TrimSpace(firstName); name != "" {
		greeting = "Hello " + name
	}

	return Message{
		To:       to,
		Category: "password_reset",
		Subject:  "Reset your Incident Hub password",
		Text: greeting + ",\n\n" +
			"We received a request to reset the password for your Incident Hub account.\n" +
			"Open the app and follow the instructions to choose a new password.\n\n" +
			"If you did not request this, you can ignore this email.\n",
	}
}
