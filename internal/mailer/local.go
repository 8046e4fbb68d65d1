package mailer

import (
	"context"
	"log"
)

// LocalSender prints messages to the server log instead of sending them.
type LocalSender struct {
	logger Logger
}

func NewLocalSender(logger Logger) *LocalSender {
	if logger == nil {
		logger = log.Default()
	}
	return &LocalSender{logger: logger}
}

func (s *LocalSender) Send(ctx context.Context, msg Message) error {
	s.logger.Printf("INFO mailer.local: to=%s subject=%q body=%q", msg.To, msg.Subject, msg.Text)
	return nil
}
