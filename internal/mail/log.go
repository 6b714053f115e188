package mail

import (
	"context"

	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/model"
)

var _ model.MailSender = (*LogSender)(nil)

// LogSender writes mail to the log instead of delivering it. Used when no
// SMTP host is configured, typically in development.
type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(logger *logger.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("Mail: delivery disabled, logging instead",
		"to", to,
		"subject", subject,
		"body", body)
	return nil
}
