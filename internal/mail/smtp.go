// Package mail delivers notification mail over SMTP.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vkoshelev/identityd/internal/logger"
	"github.com/vkoshelev/identityd/internal/model"
)

var _ model.MailSender = (*SMTPSender)(nil)

// SMTPSender delivers mail through a plain SMTP relay. Transient dispatch
// failures are retried up to three attempts with a constant backoff.
type SMTPSender struct {
	addr    string
	from    string
	send    func(addr, from, to string, msg []byte) error
	backoff func() retry.Backoff
	logger  *logger.Logger
}

func NewSMTPSender(host, port, from string, logger *logger.Logger) *SMTPSender {
	return &SMTPSender{
		addr: net.JoinHostPort(host, port),
		from: from,
		send: func(addr, from, to string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, []string{to}, msg)
		},
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewConstant(2*time.Second))
		},
		logger: logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := buildMessage(s.from, to, subject, body)

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		if err := s.send(s.addr, s.from, to, msg); err != nil {
			s.logger.Warn("Mail: dispatch attempt failed",
				"to", to,
				"error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	s.logger.Info("Mail: sent",
		"to", to,
		"subject", subject)

	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from, to, subject, body,
	))
}
