package model

import "context"

// MailSender dispatches notification mail. Callers treat delivery as
// best-effort.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
