package mail

import "context"

// noopMailer drops every message. Used when outbound mail is disabled.
type noopMailer struct{}

// NewNoopMailer builds a mailer that silently discards messages.
func NewNoopMailer() Mailer {
	return &noopMailer{}
}

func (noopMailer) Send(_ context.Context, _ Message) error {
	return nil
}
