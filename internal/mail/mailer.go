package mail

import "context"

// Message is one outbound mail. Credential is the sender's own outbound-send
// credential: every supervisor/technician sends from their own mailbox, so the
// credential travels with the message rather than living in config.
type Message struct {
	Credential string
	FromName   string
	From       string
	To         string
	Subject    string
	HTML       string
}

// Mailer is the outbound mail transport boundary. Implementations are
// best-effort; callers treat failures as warnings, never as fatal.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
