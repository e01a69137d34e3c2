package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// resendMailer sends through the Resend API using the per-message credential.
type resendMailer struct{}

// NewResendMailer builds the production mail transport.
func NewResendMailer() Mailer {
	return &resendMailer{}
}

func (m *resendMailer) Send(ctx context.Context, msg Message) error {
	if msg.Credential == "" {
		return errors.New("missing sender credential")
	}

	client := resend.NewClient(msg.Credential)
	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}
	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	_, err := client.Emails.SendWithContext(ctx, params)
	return err
}
