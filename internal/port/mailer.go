package port

import "context"

// EmailMessage is a rendered outbound mail.
type EmailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends transactional mail through an external provider.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}
