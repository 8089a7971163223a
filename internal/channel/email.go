package channel

import (
	"context"
	"fmt"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/port"
)

// Email delivers the rendered notification through the mail sender
// collaborator. It never returns skipped: the preference gate decides whether
// email runs at all, so every invocation here is a real attempt.
type Email struct {
	users  port.UserStore
	mailer port.Mailer
}

// NewEmail builds the email channel.
func NewEmail(users port.UserStore, mailer port.Mailer) *Email {
	return &Email{users: users, mailer: mailer}
}

func (c *Email) Name() domain.ChannelName { return domain.ChannelEmail }

func (c *Email) NeedsContent() bool { return true }

func (c *Email) Deliver(ctx context.Context, event domain.NotificationEvent, content Content) domain.ChannelResult {
	addr, err := c.users.GetEmail(ctx, event.RecipientUserID)
	if err != nil {
		return failedResult(c.Name(), fmt.Errorf("resolve email address: %w", err))
	}
	if addr == "" {
		return failedResult(c.Name(), fmt.Errorf("user %s has no email address on file", event.RecipientUserID))
	}

	msg := port.EmailMessage{
		To:      addr,
		Subject: content.Subject,
		HTML:    content.Body,
	}
	if err := c.mailer.Send(ctx, msg); err != nil {
		return failedResult(c.Name(), fmt.Errorf("send mail: %w", err))
	}
	return deliveredResult(c.Name())
}
