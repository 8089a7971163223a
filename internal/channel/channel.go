// Package channel contains the delivery channel implementations the
// dispatcher fans out to: realtime socket push, browser push and email.
package channel

import (
	"context"
	"time"

	"github.com/servicedeskhq/notify/internal/domain"
)

// Content is a rendered subject/body pair shared by the content-requiring
// channels. The realtime channel ignores it and sends a minimal event frame.
type Content struct {
	Subject string
	Body    string
}

// Channel delivers one notification event through one mechanism. Deliver must
// never panic or return: channel-internal errors become a failed result, so a
// broken provider cannot poison sibling channels in the fan-out.
type Channel interface {
	Name() domain.ChannelName
	// NeedsContent reports whether Deliver requires a rendered template.
	NeedsContent() bool
	Deliver(ctx context.Context, event domain.NotificationEvent, content Content) domain.ChannelResult
}

func failedResult(name domain.ChannelName, err error) domain.ChannelResult {
	return domain.ChannelResult{
		Channel:     name,
		Status:      domain.StatusFailed,
		Error:       err.Error(),
		AttemptedAt: time.Now().UTC(),
	}
}

func skippedResult(name domain.ChannelName) domain.ChannelResult {
	return domain.ChannelResult{
		Channel:     name,
		Status:      domain.StatusSkipped,
		AttemptedAt: time.Now().UTC(),
	}
}

func deliveredResult(name domain.ChannelName) domain.ChannelResult {
	return domain.ChannelResult{
		Channel:     name,
		Status:      domain.StatusDelivered,
		AttemptedAt: time.Now().UTC(),
	}
}
