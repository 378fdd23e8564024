package notification

import (
	"context"
	"log/slog"

	"github.com/bankops/caseflow/pkg/models"
)

// ChannelSender delivers one formatted notification to one target on one
// channel. Real gateway integrations plug in here; the defaults log the
// delivery and succeed.
type ChannelSender interface {
	Channel() models.Channel
	Send(ctx context.Context, target string, n *models.Notification) error
}

// DefaultSenders returns the stub sender set for every supported channel.
func DefaultSenders(logger *slog.Logger) map[models.Channel]ChannelSender {
	return map[models.Channel]ChannelSender{
		models.ChannelEmail: &logSender{channel: models.ChannelEmail, logger: logger},
		models.ChannelSMS:   &logSender{channel: models.ChannelSMS, logger: logger},
		models.ChannelPush:  &logSender{channel: models.ChannelPush, logger: logger},
		models.ChannelInApp: &inAppSender{},
	}
}

type logSender struct {
	channel models.Channel
	logger  *slog.Logger
}

func (s *logSender) Channel() models.Channel {
	return s.channel
}

func (s *logSender) Send(ctx context.Context, target string, n *models.Notification) error {
	s.logger.InfoContext(ctx, "Delivering notification",
		"channel", s.channel,
		"target", target,
		"notification_id", n.ID,
		"title", n.Title,
	)

	return nil
}

// inAppSender is satisfied by the persisted notification row itself; the admin
// UI reads the inbox straight from the data store.
type inAppSender struct{}

func (s *inAppSender) Channel() models.Channel {
	return models.ChannelInApp
}

func (s *inAppSender) Send(_ context.Context, _ string, _ *models.Notification) error {
	return nil
}
