package notify

import (
	"context"
	"log/slog"
)

// Channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Message is one outbound notification.
type Message struct {
	Channel   string
	Recipient string
	Subject   string
	Body      string
}

// Sender delivers messages over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// LogSender only logs messages. It stands in for a channel that is not
// configured.
type LogSender struct {
	channel string
	logger  *slog.Logger
}

// NewLogSender creates a log-only sender for the given channel.
func NewLogSender(channel string, logger *slog.Logger) *LogSender {
	return &LogSender{channel: channel, logger: logger}
}

// Name returns the name of this sender.
func (s *LogSender) Name() string {
	return "log-" + s.channel
}

// Send logs the message and always succeeds.
func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	s.logger.InfoContext(ctx, "notification not delivered, channel not configured",
		slog.String("channel", s.channel),
		slog.String("recipient", msg.Recipient),
		slog.String("subject", msg.Subject),
	)
	return nil
}
