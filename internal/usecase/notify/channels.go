package notify

import (
	"context"

	"vuln-feed/internal/domain/entity"
	"vuln-feed/internal/infra/notifier"
)

// NotifierChannel adapts an infrastructure Notifier to the Channel
// interface. Disabled channels hold a NoOpNotifier.
type NotifierChannel struct {
	name     string
	notifier notifier.Notifier
	enabled  bool
}

// NewSlackChannel creates the "slack" channel.
func NewSlackChannel(config notifier.SlackConfig) *NotifierChannel {
	if !config.Enabled {
		return &NotifierChannel{name: "slack", notifier: notifier.NewNoOpNotifier()}
	}
	return &NotifierChannel{name: "slack", notifier: notifier.NewSlackNotifier(config), enabled: true}
}

// NewDiscordChannel creates the "discord" channel.
func NewDiscordChannel(config notifier.DiscordConfig) *NotifierChannel {
	if !config.Enabled {
		return &NotifierChannel{name: "discord", notifier: notifier.NewNoOpNotifier()}
	}
	return &NotifierChannel{name: "discord", notifier: notifier.NewDiscordNotifier(config), enabled: true}
}

// Name implements Channel.
func (c *NotifierChannel) Name() string { return c.name }

// IsEnabled implements Channel.
func (c *NotifierChannel) IsEnabled() bool { return c.enabled }

// Send implements Channel.
func (c *NotifierChannel) Send(ctx context.Context, vulns []*entity.Vuln) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if len(vulns) == 0 {
		return ErrEmptyDigest
	}
	return c.notifier.NotifyVulns(ctx, vulns)
}
