package notifier

import (
	"context"
	"log/slog"
	"time"

	"vuln-feed/internal/domain/entity"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	Enabled bool

	// WebhookURL is the Discord webhook URL (includes authentication token)
	WebhookURL string

	Timeout time.Duration
}

// DiscordNotifier posts digests to a Discord webhook, one embed per record.
type DiscordNotifier struct {
	hook *webhook
}

// NewDiscordNotifier creates a DiscordNotifier limited to 30 requests per
// minute with a burst of 3.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{hook: newWebhook("Discord", config.WebhookURL, config.Timeout, 0.5, 3)}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Content string         `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	URL         string             `json:"url,omitempty"`
	Color       int                `json:"color"`
	Footer      DiscordEmbedFooter `json:"footer"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	maxTitleLength       = 256
	maxDescriptionLength = 4096

	// embed colours by severity
	colorCritical = 0xED4245
	colorHigh     = 0xFEE75C
	colorDefault  = 0x5865F2
)

// buildEmbedPayload renders up to maxDigestItems embeds, Discord's
// per-message limit, with the remainder counted in the content line.
func buildEmbedPayload(vulns []*entity.Vuln) DiscordWebhookPayload {
	content := digestTitle(len(vulns))
	if len(vulns) > maxDigestItems {
		content += " (showing first 10)"
	}

	embeds := make([]DiscordEmbed, 0, maxDigestItems)
	for i, v := range vulns {
		if i == maxDigestItems {
			break
		}
		embeds = append(embeds, DiscordEmbed{
			Title:       truncate(headline(v), maxTitleLength, "..."),
			Description: truncate(v.Description(), maxDescriptionLength, "..."),
			URL:         firstLink(v.Reference()),
			Color:       embedColor(v.Severity()),
			Footer:      DiscordEmbedFooter{Text: v.Source() + " • " + v.Date()},
		})
	}
	return DiscordWebhookPayload{Content: content, Embeds: embeds}
}

func embedColor(s entity.Severity) int {
	switch s.Level {
	case entity.LevelCritical:
		return colorCritical
	case entity.LevelHigh:
		return colorHigh
	default:
		return colorDefault
	}
}

// NotifyVulns implements Notifier.
func (d *DiscordNotifier) NotifyVulns(ctx context.Context, vulns []*entity.Vuln) error {
	if len(vulns) == 0 {
		return nil
	}
	slog.Info("starting Discord notification",
		slog.String("request_id", RequestIDFromContext(ctx)),
		slog.Int("records", len(vulns)))
	return d.hook.post(ctx, buildEmbedPayload(vulns))
}
