package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vuln-feed/internal/domain/entity"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	Timeout time.Duration
}

// SlackNotifier posts digests to a Slack Incoming Webhook using Block Kit.
type SlackNotifier struct {
	hook *webhook
}

// NewSlackNotifier creates a SlackNotifier limited to 1 message per second,
// the Incoming Webhook allowance.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{hook: newWebhook("Slack", config.WebhookURL, config.Timeout, 1.0, 1)}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks"`
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`
	Text     *SlackTextObject  `json:"text,omitempty"`
	Elements []SlackTextObject `json:"elements,omitempty"`
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	maxSectionTextLength = 3000
	maxContextTextLength = 2000
)

// buildBlockKitPayload renders a header section followed by one section
// per record (linked headline plus source and date) and a context block
// counting the records left out.
func buildBlockKitPayload(vulns []*entity.Vuln) SlackWebhookPayload {
	title := digestTitle(len(vulns))
	blocks := []SlackBlock{{
		Type: "section",
		Text: &SlackTextObject{Type: "mrkdwn", Text: "*" + title + "*"},
	}}

	for i, v := range vulns {
		if i == maxDigestItems {
			blocks = append(blocks, SlackBlock{
				Type: "context",
				Elements: []SlackTextObject{{
					Type: "mrkdwn",
					Text: fmt.Sprintf("and %d more", len(vulns)-maxDigestItems),
				}},
			})
			break
		}

		line := slackEscape(headline(v))
		if ref := firstLink(v.Reference()); ref != "" {
			line = fmt.Sprintf("<%s|%s>", ref, line)
		}
		text := fmt.Sprintf("*%s*\n%s • %s", line, slackEscape(v.Source()), v.Date())
		if v.Description() != "" {
			text += "\n" + slackEscape(v.Description())
		}
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackTextObject{Type: "mrkdwn", Text: truncate(text, maxSectionTextLength, "...")},
		})
	}

	return SlackWebhookPayload{Text: truncate(title, maxContextTextLength, "..."), Blocks: blocks}
}

// slackEscape escapes the three characters mrkdwn treats as control.
func slackEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// firstLink returns the first http(s) URL of a comma-separated reference list.
func firstLink(refs string) string {
	for _, r := range strings.Split(refs, ",") {
		r = strings.TrimSpace(r)
		if strings.HasPrefix(r, "http://") || strings.HasPrefix(r, "https://") {
			return r
		}
	}
	return ""
}

// NotifyVulns implements Notifier.
func (s *SlackNotifier) NotifyVulns(ctx context.Context, vulns []*entity.Vuln) error {
	if len(vulns) == 0 {
		return nil
	}
	slog.Info("starting Slack notification",
		slog.String("request_id", RequestIDFromContext(ctx)),
		slog.Int("records", len(vulns)))
	return s.hook.post(ctx, buildBlockKitPayload(vulns))
}
