// Package notifier delivers new-vulnerability digests to chat webhooks.
// Each notifier owns its rate limiter and retries transient failures;
// Discord and Slack differ only in payload shape.
package notifier

import (
	"context"

	"vuln-feed/internal/domain/entity"
)

// Notifier sends one digest message listing vulns.
type Notifier interface {
	// NotifyVulns posts a digest of vulns. An empty slice sends nothing.
	// The error is non-nil when the message could not be delivered after
	// all retry attempts.
	NotifyVulns(ctx context.Context, vulns []*entity.Vuln) error
}
