// Package notify dispatches new-vulnerability digests to every enabled
// delivery channel in the background, isolating slow or failing channels
// behind a bounded worker pool and per-channel circuit breakers.
package notify

import (
	"context"

	"vuln-feed/internal/domain/entity"
)

// Channel is one notification delivery channel (Discord, Slack, ...).
//
// Implementations must be safe for concurrent use and respect context
// cancellation. Rate limiting and retries are the channel's own concern.
type Channel interface {
	// Name identifies the channel in logs, metrics and health output.
	Name() string

	// IsEnabled reports whether the channel receives notifications.
	IsEnabled() bool

	// Send delivers one digest of vulns.
	//
	// Returns:
	//   - ErrChannelDisabled: If Send() called on disabled channel
	//   - ErrEmptyDigest: If vulns is empty
	//   - Network/API errors: Wrapped with context
	Send(ctx context.Context, vulns []*entity.Vuln) error
}
