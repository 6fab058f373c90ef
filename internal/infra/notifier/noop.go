package notifier

import (
	"context"

	"vuln-feed/internal/domain/entity"
)

// NoOpNotifier discards every digest. It stands in for a disabled channel.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier instance.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// NotifyVulns does nothing and returns nil.
func (n *NoOpNotifier) NotifyVulns(ctx context.Context, vulns []*entity.Vuln) error {
	return nil
}
