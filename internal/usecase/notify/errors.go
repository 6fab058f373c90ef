package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrChannelDisabled indicates that Send() was called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrEmptyDigest indicates that Send() was called with no records.
	ErrEmptyDigest = errors.New("no records to notify")

	// ErrNotificationDropped indicates that a notification was dropped
	// because no worker slot became free in time.
	ErrNotificationDropped = errors.New("notification dropped due to pool saturation")
)
