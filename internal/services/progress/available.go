package progress

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
)

// Available reports whether the store exposes the given event entity.
// A failed lookup (not found, no access, transport error) means the capability is absent.
func Available(ctx context.Context, store interfaces.RecordStore, eventName string, logger arbor.ILogger) bool {
	if err := store.Describe(ctx, eventName); err != nil {
		logger.Warn().
			Err(err).
			Str("event", eventName).
			Msg("Progress event does not exist or is not accessible, progress reporting disabled")
		return false
	}

	logger.Debug().Str("event", eventName).Msg("Progress event available")
	return true
}
