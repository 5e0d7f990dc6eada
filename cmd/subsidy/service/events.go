package service

import (
	"context"

	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/queue"
)

// publishEvent emits a decision event after the decision is stored.
// Publish failures are logged; the stored decision stands.
func publishEvent(ctx context.Context, events *queue.Publisher, log *logger.Logger, topic, efn string, payload any) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, topic, efn, payload); err != nil {
		log.Warn("failed to publish event", "topic", topic, "efn", efn, "error", err)
	}
}
