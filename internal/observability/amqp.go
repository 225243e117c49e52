package observability

import (
	"context"

	"go.uber.org/zap"

	"livechat-service/internal/logger"
)

// Publisher is the broker side of lifecycle event publishing.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

var defaultPublisher Publisher

func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent sends an event through the configured publisher. Failures are counted and logged, never returned to
// callers that only report side effects.
func PublishEvent(ctx context.Context, routingKey string, event EventEnvelope) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.Publish(ctx, routingKey, event)
	if err != nil {
		IncAMQPPublishError()
		logger.Log.Warn("event publish failed",
			zap.String("routing_key", routingKey),
			zap.String("event_name", event.EventName),
			zap.Error(err),
		)
	}
	return err
}
