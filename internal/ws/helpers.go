package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"livechat-service/internal/models"
	"livechat-service/internal/observability"
)

func newConnID() string {
	return uuid.NewString()
}

// encodePayload passes raw frames through untouched and marshals everything else.
func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}

func errorFrame(message string) []byte {
	data, _ := json.Marshal(models.Event{Type: models.EventError, Message: message})
	return data
}

func wsRoutingKey(role Role) string {
	if role == RoleAgent {
		return "ws_events.agents"
	}
	return "ws_events.visitors"
}

// publishWSEvent counts a connection event and emits it on the broker.
func publishWSEvent(ctx context.Context, info ConnInfo, event, reason string) {
	observability.IncWSEvent(string(info.Role), event)

	env := observability.NewEventEnvelope(ctx, "ws_events", event, map[string]any{
		"ws": map[string]any{
			"role":        info.Role,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]any{
			"party_id": info.PartyID,
			"ip":       info.IP,
		},
	})
	if env.RequestID == "" {
		env.RequestID = info.RequestID
	}
	if env.TraceID == "" {
		env.TraceID = info.TraceID
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey(info.Role), env)
}
