package services

import (
	"time"

	"livechat-service/internal/models"
)

// Notifier delivers events to connected parties. Delivery is best effort: a party that is not connected
// simply misses the event, and the bool/int results only report what was written.
type Notifier interface {
	SendToVisitor(visitorID string, payload any) bool
	SendToAgent(agentID string, payload any) bool
	BroadcastToAgents(payload any) int
	TrackSession(session models.ChatSession)
	BroadcastToSession(sessionID int64, payload any) int
	UntrackSession(sessionID int64)
}

// Scheduler runs a request's timeout check once at a given instant.
type Scheduler interface {
	Schedule(requestID int64, at time.Time)
	Cancel(requestID int64)
}

// Routing keys for lifecycle events published to the broker.
const (
	routingRequestCreated  = "chat.request.created"
	routingRequestAccepted = "chat.request.accepted"
	routingRequestRejected = "chat.request.rejected"
	routingRequestCanceled = "chat.request.canceled"
	routingRequestTimeout  = "chat.request.timeout"
	routingSessionEnded    = "chat.session.ended"
	routingFeedback        = "chat.feedback.submitted"
	routingAdminNotice     = "notifications.chat_request"
	eventTypeChatLifecycle = "chat_events"
	eventTypeNotification  = "notifications"
)
