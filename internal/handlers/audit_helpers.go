package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"livechat-service/internal/middleware"
	"livechat-service/internal/observability"
	"livechat-service/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader(observability.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func actorFromContext(c *gin.Context) *string {
	if principal, ok := middleware.PrincipalFrom(c); ok && principal.ID != "" {
		id := principal.ID
		return &id
	}
	return nil
}

func audit(c *gin.Context, emitter *telemetry.AuditEmitter, action, text string, attrs map[string]string) {
	emitter.Emit(c.Request.Context(), "INFO", action, text, requestIDFromContext(c), actorFromContext(c), attrs)
}
