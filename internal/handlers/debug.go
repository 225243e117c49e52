package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"livechat-service/internal/auth"
	"livechat-service/internal/telemetry"
)

// TokenIssuer mints bearer tokens for local testing.
type TokenIssuer interface {
	Issue(p auth.Principal, ttl time.Duration) (string, error)
}

type debugTokenRequest struct {
	ID      string `json:"id" binding:"required,max=128"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, issuer TokenIssuer, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		audit(c, emitter, "debug.audit_test", "audit test", nil)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/debug/token", func(c *gin.Context) {
		var req debugTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		token, err := issuer.Issue(auth.Principal{ID: req.ID, Name: req.Name, Email: req.Email, IsAdmin: req.IsAdmin}, time.Hour)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer", "expires_in": int(time.Hour.Seconds())})
	})
}
