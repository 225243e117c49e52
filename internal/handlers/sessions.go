package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"livechat-service/internal/middleware"
	"livechat-service/internal/models"
	"livechat-service/internal/presence"
	"livechat-service/internal/telemetry"
)

// SessionService is the session lifecycle the session endpoints drive.
type SessionService interface {
	End(ctx context.Context, sessionID int64, actorID string, isAdmin bool) (models.ChatSession, error)
	Messages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error)
	MessagesFor(ctx context.Context, sessionID int64, partyID string, isAdmin bool) ([]models.ChatMessage, error)
	ListForAgent(ctx context.Context, agentID string) ([]models.SessionSummary, error)
	ListAll(ctx context.Context, status *models.SessionStatus) ([]models.SessionSummary, error)
	Totals(ctx context.Context) (models.SessionTotals, error)
}

// PresenceReader lists agents connected to the agent channel.
type PresenceReader interface {
	Online(ctx context.Context) ([]presence.Agent, error)
}

// SessionHandler serves session listings, transcripts and the end transition.
type SessionHandler struct {
	sessions SessionService
	presence PresenceReader
	audit    *telemetry.AuditEmitter
}

// NewSessionHandler builds a SessionHandler.
func NewSessionHandler(sessions SessionService, presence PresenceReader, audit *telemetry.AuditEmitter) *SessionHandler {
	return &SessionHandler{sessions: sessions, presence: presence, audit: audit}
}

type sessionView struct {
	ID            int64                `json:"id"`
	RequestID     int64                `json:"request_id"`
	UserID        string               `json:"user_id"`
	UserName      string               `json:"user_name"`
	UserEmail     *string              `json:"user_email"`
	SupportUserID string               `json:"support_user_id"`
	CategoryName  string               `json:"category_name"`
	Status        models.SessionStatus `json:"status"`
	StartedAt     time.Time            `json:"started_at"`
	EndedAt       *time.Time           `json:"ended_at,omitempty"`
	MessageCount  int                  `json:"message_count"`
	LastMessage   *string              `json:"last_message"`
}

func toSessionViews(list []models.SessionSummary) []sessionView {
	out := make([]sessionView, 0, len(list))
	for _, s := range list {
		name := anonymousVisitor
		if s.UserName != nil && *s.UserName != "" {
			name = *s.UserName
		}
		out = append(out, sessionView{
			ID:            s.ID,
			RequestID:     s.RequestID,
			UserID:        s.UserID,
			UserName:      name,
			UserEmail:     s.UserEmail,
			SupportUserID: s.SupportUserID,
			CategoryName:  s.CategoryName,
			Status:        s.Status,
			StartedAt:     s.StartedAt,
			EndedAt:       s.EndedAt,
			MessageCount:  s.MessageCount,
			LastMessage:   s.LastMessage,
		})
	}
	return out
}

// ListMine returns the calling agent's active sessions.
func (h *SessionHandler) ListMine(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	list, err := h.sessions.ListForAgent(c.Request.Context(), principal.ID)
	if err != nil {
		respondError(c, err, "failed to load chat sessions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": toSessionViews(list)})
}

// ListAll returns every session, optionally filtered with ?status=active|ended.
func (h *SessionHandler) ListAll(c *gin.Context) {
	var status *models.SessionStatus
	if raw := c.Query("status"); raw != "" {
		s := models.SessionStatus(raw)
		status = &s
	}
	list, err := h.sessions.ListAll(c.Request.Context(), status)
	if err != nil {
		respondError(c, err, "failed to load chat sessions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": toSessionViews(list)})
}

// Totals counts sessions by status.
func (h *SessionHandler) Totals(c *gin.Context) {
	totals, err := h.sessions.Totals(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to count chat sessions")
		return
	}
	c.JSON(http.StatusOK, totals)
}

// End closes an active session. Only its agent or an admin may do so.
func (h *SessionHandler) End(c *gin.Context) {
	sessionID, ok := parseID(c, "id")
	if !ok {
		return
	}
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	session, err := h.sessions.End(c.Request.Context(), sessionID, principal.ID, principal.IsAdmin)
	if err != nil {
		respondError(c, err, "failed to end chat session")
		return
	}

	audit(c, h.audit, "chat.session.end", "chat session ended", map[string]string{
		"session_id": strconv.FormatInt(session.ID, 10),
	})
	c.JSON(http.StatusOK, gin.H{"message": "Chat session ended", "session_id": session.ID})
}

// Messages returns a transcript to one of the session's parties or an admin.
func (h *SessionHandler) Messages(c *gin.Context) {
	sessionID, ok := parseID(c, "id")
	if !ok {
		return
	}
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	messages, err := h.sessions.MessagesFor(c.Request.Context(), sessionID, principal.ID, principal.IsAdmin)
	if err != nil {
		respondError(c, err, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": nonNilMessages(messages)})
}

// PublicMessages returns a transcript to the anonymous visitor.
func (h *SessionHandler) PublicMessages(c *gin.Context) {
	sessionID, ok := parseID(c, "id")
	if !ok {
		return
	}
	messages, err := h.sessions.Messages(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": nonNilMessages(messages)})
}

// OnlineAgents lists agents connected to the agent channel.
func (h *SessionHandler) OnlineAgents(c *gin.Context) {
	agents, err := h.presence.Online(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load online agents")
		return
	}
	if agents == nil {
		agents = []presence.Agent{}
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents, "count": len(agents)})
}

func nonNilMessages(messages []models.ChatMessage) []models.ChatMessage {
	if messages == nil {
		return []models.ChatMessage{}
	}
	return messages
}
