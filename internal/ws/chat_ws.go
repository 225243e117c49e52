package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"livechat-service/internal/auth"
	"livechat-service/internal/middleware"
	"livechat-service/internal/observability"
	"livechat-service/internal/presence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ChannelHandler serves the visitor and agent relay channels.
type ChannelHandler struct {
	hub        *Hub
	relay      *Relay
	verifier   auth.TokenVerifier
	presence   presence.Store
	sendBuffer int
	log        *zap.Logger

	mu       sync.Mutex
	draining bool
	pumps    sync.WaitGroup
}

// NewChannelHandler constructs a ChannelHandler.
func NewChannelHandler(hub *Hub, relay *Relay, verifier auth.TokenVerifier, store presence.Store, sendBuffer int, log *zap.Logger) *ChannelHandler {
	return &ChannelHandler{
		hub:        hub,
		relay:      relay,
		verifier:   verifier,
		presence:   store,
		sendBuffer: sendBuffer,
		log:        log.Named("ws"),
	}
}

// Visitor serves /chat/ws/:user_id. Visitors are anonymous; their id was issued when the request was created.
func (h *ChannelHandler) Visitor(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	h.serve(c, RoleVisitor, userID)
}

// Agent serves /chat/ws/support/:support_user_id. The bearer token, from the Authorization header or the
// token query parameter, must belong to that agent.
func (h *ChannelHandler) Agent(c *gin.Context) {
	agentID := strings.TrimSpace(c.Param("support_user_id"))
	if agentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid support user id"})
		return
	}

	token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	principal, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if principal.ID != agentID {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not belong to this agent"})
		return
	}
	h.serve(c, RoleAgent, agentID)
}

func (h *ChannelHandler) serve(c *gin.Context, role Role, partyID string) {
	ctx, span := otel.Tracer("livechat-service/ws").Start(c.Request.Context(), "ws.handshake")
	span.SetAttributes(attribute.String("ws.role", string(role)), attribute.String("ws.party_id", partyID))
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.String("role", string(role)), zap.Error(err))
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		Role:        role,
		PartyID:     partyID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.mu.Lock()
	if h.draining {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.pumps.Add(2)
	h.mu.Unlock()

	client := newClient(conn, info, h.sendBuffer)
	if !h.hub.Connect(client) {
		h.pumps.Add(-2)
		_ = conn.Close()
		return
	}

	// The request context ends with the handshake; the connection outlives it.
	connCtx := context.WithoutCancel(ctx)
	observability.IncWSActive(string(role))
	publishWSEvent(connCtx, info, "ws_connect", "")
	if role == RoleAgent {
		h.markOnline(connCtx, info)
	}
	h.log.Info("relay connected", zap.String("role", string(role)), zap.String("party_id", partyID), zap.String("conn_id", info.ConnID))

	go func() {
		defer h.pumps.Done()
		client.writePump(func(err error) {
			h.log.Debug("relay write failed", zap.String("conn_id", info.ConnID), zap.Error(err))
			h.hub.Disconnect(client)
			client.close()
		})
	}()

	go func() {
		defer h.pumps.Done()
		err := client.readPump(func(raw []byte) {
			h.relay.Handle(connCtx, client, raw)
		})

		h.hub.Disconnect(client)
		client.close()
		observability.DecWSActive(string(role))

		reason := ""
		if err != nil {
			reason = err.Error()
		}
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			publishWSEvent(connCtx, info, "ws_error", reason)
		}
		publishWSEvent(connCtx, info, "ws_disconnect", reason)
		if role == RoleAgent && !h.hub.IsConnected(RoleAgent, partyID) {
			h.markOffline(connCtx, partyID)
		}
		h.log.Info("relay disconnected", zap.String("role", string(role)), zap.String("party_id", partyID), zap.String("conn_id", info.ConnID))
	}()
}

// Drain refuses further connections and waits until every open one has finished its teardown, including
// the presence update, or until ctx is done. Close the hub first so the open connections end.
func (h *ChannelHandler) Drain(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *ChannelHandler) markOnline(ctx context.Context, info ConnInfo) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := h.presence.MarkOnline(ctx, presence.Agent{AgentID: info.PartyID, ConnectedAt: info.ConnectedAt}); err != nil {
		h.log.Warn("failed to mark agent online", zap.String("agent_id", info.PartyID), zap.Error(err))
	}
}

func (h *ChannelHandler) markOffline(ctx context.Context, agentID string) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := h.presence.MarkOffline(ctx, agentID); err != nil {
		h.log.Warn("failed to mark agent offline", zap.String("agent_id", agentID), zap.Error(err))
	}
}
