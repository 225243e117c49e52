package ws

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"livechat-service/internal/models"
	"livechat-service/internal/observability"
	"livechat-service/internal/services"
)

// Hub maps visitor and agent ids to their live relay connection and tracks which two parties take part in
// each active session. Delivery is best effort: a party without a connection misses the event.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	visitors map[string]*Client
	agents   map[string]*Client
	sessions map[int64]sessionParties
	closed   bool
	log      *zap.Logger
}

type sessionParties struct {
	visitorID string
	agentID   string
}

var _ services.Notifier = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		visitors: make(map[string]*Client),
		agents:   make(map[string]*Client),
		sessions: make(map[int64]sessionParties),
		log:      log.Named("hub"),
	}
}

func (h *Hub) partiesFor(role Role) map[string]*Client {
	if role == RoleAgent {
		return h.agents
	}
	return h.visitors
}

// Connect registers c under its party id. A newer connection for the same id replaces the older mapping;
// the older connection stays open but is no longer reachable by id.
func (h *Hub) Connect(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	parties := h.partiesFor(c.info.Role)
	if prev, ok := parties[c.info.PartyID]; ok && prev != c {
		h.log.Debug("relay connection replaced",
			zap.String("role", string(c.info.Role)), zap.String("party_id", c.info.PartyID), zap.String("prev_conn_id", prev.info.ConnID))
	}
	parties[c.info.PartyID] = c
	return true
}

// Disconnect forgets c. The id mapping is only removed if it still points at c.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	parties := h.partiesFor(c.info.Role)
	if current, ok := parties[c.info.PartyID]; ok && current == c {
		delete(parties, c.info.PartyID)
	}
}

func (h *Hub) lookup(role Role, partyID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.partiesFor(role)[partyID]
}

func (h *Hub) SendToVisitor(visitorID string, payload any) bool {
	return h.sendTo(RoleVisitor, visitorID, payload)
}

func (h *Hub) SendToAgent(agentID string, payload any) bool {
	return h.sendTo(RoleAgent, agentID, payload)
}

func (h *Hub) sendTo(role Role, partyID string, payload any) bool {
	data, err := encodePayload(payload)
	if err != nil {
		h.log.Error("failed to encode relay payload", zap.String("role", string(role)), zap.Error(err))
		return false
	}
	c := h.lookup(role, partyID)
	if c == nil {
		h.miss(role, partyID)
		return false
	}
	return h.deliver(c, data)
}

// BroadcastToAgents writes payload to every connected agent and reports how many accepted it.
func (h *Hub) BroadcastToAgents(payload any) int {
	data, err := encodePayload(payload)
	if err != nil {
		h.log.Error("failed to encode broadcast payload", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.agents))
	for _, c := range h.agents {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if h.deliver(c, data) {
			delivered++
		}
	}
	return delivered
}

// TrackSession records the two participants of an active session.
func (h *Hub) TrackSession(session models.ChatSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[session.ID] = sessionParties{visitorID: session.UserID, agentID: session.SupportUserID}
}

// UntrackSession forgets a session's participants.
func (h *Hub) UntrackSession(sessionID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

// BroadcastToSession writes payload to the visitor and agent of a tracked session only.
func (h *Hub) BroadcastToSession(sessionID int64, payload any) int {
	h.mu.RLock()
	parties, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		h.log.Debug("broadcast to untracked session", zap.Int64("session_id", sessionID))
		return 0
	}

	delivered := 0
	if h.SendToVisitor(parties.visitorID, payload) {
		delivered++
	}
	if h.SendToAgent(parties.agentID, payload) {
		delivered++
	}
	return delivered
}

// IsConnected reports whether partyID currently has a live connection in role.
func (h *Hub) IsConnected(role Role, partyID string) bool {
	return h.lookup(role, partyID) != nil
}

// AgentIDs lists connected agents in id order.
func (h *Hub) AgentIDs() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.agents))
	for id := range h.agents {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Close drops every connection. Further Connect calls are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.visitors = make(map[string]*Client)
	h.agents = make(map[string]*Client)
	h.sessions = make(map[int64]sessionParties)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// deliver queues data on c. A connection that cannot keep up is dropped.
func (h *Hub) deliver(c *Client, data []byte) bool {
	if c.enqueue(data) {
		return true
	}
	h.log.Warn("dropping slow relay connection",
		zap.String("role", string(c.info.Role)), zap.String("party_id", c.info.PartyID), zap.String("conn_id", c.info.ConnID))
	h.drop(c)
	return false
}

func (h *Hub) drop(c *Client) {
	h.Disconnect(c)
	c.close()
	observability.IncWSEvent(string(c.info.Role), "ws_drop")
}

func (h *Hub) miss(role Role, partyID string) {
	observability.IncDeliveryMiss(string(role))
	h.log.Debug("party not connected", zap.String("role", string(role)), zap.String("party_id", partyID))
}
