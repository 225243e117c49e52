package ws

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"livechat-service/internal/apperrors"
	"livechat-service/internal/models"
	"livechat-service/internal/validator"
)

// MessageAppender persists a relayed message and returns the session it belongs to.
type MessageAppender interface {
	AppendMessage(ctx context.Context, sessionID int64, senderType models.SenderType, senderID, text, kind string) (models.ChatMessage, models.ChatSession, error)
}

// Relay persists chat_message envelopes and forwards them, unchanged, to the session counterpart.
type Relay struct {
	hub      *Hub
	messages MessageAppender
	log      *zap.Logger
}

func NewRelay(hub *Hub, messages MessageAppender, log *zap.Logger) *Relay {
	return &Relay{hub: hub, messages: messages, log: log.Named("relay")}
}

// Handle processes one inbound frame from c. Failures are reported to c only.
func (r *Relay) Handle(ctx context.Context, c *Client, raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.reject(c, "invalid message format")
		return
	}
	if env.Type != models.EventChatMessage {
		r.log.Debug("ignoring envelope", zap.String("type", env.Type), zap.String("conn_id", c.info.ConnID))
		return
	}
	if err := validator.Validate(env); err != nil {
		r.reject(c, err.Error())
		return
	}
	if !roleSends(c.info.Role, env.SenderType) {
		r.reject(c, "sender_type does not match this channel")
		return
	}
	if env.SenderID != c.info.PartyID {
		r.reject(c, "sender_id does not match this connection")
		return
	}

	_, session, err := r.messages.AppendMessage(ctx, env.SessionID, env.SenderType, env.SenderID, env.Message, env.MessageType)
	if err != nil {
		r.log.Warn("relay append failed",
			zap.Int64("session_id", env.SessionID), zap.String("sender_id", env.SenderID), zap.Error(err))
		r.reject(c, appendFailure(err))
		return
	}

	counterpart := session.Counterpart(env.SenderType)
	var delivered bool
	if env.SenderType == models.SenderUser {
		delivered = r.hub.SendToAgent(counterpart, raw)
	} else {
		delivered = r.hub.SendToVisitor(counterpart, raw)
	}
	r.log.Debug("message relayed",
		zap.Int64("session_id", session.ID), zap.String("sender_type", string(env.SenderType)), zap.Bool("delivered", delivered))
}

func (r *Relay) reject(c *Client, message string) {
	r.hub.deliver(c, errorFrame(message))
}

func roleSends(role Role, sender models.SenderType) bool {
	switch role {
	case RoleVisitor:
		return sender == models.SenderUser
	case RoleAgent:
		return sender == models.SenderSupport
	default:
		return false
	}
}

func appendFailure(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "chat session not found"
	case errors.Is(err, apperrors.ErrInvalidState):
		return "chat session has ended"
	case errors.Is(err, apperrors.ErrForbidden):
		return "not a participant of this chat session"
	default:
		return "failed to deliver message"
	}
}
