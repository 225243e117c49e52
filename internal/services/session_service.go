package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"livechat-service/internal/apperrors"
	"livechat-service/internal/models"
	"livechat-service/internal/observability"
	"livechat-service/internal/repositories"
)

// SessionService manages active sessions and their append-only message log.
type SessionService struct {
	sessions repositories.SessionRepository
	messages repositories.MessageRepository
	notifier Notifier
	locks    *keyedMutex
	now      func() time.Time
	log      *zap.Logger
}

// NewSessionService builds a SessionService.
func NewSessionService(sessions repositories.SessionRepository, messages repositories.MessageRepository, notifier Notifier, log *zap.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		messages: messages,
		notifier: notifier,
		locks:    newKeyedMutex(),
		now:      time.Now,
		log:      log.Named("session_service"),
	}
}

// Get fetches a session by id.
func (s *SessionService) Get(ctx context.Context, sessionID int64) (models.ChatSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return models.ChatSession{}, fmt.Errorf("chat session %d: %w", sessionID, apperrors.ErrNotFound)
	}
	return session, err
}

// End moves an active session to ended. Only the session's agent or an admin may end it.
func (s *SessionService) End(ctx context.Context, sessionID int64, actorID string, isAdmin bool) (models.ChatSession, error) {
	current, err := s.Get(ctx, sessionID)
	if err != nil {
		return models.ChatSession{}, err
	}
	if current.Status != models.SessionActive {
		return models.ChatSession{}, fmt.Errorf("chat session %d not active: %w", sessionID, apperrors.ErrNotFound)
	}
	if !isAdmin && current.SupportUserID != actorID {
		return models.ChatSession{}, fmt.Errorf("chat session %d belongs to another agent: %w", sessionID, apperrors.ErrForbidden)
	}

	session, err := s.sessions.End(ctx, sessionID, actorID, s.now())
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return models.ChatSession{}, fmt.Errorf("chat session %d not active: %w", sessionID, apperrors.ErrNotFound)
	}
	if err != nil {
		return models.ChatSession{}, err
	}

	endedAt := s.now()
	if session.EndedAt != nil {
		endedAt = *session.EndedAt
	}
	data := models.SessionEndedData{SessionID: session.ID, EndedBy: actorID, EndedAt: endedAt}
	reached := s.notifier.BroadcastToSession(session.ID, models.Event{Type: models.EventSessionEnded, Data: data})
	s.notifier.UntrackSession(session.ID)
	_ = observability.PublishEvent(ctx, routingSessionEnded,
		observability.NewEventEnvelope(ctx, eventTypeChatLifecycle, "chat_session_ended", data))

	s.log.Info("chat session ended",
		zap.Int64("session_id", session.ID), zap.String("ended_by", actorID), zap.Int("parties_notified", reached))
	return session, nil
}

// AppendMessage persists one message from a session participant. Appends to the same session are
// serialized so the stored order matches the order in which they reached the server.
func (s *SessionService) AppendMessage(ctx context.Context, sessionID int64, senderType models.SenderType, senderID, text, kind string) (models.ChatMessage, models.ChatSession, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return models.ChatMessage{}, models.ChatSession{}, err
	}
	if session.Status != models.SessionActive {
		return models.ChatMessage{}, session, fmt.Errorf("chat session %d has ended: %w", sessionID, apperrors.ErrInvalidState)
	}
	if !senderOwns(session, senderType, senderID) {
		return models.ChatMessage{}, session, fmt.Errorf("sender %s is not the %s of session %d: %w", senderID, senderType, sessionID, apperrors.ErrForbidden)
	}
	if kind == "" {
		kind = models.DefaultMessageType
	}

	msg, err := s.messages.Append(ctx, models.ChatMessage{
		SessionID:   sessionID,
		SenderType:  senderType,
		SenderID:    senderID,
		Message:     text,
		MessageType: kind,
		CreatedAt:   s.now(),
	})
	if errors.Is(err, repositories.ErrSessionClosed) {
		return models.ChatMessage{}, session, fmt.Errorf("chat session %d has ended: %w", sessionID, apperrors.ErrInvalidState)
	}
	if err != nil {
		return models.ChatMessage{}, session, fmt.Errorf("append message: %w", err)
	}
	observability.IncMessageRelayed(string(senderType))
	return msg, session, nil
}

// Messages returns a session's messages in append order without access checks.
func (s *SessionService) Messages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.messages.ListBySession(ctx, sessionID)
}

// MessagesFor returns a session's messages if partyID takes part in it. Admins may read any session.
func (s *SessionService) MessagesFor(ctx context.Context, sessionID int64, partyID string, isAdmin bool) ([]models.ChatMessage, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !session.HasParticipant(partyID) {
		return nil, fmt.Errorf("chat session %d: %w", sessionID, apperrors.ErrNotFound)
	}
	return s.messages.ListBySession(ctx, sessionID)
}

// ListForAgent returns the agent's active sessions.
func (s *SessionService) ListForAgent(ctx context.Context, agentID string) ([]models.SessionSummary, error) {
	return s.sessions.ListActiveForAgent(ctx, agentID)
}

// ListAll returns all sessions, optionally filtered by status.
func (s *SessionService) ListAll(ctx context.Context, status *models.SessionStatus) ([]models.SessionSummary, error) {
	if status != nil && *status != models.SessionActive && *status != models.SessionEnded {
		return nil, fmt.Errorf("unknown session status %q: %w", *status, apperrors.ErrValidation)
	}
	return s.sessions.ListAll(ctx, status)
}

// Totals counts sessions by status.
func (s *SessionService) Totals(ctx context.Context) (models.SessionTotals, error) {
	return s.sessions.Totals(ctx)
}

func senderOwns(session models.ChatSession, senderType models.SenderType, senderID string) bool {
	switch senderType {
	case models.SenderUser:
		return senderID == session.UserID
	case models.SenderSupport:
		return senderID == session.SupportUserID
	default:
		return false
	}
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*keyedLock)}
}

func (k *keyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
