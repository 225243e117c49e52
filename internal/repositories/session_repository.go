package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"livechat-service/internal/models"
)

// ErrSessionNotFound means no session matched the id together with the required status predicate.
var ErrSessionNotFound = errors.New("chat session not found")

const sessionColumns = `id, request_id, user_id, support_user_id, status, started_at, ended_at, ended_by,
        last_message, last_sender_type, message_count`

const sessionSummarySelect = `SELECT s.id, s.request_id, s.user_id, s.support_user_id, s.status, s.started_at,
        s.ended_at, s.ended_by, s.last_message, s.last_sender_type, s.message_count,
        r.user_name, r.user_email, c.name AS category_name
        FROM chat_sessions s
        JOIN chat_requests r ON r.id = s.request_id
        JOIN chat_categories c ON c.id = r.category_id`

// SessionRepository abstracts chat session persistence.
type SessionRepository interface {
	Get(ctx context.Context, id int64) (models.ChatSession, error)
	GetByRequest(ctx context.Context, requestID int64) (models.ChatSession, error)
	ListActiveForAgent(ctx context.Context, agentID string) ([]models.SessionSummary, error)
	ListAll(ctx context.Context, status *models.SessionStatus) ([]models.SessionSummary, error)
	ListActive(ctx context.Context) ([]models.ChatSession, error)
	Totals(ctx context.Context) (models.SessionTotals, error)
	End(ctx context.Context, id int64, actorID string, now time.Time) (models.ChatSession, error)
}

// SessionRepo is a sqlx implementation of SessionRepository.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs a SessionRepo.
func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Get fetches a session by id.
func (r *SessionRepo) Get(ctx context.Context, id int64) (models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM chat_sessions WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatSession{}, ErrSessionNotFound
	}
	return session, err
}

// GetByRequest fetches the session opened for a request.
func (r *SessionRepo) GetByRequest(ctx context.Context, requestID int64) (models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM chat_sessions WHERE request_id=$1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatSession{}, ErrSessionNotFound
	}
	return session, err
}

// ListActiveForAgent returns the agent's active sessions, newest first.
func (r *SessionRepo) ListActiveForAgent(ctx context.Context, agentID string) ([]models.SessionSummary, error) {
	list := []models.SessionSummary{}
	err := r.db.SelectContext(ctx, &list,
		sessionSummarySelect+` WHERE s.support_user_id = $1 AND s.status = 'active' ORDER BY s.started_at DESC, s.id DESC`, agentID)
	return list, err
}

// ListAll returns every session, optionally filtered by status.
func (r *SessionRepo) ListAll(ctx context.Context, status *models.SessionStatus) ([]models.SessionSummary, error) {
	list := []models.SessionSummary{}
	if status != nil {
		err := r.db.SelectContext(ctx, &list,
			sessionSummarySelect+` WHERE s.status = $1 ORDER BY s.started_at DESC, s.id DESC`, *status)
		return list, err
	}
	err := r.db.SelectContext(ctx, &list, sessionSummarySelect+` ORDER BY s.started_at DESC, s.id DESC`)
	return list, err
}

// ListActive returns all active sessions.
func (r *SessionRepo) ListActive(ctx context.Context) ([]models.ChatSession, error) {
	list := []models.ChatSession{}
	err := r.db.SelectContext(ctx, &list, `SELECT `+sessionColumns+` FROM chat_sessions WHERE status = 'active'`)
	return list, err
}

// Totals counts sessions by status.
func (r *SessionRepo) Totals(ctx context.Context) (models.SessionTotals, error) {
	var totals models.SessionTotals
	err := r.db.GetContext(ctx, &totals, `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'active') AS active,
        COUNT(*) FILTER (WHERE status = 'ended') AS ended
        FROM chat_sessions`)
	return totals, err
}

// End moves an active session to ended.
func (r *SessionRepo) End(ctx context.Context, id int64, actorID string, now time.Time) (models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.GetContext(ctx, &session, `UPDATE chat_sessions
        SET status = 'ended', ended_at = $2, ended_by = $3
        WHERE id = $1 AND status = 'active'
        RETURNING `+sessionColumns, id, now, actorID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatSession{}, ErrSessionNotFound
	}
	return session, err
}
