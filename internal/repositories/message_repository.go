package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"livechat-service/internal/models"
)

// ErrSessionClosed means a message was appended to a session that is not active.
var ErrSessionClosed = errors.New("chat session is not active")

const messageColumns = `id, session_id, sender_type, sender_id, message, message_type, is_read, created_at`

// MessageRepository defines interactions for session messages.
type MessageRepository interface {
	Append(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.ChatMessage, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append adds a message to the session log and refreshes the session summary columns.
// The session row update runs first so concurrent appends to one session queue on its row lock.
func (r *MessageRepo) Append(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ChatMessage{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE chat_sessions
        SET last_message = $2, last_sender_type = $3, message_count = message_count + 1
        WHERE id = $1 AND status = 'active'`, msg.SessionID, msg.Message, msg.SenderType)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("touch session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.ChatMessage{}, err
	}
	if affected == 0 {
		return models.ChatMessage{}, ErrSessionClosed
	}

	var stored models.ChatMessage
	err = tx.GetContext(ctx, &stored, `INSERT INTO chat_messages (session_id, sender_type, sender_id, message, message_type, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+messageColumns,
		msg.SessionID, msg.SenderType, msg.SenderID, msg.Message, msg.MessageType, msg.CreatedAt)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.ChatMessage{}, err
	}
	return stored, nil
}

// ListBySession returns a session's messages in append order.
func (r *MessageRepo) ListBySession(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	msgs := []models.ChatMessage{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM chat_messages WHERE session_id=$1 ORDER BY id ASC`, sessionID)
	return msgs, err
}
