package models

import "time"

// SenderType identifies which side of a session wrote a message.
type SenderType string

const (
	SenderUser    SenderType = "user"
	SenderSupport SenderType = "support"
)

// DefaultMessageType is used when an envelope omits message_type.
const DefaultMessageType = "text"

// ChatMessage is one immutable entry in a session's append-only log.
type ChatMessage struct {
	ID          int64      `db:"id" json:"id"`
	SessionID   int64      `db:"session_id" json:"session_id"`
	SenderType  SenderType `db:"sender_type" json:"sender_type"`
	SenderID    string     `db:"sender_id" json:"sender_id"`
	Message     string     `db:"message" json:"message"`
	MessageType string     `db:"message_type" json:"message_type"`
	IsRead      bool       `db:"is_read" json:"is_read"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
