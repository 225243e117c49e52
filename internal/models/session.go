package models

import "time"

// SessionStatus is the state of a chat session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// ChatSession is an accepted request turned into a live conversation.
type ChatSession struct {
	ID             int64         `db:"id" json:"id"`
	RequestID      int64         `db:"request_id" json:"request_id"`
	UserID         string        `db:"user_id" json:"user_id"`
	SupportUserID  string        `db:"support_user_id" json:"support_user_id"`
	Status         SessionStatus `db:"status" json:"status"`
	StartedAt      time.Time     `db:"started_at" json:"started_at"`
	EndedAt        *time.Time    `db:"ended_at" json:"ended_at"`
	EndedBy        *string       `db:"ended_by" json:"ended_by,omitempty"`
	LastMessage    *string       `db:"last_message" json:"last_message"`
	LastSenderType *string       `db:"last_sender_type" json:"last_sender_type"`
	MessageCount   int           `db:"message_count" json:"message_count"`
}

// Counterpart returns the other participant of the session for the given sender role.
func (s ChatSession) Counterpart(sender SenderType) string {
	if sender == SenderUser {
		return s.SupportUserID
	}
	return s.UserID
}

// HasParticipant reports whether partyID is the visitor or the agent of the session.
func (s ChatSession) HasParticipant(partyID string) bool {
	return partyID != "" && (s.UserID == partyID || s.SupportUserID == partyID)
}

// SessionSummary joins a session with the originating request for listings.
type SessionSummary struct {
	ChatSession
	UserName     *string `db:"user_name" json:"user_name"`
	UserEmail    *string `db:"user_email" json:"user_email"`
	CategoryName string  `db:"category_name" json:"category_name"`
}

// SessionTotals aggregates session counts for reporting.
type SessionTotals struct {
	Total  int `db:"total" json:"total"`
	Active int `db:"active" json:"active"`
	Ended  int `db:"ended" json:"ended"`
}
