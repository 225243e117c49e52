package models

import "time"

// Envelope types exchanged over relay channels.
const (
	EventChatMessage   = "chat_message"
	EventNewRequest    = "new_chat_request"
	EventRequestCancel = "chat_request_canceled"
	EventChatAccepted  = "chat_accepted"
	EventChatRejected  = "chat_rejected"
	EventChatTimeout   = "chat_timeout"
	EventSessionEnded  = "session_ended"
	EventError         = "error"
)

// Envelope is an inbound relay message. Only chat_message envelopes are acted on.
type Envelope struct {
	Type        string     `json:"type"`
	SessionID   int64      `json:"session_id" validate:"gt=0"`
	SenderType  SenderType `json:"sender_type" validate:"required,oneof=user support"`
	SenderID    string     `json:"sender_id" validate:"required,max=128"`
	Message     string     `json:"message" validate:"required,max=4000"`
	MessageType string     `json:"message_type" validate:"omitempty,max=32"`
}

// Event is an outbound server notification.
type Event struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewRequestData announces a pending request to agents.
type NewRequestData struct {
	RequestID       int64     `json:"request_id"`
	UserName        string    `json:"user_name"`
	CategoryName    string    `json:"category_name"`
	SubcategoryName *string   `json:"subcategory_name,omitempty"`
	Message         string    `json:"message"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// RequestCanceledData tells agents a pending request was withdrawn.
type RequestCanceledData struct {
	RequestID int64 `json:"request_id"`
}

// ChatAcceptedData tells the visitor their request has a session.
type ChatAcceptedData struct {
	RequestID     int64  `json:"request_id"`
	SessionID     int64  `json:"session_id"`
	SupportUserID string `json:"support_user_id"`
	SupportName   string `json:"support_name"`
	Message       string `json:"message"`
}

// RequestClosedData tells the visitor their request was rejected or timed out.
type RequestClosedData struct {
	RequestID int64   `json:"request_id"`
	Reason    *string `json:"reason,omitempty"`
	Message   string  `json:"message"`
}

// SessionEndedData tells both participants the session is over.
type SessionEndedData struct {
	SessionID int64     `json:"session_id"`
	EndedBy   string    `json:"ended_by"`
	EndedAt   time.Time `json:"ended_at"`
}
