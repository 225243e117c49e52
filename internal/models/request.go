package models

import "time"

// RequestStatus is the state of a chat request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
	RequestTimeout  RequestStatus = "timeout"
	RequestCanceled RequestStatus = "canceled"
)

// ChatRequest is a visitor's ask for live help.
type ChatRequest struct {
	ID              int64         `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"user_id"`
	UserName        *string       `db:"user_name" json:"user_name"`
	UserEmail       *string       `db:"user_email" json:"user_email"`
	CategoryID      int64         `db:"category_id" json:"category_id"`
	SubcategoryID   *int64        `db:"subcategory_id" json:"subcategory_id"`
	Message         *string       `db:"message" json:"message"`
	Status          RequestStatus `db:"status" json:"status"`
	AssignedTo      *string       `db:"assigned_to" json:"assigned_to"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	AcceptedAt      *time.Time    `db:"accepted_at" json:"accepted_at"`
	RejectedAt      *time.Time    `db:"rejected_at" json:"rejected_at"`
	ClosedAt        *time.Time    `db:"closed_at" json:"closed_at"`
	ExpiresAt       time.Time     `db:"expires_at" json:"expires_at"`
}

// ChatRequestSummary joins a request with its taxonomy names for listings.
type ChatRequestSummary struct {
	ChatRequest
	CategoryName    string  `db:"category_name" json:"category_name"`
	SubcategoryName *string `db:"subcategory_name" json:"subcategory_name"`
}

// CreateChatRequestInput is the public request body.
type CreateChatRequestInput struct {
	UserName      *string `json:"user_name" binding:"omitempty,max=100"`
	UserEmail     *string `json:"user_email" binding:"omitempty,email"`
	CategoryID    int64   `json:"category_id" binding:"required,gt=0"`
	SubcategoryID *int64  `json:"subcategory_id" binding:"omitempty,gt=0"`
	Message       *string `json:"message" binding:"omitempty,max=2000"`
}

// CreatedChatRequest is returned after a request has been stored.
type CreatedChatRequest struct {
	RequestID       int64     `json:"request_id"`
	UserID          string    `json:"user_id"`
	CategoryName    string    `json:"category_name"`
	SubcategoryName *string   `json:"subcategory_name"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// RequestStatusView is what a visitor sees when polling their request.
type RequestStatusView struct {
	RequestID       int64         `json:"request_id"`
	Status          RequestStatus `json:"status"`
	SessionID       *int64        `json:"session_id,omitempty"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	ExpiresAt       time.Time     `json:"expires_at"`
}
