package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"livechat-service/internal/models"
)

// ErrRequestNotFound means no request matched the id together with the required status predicate.
var ErrRequestNotFound = errors.New("chat request not found")

const requestColumns = `id, user_id, user_name, user_email, category_id, subcategory_id, message, status,
        assigned_to, rejection_reason, created_at, accepted_at, rejected_at, closed_at, expires_at`

const summarySelect = `SELECT r.id, r.user_id, r.user_name, r.user_email, r.category_id, r.subcategory_id, r.message,
        r.status, r.assigned_to, r.rejection_reason, r.created_at, r.accepted_at, r.rejected_at, r.closed_at,
        r.expires_at, c.name AS category_name, s.name AS subcategory_name
        FROM chat_requests r
        JOIN chat_categories c ON c.id = r.category_id
        LEFT JOIN chat_subcategories s ON s.id = r.subcategory_id`

// RequestRepository abstracts chat request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req models.ChatRequest) (models.ChatRequest, error)
	Get(ctx context.Context, id int64) (models.ChatRequest, error)
	ListPending(ctx context.Context, now time.Time) ([]models.ChatRequestSummary, error)
	ListRejected(ctx context.Context) ([]models.ChatRequestSummary, error)
	Accept(ctx context.Context, id int64, agentID string, now time.Time) (models.ChatRequest, models.ChatSession, error)
	Reject(ctx context.Context, id int64, agentID string, reason *string, now time.Time) (models.ChatRequest, error)
	Cancel(ctx context.Context, id int64, userID string, now time.Time) (models.ChatRequest, error)
	MarkTimeout(ctx context.Context, id int64, now time.Time) (models.ChatRequest, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]models.ChatRequest, error)
}

// RequestRepo is a sqlx implementation of RequestRepository.
type RequestRepo struct {
	db *sqlx.DB
}

// NewRequestRepo constructs a RequestRepo.
func NewRequestRepo(db *sqlx.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

// Create stores a new pending request.
func (r *RequestRepo) Create(ctx context.Context, req models.ChatRequest) (models.ChatRequest, error) {
	var created models.ChatRequest
	query := `INSERT INTO chat_requests (user_id, user_name, user_email, category_id, subcategory_id, message, status, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8)
        RETURNING ` + requestColumns
	err := r.db.GetContext(ctx, &created, query,
		req.UserID, req.UserName, req.UserEmail, req.CategoryID, req.SubcategoryID, req.Message, req.CreatedAt, req.ExpiresAt)
	return created, err
}

// Get fetches a request by id regardless of status.
func (r *RequestRepo) Get(ctx context.Context, id int64) (models.ChatRequest, error) {
	var req models.ChatRequest
	err := r.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM chat_requests WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRequest{}, ErrRequestNotFound
	}
	return req, err
}

// ListPending returns pending, unexpired requests oldest first.
func (r *RequestRepo) ListPending(ctx context.Context, now time.Time) ([]models.ChatRequestSummary, error) {
	query := summarySelect + ` WHERE r.status = 'pending' AND r.expires_at > $1 ORDER BY r.created_at ASC, r.id ASC`
	list := []models.ChatRequestSummary{}
	err := r.db.SelectContext(ctx, &list, query, now)
	return list, err
}

// ListRejected returns rejected requests newest first.
func (r *RequestRepo) ListRejected(ctx context.Context) ([]models.ChatRequestSummary, error) {
	query := summarySelect + ` WHERE r.status = 'rejected' ORDER BY r.rejected_at DESC, r.id DESC`
	list := []models.ChatRequestSummary{}
	err := r.db.SelectContext(ctx, &list, query)
	return list, err
}

// Accept moves a pending, unexpired request to accepted and opens its session in one transaction.
func (r *RequestRepo) Accept(ctx context.Context, id int64, agentID string, now time.Time) (models.ChatRequest, models.ChatSession, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ChatRequest{}, models.ChatSession{}, err
	}
	defer tx.Rollback()

	var req models.ChatRequest
	err = tx.GetContext(ctx, &req, `UPDATE chat_requests
        SET status = 'accepted', assigned_to = $2, accepted_at = $3
        WHERE id = $1 AND status = 'pending' AND expires_at > $3
        RETURNING `+requestColumns, id, agentID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRequest{}, models.ChatSession{}, ErrRequestNotFound
	}
	if err != nil {
		return models.ChatRequest{}, models.ChatSession{}, fmt.Errorf("accept request: %w", err)
	}

	var session models.ChatSession
	err = tx.GetContext(ctx, &session, `INSERT INTO chat_sessions (request_id, user_id, support_user_id, status, started_at)
        VALUES ($1, $2, $3, 'active', $4)
        RETURNING `+sessionColumns, req.ID, req.UserID, agentID, now)
	if err != nil {
		return models.ChatRequest{}, models.ChatSession{}, fmt.Errorf("create session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.ChatRequest{}, models.ChatSession{}, err
	}
	return req, session, nil
}

// Reject moves a pending request to rejected.
func (r *RequestRepo) Reject(ctx context.Context, id int64, agentID string, reason *string, now time.Time) (models.ChatRequest, error) {
	return r.transition(ctx, `UPDATE chat_requests
        SET status = 'rejected', assigned_to = $2, rejection_reason = $3, rejected_at = $4, closed_at = $4
        WHERE id = $1 AND status = 'pending'
        RETURNING `+requestColumns, id, agentID, reason, now)
}

// Cancel moves a pending request owned by userID to canceled.
func (r *RequestRepo) Cancel(ctx context.Context, id int64, userID string, now time.Time) (models.ChatRequest, error) {
	return r.transition(ctx, `UPDATE chat_requests
        SET status = 'canceled', closed_at = $3
        WHERE id = $1 AND user_id = $2 AND status = 'pending'
        RETURNING `+requestColumns, id, userID, now)
}

// MarkTimeout moves a still-pending request to timeout.
func (r *RequestRepo) MarkTimeout(ctx context.Context, id int64, now time.Time) (models.ChatRequest, error) {
	return r.transition(ctx, `UPDATE chat_requests
        SET status = 'timeout', closed_at = $2
        WHERE id = $1 AND status = 'pending'
        RETURNING `+requestColumns, id, now)
}

// ExpireOverdue times out every pending request whose expiry has passed and returns them.
func (r *RequestRepo) ExpireOverdue(ctx context.Context, now time.Time) ([]models.ChatRequest, error) {
	expired := []models.ChatRequest{}
	err := r.db.SelectContext(ctx, &expired, `UPDATE chat_requests
        SET status = 'timeout', closed_at = $1
        WHERE status = 'pending' AND expires_at <= $1
        RETURNING `+requestColumns, now)
	return expired, err
}

func (r *RequestRepo) transition(ctx context.Context, query string, args ...any) (models.ChatRequest, error) {
	var req models.ChatRequest
	err := r.db.GetContext(ctx, &req, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRequest{}, ErrRequestNotFound
	}
	return req, err
}
