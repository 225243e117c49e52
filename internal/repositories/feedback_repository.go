package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"livechat-service/internal/models"
)

// ErrFeedbackExists means the session already has feedback.
var ErrFeedbackExists = errors.New("feedback already submitted for session")

const feedbackColumns = `id, session_id, user_id, admin_user_id, overall_rating, support_quality, response_time,
        comments, would_recommend, created_at`

// FeedbackRepository abstracts post-session feedback persistence.
type FeedbackRepository interface {
	Create(ctx context.Context, fb models.Feedback) (models.Feedback, error)
	Stats(ctx context.Context, recent int) (models.FeedbackStats, error)
}

// FeedbackRepo is a sqlx implementation of FeedbackRepository.
type FeedbackRepo struct {
	db *sqlx.DB
}

// NewFeedbackRepo constructs a FeedbackRepo.
func NewFeedbackRepo(db *sqlx.DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

// Create stores feedback; a second submission for the same session returns ErrFeedbackExists.
func (r *FeedbackRepo) Create(ctx context.Context, fb models.Feedback) (models.Feedback, error) {
	var stored models.Feedback
	err := r.db.GetContext(ctx, &stored, `INSERT INTO chat_feedback
        (session_id, user_id, admin_user_id, overall_rating, support_quality, response_time, comments, would_recommend)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+feedbackColumns,
		fb.SessionID, fb.UserID, fb.AdminUserID, fb.OverallRating, fb.SupportQuality, fb.ResponseTime, fb.Comments, fb.WouldRecommend)
	if isUniqueViolation(err) {
		return models.Feedback{}, ErrFeedbackExists
	}
	return stored, err
}

// Stats aggregates ratings and returns the most recent entries.
func (r *FeedbackRepo) Stats(ctx context.Context, recent int) (models.FeedbackStats, error) {
	var stats models.FeedbackStats
	err := r.db.GetContext(ctx, &stats, `SELECT COUNT(*) AS total,
        COALESCE(AVG(overall_rating), 0) AS average_overall,
        COALESCE(AVG(support_quality), 0) AS average_support_quality,
        COALESCE(AVG(response_time), 0) AS average_response_time,
        COALESCE(AVG(CASE WHEN would_recommend THEN 1.0 ELSE 0.0 END), 0) AS recommend_rate
        FROM chat_feedback`)
	if err != nil {
		return models.FeedbackStats{}, err
	}

	stats.Recent = []models.Feedback{}
	err = r.db.SelectContext(ctx, &stats.Recent,
		`SELECT `+feedbackColumns+` FROM chat_feedback ORDER BY created_at DESC, id DESC LIMIT $1`, recent)
	return stats, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
