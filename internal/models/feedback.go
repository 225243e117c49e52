package models

import "time"

// Feedback is the post-session rating left by a visitor.
type Feedback struct {
	ID             int64     `db:"id" json:"id"`
	SessionID      int64     `db:"session_id" json:"session_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	AdminUserID    string    `db:"admin_user_id" json:"admin_user_id"`
	OverallRating  int       `db:"overall_rating" json:"overall_rating"`
	SupportQuality int       `db:"support_quality" json:"support_quality"`
	ResponseTime   int       `db:"response_time" json:"response_time"`
	Comments       *string   `db:"comments" json:"comments"`
	WouldRecommend bool      `db:"would_recommend" json:"would_recommend"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// FeedbackInput is the public feedback body.
type FeedbackInput struct {
	SessionID      int64   `json:"session_id" binding:"required,gt=0"`
	UserID         string  `json:"user_id" binding:"required"`
	AdminUserID    string  `json:"admin_user_id"`
	OverallRating  int     `json:"overall_rating" binding:"required,min=1,max=5"`
	SupportQuality int     `json:"support_quality" binding:"required,min=1,max=5"`
	ResponseTime   int     `json:"response_time" binding:"required,min=1,max=5"`
	Comments       *string `json:"comments" binding:"omitempty,max=2000"`
	WouldRecommend bool    `json:"would_recommend"`
}

// FeedbackStats aggregates ratings for the dashboard.
type FeedbackStats struct {
	Total                 int        `db:"total" json:"total"`
	AverageOverall        float64    `db:"average_overall" json:"average_overall"`
	AverageSupportQuality float64    `db:"average_support_quality" json:"average_support_quality"`
	AverageResponseTime   float64    `db:"average_response_time" json:"average_response_time"`
	RecommendRate         float64    `db:"recommend_rate" json:"recommend_rate"`
	Recent                []Feedback `db:"-" json:"recent"`
}
