package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"livechat-service/internal/models"
)

// FeedbackService stores and aggregates post-session ratings.
type FeedbackService interface {
	Submit(ctx context.Context, in models.FeedbackInput) (models.Feedback, error)
	Stats(ctx context.Context) (models.FeedbackStats, error)
}

type FeedbackHandler struct {
	feedback FeedbackService
}

func NewFeedbackHandler(feedback FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// Submit records the visitor's rating of an ended session.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var in models.FeedbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := h.feedback.Submit(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "failed to submit feedback")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "feedback_id": stored.ID, "message": "Thank you for your feedback"})
}

// Stats returns aggregate ratings with the latest submissions.
func (h *FeedbackHandler) Stats(c *gin.Context) {
	stats, err := h.feedback.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load feedback stats")
		return
	}
	if stats.Recent == nil {
		stats.Recent = []models.Feedback{}
	}
	c.JSON(http.StatusOK, stats)
}
