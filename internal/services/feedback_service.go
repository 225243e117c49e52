package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"livechat-service/internal/apperrors"
	"livechat-service/internal/models"
	"livechat-service/internal/observability"
	"livechat-service/internal/repositories"
)

const recentFeedbackLimit = 10

// FeedbackService accepts one rating per ended session.
type FeedbackService struct {
	feedback repositories.FeedbackRepository
	sessions repositories.SessionRepository
	log      *zap.Logger
}

func NewFeedbackService(feedback repositories.FeedbackRepository, sessions repositories.SessionRepository, log *zap.Logger) *FeedbackService {
	return &FeedbackService{feedback: feedback, sessions: sessions, log: log.Named("feedback_service")}
}

// Submit stores feedback for an ended session owned by the submitting visitor. The agent is taken from
// the session record.
func (s *FeedbackService) Submit(ctx context.Context, in models.FeedbackInput) (models.Feedback, error) {
	session, err := s.sessions.Get(ctx, in.SessionID)
	if errors.Is(err, repositories.ErrSessionNotFound) || (err == nil && session.UserID != in.UserID) {
		return models.Feedback{}, fmt.Errorf("chat session %d for visitor: %w", in.SessionID, apperrors.ErrNotFound)
	}
	if err != nil {
		return models.Feedback{}, err
	}
	if session.Status != models.SessionEnded {
		return models.Feedback{}, fmt.Errorf("chat session %d is still %s: %w", in.SessionID, session.Status, apperrors.ErrInvalidState)
	}

	stored, err := s.feedback.Create(ctx, models.Feedback{
		SessionID:      session.ID,
		UserID:         session.UserID,
		AdminUserID:    session.SupportUserID,
		OverallRating:  in.OverallRating,
		SupportQuality: in.SupportQuality,
		ResponseTime:   in.ResponseTime,
		Comments:       in.Comments,
		WouldRecommend: in.WouldRecommend,
	})
	if errors.Is(err, repositories.ErrFeedbackExists) {
		return models.Feedback{}, fmt.Errorf("chat session %d: %w: feedback already submitted", in.SessionID, apperrors.ErrInvalidState)
	}
	if err != nil {
		return models.Feedback{}, fmt.Errorf("store feedback: %w", err)
	}

	_ = observability.PublishEvent(ctx, routingFeedback,
		observability.NewEventEnvelope(ctx, eventTypeChatLifecycle, "chat_feedback_submitted", stored))
	s.log.Info("feedback submitted", zap.Int64("session_id", stored.SessionID), zap.Int("overall_rating", stored.OverallRating))
	return stored, nil
}

// Stats aggregates ratings with the most recent submissions.
func (s *FeedbackService) Stats(ctx context.Context) (models.FeedbackStats, error) {
	return s.feedback.Stats(ctx, recentFeedbackLimit)
}
