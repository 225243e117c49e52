package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"livechat-service/internal/apperrors"
	"livechat-service/internal/models"
	"livechat-service/internal/observability"
	"livechat-service/internal/repositories"
)

const anonymousVisitor = "Anonymous"

// RequestDeps groups the collaborators of RequestService.
type RequestDeps struct {
	Requests      repositories.RequestRepository
	Sessions      repositories.SessionRepository
	Categories    repositories.CategoryRepository
	Notifications repositories.NotificationRepository
	Notifier      Notifier
	Scheduler     Scheduler
}

// RequestService drives the chat request state machine: pending to accepted, rejected, timeout or canceled.
type RequestService struct {
	requests      repositories.RequestRepository
	sessions      repositories.SessionRepository
	categories    repositories.CategoryRepository
	notifications repositories.NotificationRepository
	notifier      Notifier
	scheduler     Scheduler
	timeout       time.Duration
	now           func() time.Time
	newVisitorID  func() string
	log           *zap.Logger
}

// NewRequestService builds a RequestService. timeout is both the persisted expiry window and the delay of
// the scheduled timeout check.
func NewRequestService(deps RequestDeps, timeout time.Duration, log *zap.Logger) *RequestService {
	return &RequestService{
		requests:      deps.Requests,
		sessions:      deps.Sessions,
		categories:    deps.Categories,
		notifications: deps.Notifications,
		notifier:      deps.Notifier,
		scheduler:     deps.Scheduler,
		timeout:       timeout,
		now:           time.Now,
		newVisitorID:  func() string { return "user_" + uuid.NewString() },
		log:           log.Named("request_service"),
	}
}

// Create stores a pending request, announces it to agents and arms its timeout.
func (s *RequestService) Create(ctx context.Context, in models.CreateChatRequestInput) (models.CreatedChatRequest, error) {
	category, err := s.categories.GetCategory(ctx, in.CategoryID)
	if errors.Is(err, repositories.ErrCategoryNotFound) || (err == nil && !category.IsActive) {
		return models.CreatedChatRequest{}, fmt.Errorf("unknown category %d: %w", in.CategoryID, apperrors.ErrValidation)
	}
	if err != nil {
		return models.CreatedChatRequest{}, fmt.Errorf("load category: %w", err)
	}

	var subcategoryName *string
	if in.SubcategoryID != nil {
		sub, err := s.categories.GetSubcategory(ctx, *in.SubcategoryID)
		if errors.Is(err, repositories.ErrSubcategoryNotFound) || (err == nil && (!sub.IsActive || sub.CategoryID != category.ID)) {
			return models.CreatedChatRequest{}, fmt.Errorf("unknown subcategory %d for category %d: %w", *in.SubcategoryID, category.ID, apperrors.ErrValidation)
		}
		if err != nil {
			return models.CreatedChatRequest{}, fmt.Errorf("load subcategory: %w", err)
		}
		subcategoryName = &sub.Name
	}

	now := s.now()
	created, err := s.requests.Create(ctx, models.ChatRequest{
		UserID:        s.newVisitorID(),
		UserName:      in.UserName,
		UserEmail:     in.UserEmail,
		CategoryID:    category.ID,
		SubcategoryID: in.SubcategoryID,
		Message:       in.Message,
		Status:        models.RequestPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.timeout),
	})
	if err != nil {
		return models.CreatedChatRequest{}, fmt.Errorf("create request: %w", err)
	}
	observability.IncRequestTransition(string(models.RequestPending))
	log := s.log.With(zap.Int64("request_id", created.ID), zap.String("user_id", created.UserID))

	announcement := models.NewRequestData{
		RequestID:       created.ID,
		UserName:        valueOr(created.UserName, anonymousVisitor),
		CategoryName:    category.Name,
		SubcategoryName: subcategoryName,
		Message:         valueOr(created.Message, ""),
		CreatedAt:       created.CreatedAt,
		ExpiresAt:       created.ExpiresAt,
	}
	reached := s.notifier.BroadcastToAgents(models.Event{Type: models.EventNewRequest, Data: announcement})
	log.Info("chat request created", zap.Int("agents_notified", reached), zap.Time("expires_at", created.ExpiresAt))

	s.recordAdminNotice(ctx, created, announcement)
	_ = observability.PublishEvent(ctx, routingRequestCreated,
		observability.NewEventEnvelope(ctx, eventTypeChatLifecycle, "chat_request_created", announcement))

	s.scheduler.Schedule(created.ID, created.ExpiresAt)

	return models.CreatedChatRequest{
		RequestID:       created.ID,
		UserID:          created.UserID,
		CategoryName:    category.Name,
		SubcategoryName: subcategoryName,
		ExpiresAt:       created.ExpiresAt,
	}, nil
}

func (s *RequestService) recordAdminNotice(ctx context.Context, req models.ChatRequest, data models.NewRequestData) {
	relatedID := req.ID
	notice := models.Notification{
		Title:     "New chat request",
		Message:   fmt.Sprintf("%s requested live chat in %s", data.UserName, data.CategoryName),
		Type:      "chat_request",
		RelatedID: &relatedID,
	}
	stored, err := s.notifications.Create(ctx, notice)
	if err != nil {
		s.log.Warn("failed to store admin notification", zap.Int64("request_id", req.ID), zap.Error(err))
		stored = notice
	}
	_ = observability.PublishEvent(ctx, routingAdminNotice,
		observability.NewEventEnvelope(ctx, eventTypeNotification, "chat_request", stored))
}

// ListPending returns pending, unexpired requests oldest first.
func (s *RequestService) ListPending(ctx context.Context) ([]models.ChatRequestSummary, error) {
	return s.requests.ListPending(ctx, s.now())
}

// ListRejected returns rejected requests newest first.
func (s *RequestService) ListRejected(ctx context.Context) ([]models.ChatRequestSummary, error) {
	return s.requests.ListRejected(ctx)
}

// Status reports a request to the visitor who created it.
func (s *RequestService) Status(ctx context.Context, requestID int64, userID string) (models.RequestStatusView, error) {
	req, err := s.requests.Get(ctx, requestID)
	if errors.Is(err, repositories.ErrRequestNotFound) || (err == nil && req.UserID != userID) {
		return models.RequestStatusView{}, fmt.Errorf("chat request %d: %w", requestID, apperrors.ErrNotFound)
	}
	if err != nil {
		return models.RequestStatusView{}, err
	}

	view := models.RequestStatusView{
		RequestID:       req.ID,
		Status:          req.Status,
		RejectionReason: req.RejectionReason,
		ExpiresAt:       req.ExpiresAt,
	}
	if req.Status == models.RequestAccepted {
		session, err := s.sessions.GetByRequest(ctx, req.ID)
		if err != nil && !errors.Is(err, repositories.ErrSessionNotFound) {
			return models.RequestStatusView{}, err
		}
		if err == nil {
			view.SessionID = &session.ID
		}
	}
	return view, nil
}

// Accept turns a pending, unexpired request into an active session owned by agentID.
func (s *RequestService) Accept(ctx context.Context, requestID int64, agentID, agentName string) (models.ChatSession, error) {
	req, session, err := s.requests.Accept(ctx, requestID, agentID, s.now())
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return models.ChatSession{}, fmt.Errorf("chat request %d not found or expired: %w", requestID, apperrors.ErrNotFound)
	}
	if err != nil {
		return models.ChatSession{}, err
	}
	s.scheduler.Cancel(requestID)
	s.notifier.TrackSession(session)
	observability.IncRequestTransition(string(models.RequestAccepted))

	data := models.ChatAcceptedData{
		RequestID:     req.ID,
		SessionID:     session.ID,
		SupportUserID: agentID,
		SupportName:   agentName,
		Message:       "Your chat request has been accepted. You are now connected with support.",
	}
	if !s.notifier.SendToVisitor(req.UserID, models.Event{Type: models.EventChatAccepted, Data: data}) {
		s.log.Debug("visitor not connected for accept notice", zap.Int64("request_id", req.ID), zap.String("user_id", req.UserID))
	}
	_ = observability.PublishEvent(ctx, routingRequestAccepted,
		observability.NewEventEnvelope(ctx, eventTypeChatLifecycle, "chat_request_accepted", data))

	s.log.Info("chat request accepted",
		zap.Int64("request_id", req.ID), zap.Int64("session_id", session.ID), zap.String("agent_id", agentID))
	return session, nil
}

// Reject closes a pending request on behalf of agentID.
func (s *RequestService) Reject(ctx context.Context, requestID int64, agentID string, reason *string) error {
	req, err := s.requests.Reject(ctx, requestID, agentID, reason, s.now())
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return fmt.Errorf("chat request %d not found or not pending: %w", requestID, apperrors.ErrNotFound)
	}
	if err != nil {
		return err
	}
	s.scheduler.Cancel(requestID)
	observability.IncRequestTransition(string(models.RequestRejected))

	data := models.RequestClosedData{
		RequestID: req.ID,
		Reason:    reason,
		Message:   "Your chat request was declined. Please try again later.",
	}
	s.notifier.SendToVisitor(req.UserID, models.Event{Type: models.EventChatRejected, Data: data})
	_ = observability.PublishEvent(ctx, routingRequestRejected,
		observability.NewEventEnvelope(ctx, eventTypeChatLifecycle, "chat_request_rejected", data))

	s.log.Info("chat request rejected", zap.Int64("request_id", req.ID), zap.String("agent_id", agentID))
	return nil
}

// Cancel withdraws a pending request on behalf of the visitor who created it.
func (s *RequestService) Cancel(ctx context.Context, requestID int64, userID string) error {
	req, err := s.requests.Cancel(ctx, requestID, userID, s.now())
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return s.classifyCancelFailure(ctx, requestID, userID)
	}
	if err != nil {
		return err
	}
	s.scheduler.Cancel(requestID)
	observability.IncRequestTransition(string(models.RequestCanceled))

	data := models.RequestCanceledData{RequestID: req.ID}
	s.notifier.BroadcastToAgents(models.Event{Type: models.EventRequestCancel, Data: data})
	_ = observability.PublishEvent(ctx, routingRequestCanceled,
		observability.NewEventEnvelope(ctx, eventTypeChatLifecycle, "chat_request_canceled", data))

	s.log.Info("chat request canceled", zap.Int64("request_id", req.ID), zap.String("user_id", userID))
	return nil
}

func (s *RequestService) classifyCancelFailure(ctx context.Context, requestID int64, userID string) error {
	req, err := s.requests.Get(ctx, requestID)
	if errors.Is(err, repositories.ErrRequestNotFound) || (err == nil && req.UserID != userID) {
		return fmt.Errorf("chat request %d: %w", requestID, apperrors.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("chat request %d is %s: %w", requestID, req.Status, apperrors.ErrInvalidState)
}

// CheckTimeout moves the request to timeout if it is still pending. It is a no-op otherwise.
func (s *RequestService) CheckTimeout(ctx context.Context, requestID int64) error {
	req, err := s.requests.MarkTimeout(ctx, requestID, s.now())
	if errors.Is(err, repositories.ErrRequestNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("timeout request %d: %w", requestID, err)
	}
	s.announceTimeout(ctx, req)
	return nil
}

func (s *RequestService) announceTimeout(ctx context.Context, req models.ChatRequest) {
	observability.IncRequestTransition(string(models.RequestTimeout))
	data := models.RequestClosedData{
		RequestID: req.ID,
		Message:   "No agent was available to take your chat request. Please try again.",
	}
	event := models.Event{Type: models.EventChatTimeout, Data: data}
	s.notifier.SendToVisitor(req.UserID, event)
	s.notifier.BroadcastToAgents(event)
	_ = observability.PublishEvent(ctx, routingRequestTimeout,
		observability.NewEventEnvelope(ctx, eventTypeChatLifecycle, "chat_request_timeout", data))
	s.log.Info("chat request timed out", zap.Int64("request_id", req.ID), zap.String("user_id", req.UserID))
}

// Recover times out overdue requests and re-arms timers for the rest. Active sessions are tracked again.
func (s *RequestService) Recover(ctx context.Context) error {
	now := s.now()
	expired, err := s.requests.ExpireOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("expire overdue requests: %w", err)
	}
	for _, req := range expired {
		s.announceTimeout(ctx, req)
	}

	pending, err := s.requests.ListPending(ctx, now)
	if err != nil {
		return fmt.Errorf("list pending requests: %w", err)
	}
	for _, req := range pending {
		s.scheduler.Schedule(req.ID, req.ExpiresAt)
	}

	active, err := s.sessions.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}
	for _, session := range active {
		s.notifier.TrackSession(session)
	}

	s.log.Info("request state recovered",
		zap.Int("expired", len(expired)), zap.Int("rearmed", len(pending)), zap.Int("active_sessions", len(active)))
	return nil
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
