package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"livechat-service/internal/models"
	"livechat-service/internal/presence"
)

type requestServiceMock struct {
	mock.Mock
}

func (m *requestServiceMock) Create(ctx context.Context, in models.CreateChatRequestInput) (models.CreatedChatRequest, error) {
	args := m.Called(ctx, in)
	var out models.CreatedChatRequest
	if val := args.Get(0); val != nil {
		out = val.(models.CreatedChatRequest)
	}
	return out, args.Error(1)
}

func (m *requestServiceMock) ListPending(ctx context.Context) ([]models.ChatRequestSummary, error) {
	args := m.Called(ctx)
	var list []models.ChatRequestSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatRequestSummary)
	}
	return list, args.Error(1)
}

func (m *requestServiceMock) ListRejected(ctx context.Context) ([]models.ChatRequestSummary, error) {
	args := m.Called(ctx)
	var list []models.ChatRequestSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatRequestSummary)
	}
	return list, args.Error(1)
}

func (m *requestServiceMock) Status(ctx context.Context, requestID int64, userID string) (models.RequestStatusView, error) {
	args := m.Called(ctx, requestID, userID)
	var out models.RequestStatusView
	if val := args.Get(0); val != nil {
		out = val.(models.RequestStatusView)
	}
	return out, args.Error(1)
}

func (m *requestServiceMock) Accept(ctx context.Context, requestID int64, agentID, agentName string) (models.ChatSession, error) {
	args := m.Called(ctx, requestID, agentID, agentName)
	var out models.ChatSession
	if val := args.Get(0); val != nil {
		out = val.(models.ChatSession)
	}
	return out, args.Error(1)
}

func (m *requestServiceMock) Reject(ctx context.Context, requestID int64, agentID string, reason *string) error {
	args := m.Called(ctx, requestID, agentID, reason)
	return args.Error(0)
}

func (m *requestServiceMock) Cancel(ctx context.Context, requestID int64, userID string) error {
	args := m.Called(ctx, requestID, userID)
	return args.Error(0)
}

type sessionServiceMock struct {
	mock.Mock
}

func (m *sessionServiceMock) End(ctx context.Context, sessionID int64, actorID string, isAdmin bool) (models.ChatSession, error) {
	args := m.Called(ctx, sessionID, actorID, isAdmin)
	var out models.ChatSession
	if val := args.Get(0); val != nil {
		out = val.(models.ChatSession)
	}
	return out, args.Error(1)
}

func (m *sessionServiceMock) Messages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	var list []models.ChatMessage
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatMessage)
	}
	return list, args.Error(1)
}

func (m *sessionServiceMock) MessagesFor(ctx context.Context, sessionID int64, partyID string, isAdmin bool) ([]models.ChatMessage, error) {
	args := m.Called(ctx, sessionID, partyID, isAdmin)
	var list []models.ChatMessage
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatMessage)
	}
	return list, args.Error(1)
}

func (m *sessionServiceMock) ListForAgent(ctx context.Context, agentID string) ([]models.SessionSummary, error) {
	args := m.Called(ctx, agentID)
	var list []models.SessionSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.SessionSummary)
	}
	return list, args.Error(1)
}

func (m *sessionServiceMock) ListAll(ctx context.Context, status *models.SessionStatus) ([]models.SessionSummary, error) {
	args := m.Called(ctx, status)
	var list []models.SessionSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.SessionSummary)
	}
	return list, args.Error(1)
}

func (m *sessionServiceMock) Totals(ctx context.Context) (models.SessionTotals, error) {
	args := m.Called(ctx)
	var out models.SessionTotals
	if val := args.Get(0); val != nil {
		out = val.(models.SessionTotals)
	}
	return out, args.Error(1)
}

type feedbackServiceMock struct {
	mock.Mock
}

func (m *feedbackServiceMock) Submit(ctx context.Context, in models.FeedbackInput) (models.Feedback, error) {
	args := m.Called(ctx, in)
	var out models.Feedback
	if val := args.Get(0); val != nil {
		out = val.(models.Feedback)
	}
	return out, args.Error(1)
}

func (m *feedbackServiceMock) Stats(ctx context.Context) (models.FeedbackStats, error) {
	args := m.Called(ctx)
	var out models.FeedbackStats
	if val := args.Get(0); val != nil {
		out = val.(models.FeedbackStats)
	}
	return out, args.Error(1)
}

type presenceMock struct {
	mock.Mock
}

func (m *presenceMock) Online(ctx context.Context) ([]presence.Agent, error) {
	args := m.Called(ctx)
	var list []presence.Agent
	if val := args.Get(0); val != nil {
		list = val.([]presence.Agent)
	}
	return list, args.Error(1)
}

var (
	_ RequestService  = (*requestServiceMock)(nil)
	_ SessionService  = (*sessionServiceMock)(nil)
	_ FeedbackService = (*feedbackServiceMock)(nil)
	_ PresenceReader  = (*presenceMock)(nil)
)
