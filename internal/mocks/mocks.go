package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"livechat-service/internal/models"
	"livechat-service/internal/repositories"
)

type RequestRepositoryMock struct {
	mock.Mock
}

func (m *RequestRepositoryMock) Create(ctx context.Context, req models.ChatRequest) (models.ChatRequest, error) {
	args := m.Called(ctx, req)
	var out models.ChatRequest
	if val := args.Get(0); val != nil {
		out = val.(models.ChatRequest)
	}
	return out, args.Error(1)
}

func (m *RequestRepositoryMock) Get(ctx context.Context, id int64) (models.ChatRequest, error) {
	args := m.Called(ctx, id)
	var out models.ChatRequest
	if val := args.Get(0); val != nil {
		out = val.(models.ChatRequest)
	}
	return out, args.Error(1)
}

func (m *RequestRepositoryMock) ListPending(ctx context.Context, now time.Time) ([]models.ChatRequestSummary, error) {
	args := m.Called(ctx, now)
	var list []models.ChatRequestSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatRequestSummary)
	}
	return list, args.Error(1)
}

func (m *RequestRepositoryMock) ListRejected(ctx context.Context) ([]models.ChatRequestSummary, error) {
	args := m.Called(ctx)
	var list []models.ChatRequestSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatRequestSummary)
	}
	return list, args.Error(1)
}

func (m *RequestRepositoryMock) Accept(ctx context.Context, id int64, agentID string, now time.Time) (models.ChatRequest, models.ChatSession, error) {
	args := m.Called(ctx, id, agentID, now)
	var req models.ChatRequest
	if val := args.Get(0); val != nil {
		req = val.(models.ChatRequest)
	}
	var session models.ChatSession
	if val := args.Get(1); val != nil {
		session = val.(models.ChatSession)
	}
	return req, session, args.Error(2)
}

func (m *RequestRepositoryMock) Reject(ctx context.Context, id int64, agentID string, reason *string, now time.Time) (models.ChatRequest, error) {
	args := m.Called(ctx, id, agentID, reason, now)
	var out models.ChatRequest
	if val := args.Get(0); val != nil {
		out = val.(models.ChatRequest)
	}
	return out, args.Error(1)
}

func (m *RequestRepositoryMock) Cancel(ctx context.Context, id int64, userID string, now time.Time) (models.ChatRequest, error) {
	args := m.Called(ctx, id, userID, now)
	var out models.ChatRequest
	if val := args.Get(0); val != nil {
		out = val.(models.ChatRequest)
	}
	return out, args.Error(1)
}

func (m *RequestRepositoryMock) MarkTimeout(ctx context.Context, id int64, now time.Time) (models.ChatRequest, error) {
	args := m.Called(ctx, id, now)
	var out models.ChatRequest
	if val := args.Get(0); val != nil {
		out = val.(models.ChatRequest)
	}
	return out, args.Error(1)
}

func (m *RequestRepositoryMock) ExpireOverdue(ctx context.Context, now time.Time) ([]models.ChatRequest, error) {
	args := m.Called(ctx, now)
	var list []models.ChatRequest
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatRequest)
	}
	return list, args.Error(1)
}

type SessionRepositoryMock struct {
	mock.Mock
}

func (m *SessionRepositoryMock) Get(ctx context.Context, id int64) (models.ChatSession, error) {
	args := m.Called(ctx, id)
	var out models.ChatSession
	if val := args.Get(0); val != nil {
		out = val.(models.ChatSession)
	}
	return out, args.Error(1)
}

func (m *SessionRepositoryMock) GetByRequest(ctx context.Context, requestID int64) (models.ChatSession, error) {
	args := m.Called(ctx, requestID)
	var out models.ChatSession
	if val := args.Get(0); val != nil {
		out = val.(models.ChatSession)
	}
	return out, args.Error(1)
}

func (m *SessionRepositoryMock) ListActiveForAgent(ctx context.Context, agentID string) ([]models.SessionSummary, error) {
	args := m.Called(ctx, agentID)
	var list []models.SessionSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.SessionSummary)
	}
	return list, args.Error(1)
}

func (m *SessionRepositoryMock) ListAll(ctx context.Context, status *models.SessionStatus) ([]models.SessionSummary, error) {
	args := m.Called(ctx, status)
	var list []models.SessionSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.SessionSummary)
	}
	return list, args.Error(1)
}

func (m *SessionRepositoryMock) ListActive(ctx context.Context) ([]models.ChatSession, error) {
	args := m.Called(ctx)
	var list []models.ChatSession
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSession)
	}
	return list, args.Error(1)
}

func (m *SessionRepositoryMock) Totals(ctx context.Context) (models.SessionTotals, error) {
	args := m.Called(ctx)
	var out models.SessionTotals
	if val := args.Get(0); val != nil {
		out = val.(models.SessionTotals)
	}
	return out, args.Error(1)
}

func (m *SessionRepositoryMock) End(ctx context.Context, id int64, actorID string, now time.Time) (models.ChatSession, error) {
	args := m.Called(ctx, id, actorID, now)
	var out models.ChatSession
	if val := args.Get(0); val != nil {
		out = val.(models.ChatSession)
	}
	return out, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	args := m.Called(ctx, msg)
	var out models.ChatMessage
	if val := args.Get(0); val != nil {
		out = val.(models.ChatMessage)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) ListBySession(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	var list []models.ChatMessage
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatMessage)
	}
	return list, args.Error(1)
}

type FeedbackRepositoryMock struct {
	mock.Mock
}

func (m *FeedbackRepositoryMock) Create(ctx context.Context, fb models.Feedback) (models.Feedback, error) {
	args := m.Called(ctx, fb)
	var out models.Feedback
	if val := args.Get(0); val != nil {
		out = val.(models.Feedback)
	}
	return out, args.Error(1)
}

func (m *FeedbackRepositoryMock) Stats(ctx context.Context, recent int) (models.FeedbackStats, error) {
	args := m.Called(ctx, recent)
	var out models.FeedbackStats
	if val := args.Get(0); val != nil {
		out = val.(models.FeedbackStats)
	}
	return out, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, n)
	var out models.Notification
	if val := args.Get(0); val != nil {
		out = val.(models.Notification)
	}
	return out, args.Error(1)
}

type CategoryRepositoryMock struct {
	mock.Mock
}

func (m *CategoryRepositoryMock) ListCategories(ctx context.Context, activeOnly bool) ([]models.ChatCategory, error) {
	args := m.Called(ctx, activeOnly)
	var list []models.ChatCategory
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatCategory)
	}
	return list, args.Error(1)
}

func (m *CategoryRepositoryMock) GetCategory(ctx context.Context, id int64) (models.ChatCategory, error) {
	args := m.Called(ctx, id)
	var out models.ChatCategory
	if val := args.Get(0); val != nil {
		out = val.(models.ChatCategory)
	}
	return out, args.Error(1)
}

func (m *CategoryRepositoryMock) CreateCategory(ctx context.Context, in models.CategoryInput) (models.ChatCategory, error) {
	args := m.Called(ctx, in)
	var out models.ChatCategory
	if val := args.Get(0); val != nil {
		out = val.(models.ChatCategory)
	}
	return out, args.Error(1)
}

func (m *CategoryRepositoryMock) UpdateCategory(ctx context.Context, id int64, upd models.TaxonomyUpdate) (models.ChatCategory, error) {
	args := m.Called(ctx, id, upd)
	var out models.ChatCategory
	if val := args.Get(0); val != nil {
		out = val.(models.ChatCategory)
	}
	return out, args.Error(1)
}

func (m *CategoryRepositoryMock) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *CategoryRepositoryMock) ListSubcategories(ctx context.Context, categoryID *int64, activeOnly bool) ([]models.ChatSubcategory, error) {
	args := m.Called(ctx, categoryID, activeOnly)
	var list []models.ChatSubcategory
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSubcategory)
	}
	return list, args.Error(1)
}

func (m *CategoryRepositoryMock) GetSubcategory(ctx context.Context, id int64) (models.ChatSubcategory, error) {
	args := m.Called(ctx, id)
	var out models.ChatSubcategory
	if val := args.Get(0); val != nil {
		out = val.(models.ChatSubcategory)
	}
	return out, args.Error(1)
}

func (m *CategoryRepositoryMock) CreateSubcategory(ctx context.Context, in models.SubcategoryInput) (models.ChatSubcategory, error) {
	args := m.Called(ctx, in)
	var out models.ChatSubcategory
	if val := args.Get(0); val != nil {
		out = val.(models.ChatSubcategory)
	}
	return out, args.Error(1)
}

func (m *CategoryRepositoryMock) UpdateSubcategory(ctx context.Context, id int64, upd models.TaxonomyUpdate) (models.ChatSubcategory, error) {
	args := m.Called(ctx, id, upd)
	var out models.ChatSubcategory
	if val := args.Get(0); val != nil {
		out = val.(models.ChatSubcategory)
	}
	return out, args.Error(1)
}

func (m *CategoryRepositoryMock) DeleteSubcategory(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

var _ repositories.RequestRepository = (*RequestRepositoryMock)(nil)
var _ repositories.SessionRepository = (*SessionRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.FeedbackRepository = (*FeedbackRepositoryMock)(nil)
var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
var _ repositories.CategoryRepository = (*CategoryRepositoryMock)(nil)
