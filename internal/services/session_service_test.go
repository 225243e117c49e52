package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"livechat-service/internal/apperrors"
	"livechat-service/internal/mocks"
	"livechat-service/internal/models"
	"livechat-service/internal/repositories"
)

func newSessionFixture(t *testing.T) (*SessionService, *mocks.SessionRepositoryMock, *mocks.MessageRepositoryMock, *fakeNotifier) {
	sessions := new(mocks.SessionRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	notifier := newFakeNotifier()
	svc := NewSessionService(sessions, messages, notifier, zaptest.NewLogger(t))
	svc.now = func() time.Time { return fixedNow }
	return svc, sessions, messages, notifier
}

func activeSession() models.ChatSession {
	return models.ChatSession{
		ID:            3,
		RequestID:     7,
		UserID:        "user_abc",
		SupportUserID: "agent-1",
		Status:        models.SessionActive,
		StartedAt:     fixedNow.Add(-time.Minute),
	}
}

func TestAppendMessageStoresInOrder(t *testing.T) {
	svc, sessions, messages, _ := newSessionFixture(t)
	ctx := context.Background()
	sessions.On("Get", ctx, int64(3)).Return(activeSession(), nil)
	messages.On("Append", ctx, mock.MatchedBy(func(m models.ChatMessage) bool {
		return m.SessionID == 3 && m.SenderType == models.SenderUser && m.MessageType == models.DefaultMessageType
	})).Return(models.ChatMessage{ID: 11, SessionID: 3, SenderType: models.SenderUser, SenderID: "user_abc", Message: "hello"}, nil).Once()

	msg, session, err := svc.AppendMessage(ctx, 3, models.SenderUser, "user_abc", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, int64(11), msg.ID)
	assert.Equal(t, "agent-1", session.Counterpart(models.SenderUser))
	messages.AssertExpectations(t)
}

func TestAppendMessageUnknownSession(t *testing.T) {
	svc, sessions, messages, _ := newSessionFixture(t)
	ctx := context.Background()
	sessions.On("Get", ctx, int64(99)).Return(nil, repositories.ErrSessionNotFound)

	_, _, err := svc.AppendMessage(ctx, 99, models.SenderUser, "user_abc", "hello", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestAppendMessageEndedSession(t *testing.T) {
	svc, sessions, messages, _ := newSessionFixture(t)
	ctx := context.Background()
	ended := activeSession()
	ended.Status = models.SessionEnded
	sessions.On("Get", ctx, int64(3)).Return(ended, nil)

	_, _, err := svc.AppendMessage(ctx, 3, models.SenderSupport, "agent-1", "bye", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestAppendMessageEndedConcurrently(t *testing.T) {
	svc, sessions, messages, _ := newSessionFixture(t)
	ctx := context.Background()
	sessions.On("Get", ctx, int64(3)).Return(activeSession(), nil)
	messages.On("Append", ctx, mock.Anything).Return(nil, repositories.ErrSessionClosed)

	_, _, err := svc.AppendMessage(ctx, 3, models.SenderSupport, "agent-1", "late", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestAppendMessageRejectsOutsider(t *testing.T) {
	svc, sessions, messages, _ := newSessionFixture(t)
	ctx := context.Background()
	sessions.On("Get", ctx, int64(3)).Return(activeSession(), nil)

	_, _, err := svc.AppendMessage(ctx, 3, models.SenderSupport, "agent-2", "hijack", "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, _, err = svc.AppendMessage(ctx, 3, models.SenderUser, "agent-1", "spoof", "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

type orderedMessageRepo struct {
	mu      sync.Mutex
	inside  int
	overlap bool
	stored  []string
}

func (r *orderedMessageRepo) Append(_ context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	r.mu.Lock()
	r.inside++
	if r.inside > 1 {
		r.overlap = true
	}
	r.mu.Unlock()

	time.Sleep(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inside--
	r.stored = append(r.stored, msg.Message)
	msg.ID = int64(len(r.stored))
	return msg, nil
}

func (r *orderedMessageRepo) ListBySession(context.Context, int64) ([]models.ChatMessage, error) {
	return nil, nil
}

func TestAppendMessageSerializesPerSession(t *testing.T) {
	sessions := new(mocks.SessionRepositoryMock)
	repo := &orderedMessageRepo{}
	svc := NewSessionService(sessions, repo, newFakeNotifier(), zaptest.NewLogger(t))
	sessions.On("Get", mock.Anything, int64(3)).Return(activeSession(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.AppendMessage(context.Background(), 3, models.SenderUser, "user_abc", "hi", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, repo.overlap)
	assert.Len(t, repo.stored, 20)
	assert.Empty(t, svc.locks.locks)
}

func TestEndSessionByOwnerNotifiesParticipants(t *testing.T) {
	svc, sessions, _, notifier := newSessionFixture(t)
	ctx := context.Background()
	ended := activeSession()
	ended.Status = models.SessionEnded
	endedAt := fixedNow
	ended.EndedAt = &endedAt
	notifier.TrackSession(activeSession())

	sessions.On("Get", ctx, int64(3)).Return(activeSession(), nil)
	sessions.On("End", ctx, int64(3), "agent-1", fixedNow).Return(ended, nil).Once()

	got, err := svc.End(ctx, 3, "agent-1", false)
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, got.Status)
	require.Len(t, notifier.toSession[3], 1)
	assert.Equal(t, models.EventSessionEnded, eventType(notifier.toSession[3][0]))
	assert.NotContains(t, notifier.tracked, int64(3))
}

func TestEndSessionForbiddenForOtherAgent(t *testing.T) {
	svc, sessions, _, notifier := newSessionFixture(t)
	ctx := context.Background()
	sessions.On("Get", ctx, int64(3)).Return(activeSession(), nil)

	_, err := svc.End(ctx, 3, "agent-2", false)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	sessions.AssertNotCalled(t, "End", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, notifier.toSession)
}

func TestEndSessionByAdmin(t *testing.T) {
	svc, sessions, _, _ := newSessionFixture(t)
	ctx := context.Background()
	ended := activeSession()
	ended.Status = models.SessionEnded
	sessions.On("Get", ctx, int64(3)).Return(activeSession(), nil)
	sessions.On("End", ctx, int64(3), "admin-1", fixedNow).Return(ended, nil)

	_, err := svc.End(ctx, 3, "admin-1", true)
	require.NoError(t, err)
}

func TestEndSessionAlreadyEnded(t *testing.T) {
	svc, sessions, _, _ := newSessionFixture(t)
	ctx := context.Background()
	sessions.On("Get", ctx, int64(3)).Return(activeSession(), nil)
	sessions.On("End", ctx, int64(3), "agent-1", fixedNow).Return(nil, repositories.ErrSessionNotFound)

	_, err := svc.End(ctx, 3, "agent-1", false)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEndSessionEndedByOtherAgentIsNotFound(t *testing.T) {
	svc, sessions, _, notifier := newSessionFixture(t)
	ctx := context.Background()
	ended := activeSession()
	ended.Status = models.SessionEnded
	sessions.On("Get", ctx, int64(3)).Return(ended, nil)

	_, err := svc.End(ctx, 3, "agent-2", false)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NotErrorIs(t, err, apperrors.ErrForbidden)
	sessions.AssertNotCalled(t, "End", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, notifier.toSession[3])
}

func TestMessagesForNonParticipant(t *testing.T) {
	svc, sessions, messages, _ := newSessionFixture(t)
	ctx := context.Background()
	sessions.On("Get", ctx, int64(3)).Return(activeSession(), nil)
	messages.On("ListBySession", ctx, int64(3)).Return([]models.ChatMessage{{ID: 1}, {ID: 2}}, nil)

	_, err := svc.MessagesFor(ctx, 3, "agent-2", false)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := svc.MessagesFor(ctx, 3, "agent-1", false)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.MessagesFor(ctx, 3, "admin-1", true)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestListAllRejectsUnknownStatus(t *testing.T) {
	svc, sessions, _, _ := newSessionFixture(t)
	status := models.SessionStatus("archived")

	_, err := svc.ListAll(context.Background(), &status)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	sessions.AssertNotCalled(t, "ListAll", mock.Anything, mock.Anything)
}
