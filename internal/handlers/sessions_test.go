package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"livechat-service/internal/apperrors"
	"livechat-service/internal/auth"
	"livechat-service/internal/models"
	"livechat-service/internal/presence"
)

func setupSessionRouter(handler *SessionHandler, p auth.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/chat/sessions/:id/messages/public", handler.PublicMessages)

	authed := r.Group("/chat", withPrincipal(p))
	authed.GET("/sessions", handler.ListMine)
	authed.GET("/sessions/all", handler.ListAll)
	authed.GET("/sessions/total", handler.Totals)
	authed.POST("/sessions/:id/end", handler.End)
	authed.GET("/sessions/:id/messages", handler.Messages)
	authed.GET("/agents/online", handler.OnlineAgents)
	return r
}

func TestListMineUsesCaller(t *testing.T) {
	sessions := new(sessionServiceMock)
	router := setupSessionRouter(NewSessionHandler(sessions, nil, nil), agentPrincipal)
	last := "thanks"
	sessions.On("ListForAgent", mock.Anything, "agent-1").Return([]models.SessionSummary{{
		ChatSession:  models.ChatSession{ID: 3, UserID: "user_abc", SupportUserID: "agent-1", Status: models.SessionActive, MessageCount: 4, LastMessage: &last},
		CategoryName: "Billing & Pricing",
	}}, nil).Once()

	rec := serve(router, http.MethodGet, "/chat/sessions", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody(t, rec)["sessions"].([]any)
	require.Len(t, list, 1)
	entry := list[0].(map[string]any)
	assert.Equal(t, "Anonymous", entry["user_name"])
	assert.Equal(t, float64(4), entry["message_count"])
	assert.Equal(t, "thanks", entry["last_message"])
	sessions.AssertExpectations(t)
}

func TestListAllStatusFilter(t *testing.T) {
	sessions := new(sessionServiceMock)
	router := setupSessionRouter(NewSessionHandler(sessions, nil, nil), agentPrincipal)
	sessions.On("ListAll", mock.Anything, mock.MatchedBy(func(s *models.SessionStatus) bool {
		return s != nil && *s == models.SessionEnded
	})).Return([]models.SessionSummary{}, nil).Once()
	sessions.On("ListAll", mock.Anything, (*models.SessionStatus)(nil)).Return(nil, nil).Once()
	sessions.On("ListAll", mock.Anything, mock.MatchedBy(func(s *models.SessionStatus) bool {
		return s != nil && *s == "bogus"
	})).Return(nil, fmt.Errorf("unknown session status: %w", apperrors.ErrValidation)).Once()

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/chat/sessions/all?status=ended", nil).Code)
	rec := serve(router, http.MethodGet, "/chat/sessions/all", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessions":[]}`, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/chat/sessions/all?status=bogus", nil).Code)
	sessions.AssertExpectations(t)
}

func TestSessionTotals(t *testing.T) {
	sessions := new(sessionServiceMock)
	router := setupSessionRouter(NewSessionHandler(sessions, nil, nil), agentPrincipal)
	sessions.On("Totals", mock.Anything).Return(models.SessionTotals{Total: 5, Active: 2, Ended: 3}, nil).Once()

	rec := serve(router, http.MethodGet, "/chat/sessions/total", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":5,"active":2,"ended":3}`, rec.Body.String())
}

func TestEndSessionOutcomes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"ended", nil, http.StatusOK},
		{"not active", fmt.Errorf("chat session 3 not active: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{"other agent", fmt.Errorf("chat session 3: %w", apperrors.ErrForbidden), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessions := new(sessionServiceMock)
			router := setupSessionRouter(NewSessionHandler(sessions, nil, nil), agentPrincipal)
			endedAt := time.Now()
			sessions.On("End", mock.Anything, int64(3), "agent-1", false).
				Return(models.ChatSession{ID: 3, Status: models.SessionEnded, EndedAt: &endedAt}, tc.err).Once()

			rec := serve(router, http.MethodPost, "/chat/sessions/3/end", nil)
			require.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, "Chat session ended", decodeBody(t, rec)["message"])
			}
		})
	}
}

func TestEndSessionPassesAdminFlag(t *testing.T) {
	sessions := new(sessionServiceMock)
	admin := auth.Principal{ID: "admin-1", IsAdmin: true}
	router := setupSessionRouter(NewSessionHandler(sessions, nil, nil), admin)
	sessions.On("End", mock.Anything, int64(3), "admin-1", true).Return(models.ChatSession{ID: 3}, nil).Once()

	require.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/chat/sessions/3/end", nil).Code)
	sessions.AssertExpectations(t)
}

func TestMessagesRestrictedToParticipants(t *testing.T) {
	sessions := new(sessionServiceMock)
	router := setupSessionRouter(NewSessionHandler(sessions, nil, nil), agentPrincipal)
	sessions.On("MessagesFor", mock.Anything, int64(3), "agent-1", false).
		Return(nil, fmt.Errorf("chat session 3: %w", apperrors.ErrNotFound)).Once()

	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/chat/sessions/3/messages", nil).Code)
}

func TestPublicMessagesShape(t *testing.T) {
	sessions := new(sessionServiceMock)
	router := setupSessionRouter(NewSessionHandler(sessions, nil, nil), agentPrincipal)
	sessions.On("Messages", mock.Anything, int64(3)).Return([]models.ChatMessage{
		{ID: 1, SessionID: 3, SenderType: models.SenderUser, SenderID: "user_abc", Message: "Hello", MessageType: "text"},
	}, nil).Once()

	rec := serve(router, http.MethodGet, "/chat/sessions/3/messages/public", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody(t, rec)["messages"].([]any)
	require.Len(t, list, 1)
	msg := list[0].(map[string]any)
	assert.Equal(t, "Hello", msg["message"])
	assert.Equal(t, "user", msg["sender_type"])
	assert.Equal(t, false, msg["is_read"])
}

func TestOnlineAgents(t *testing.T) {
	store := new(presenceMock)
	router := setupSessionRouter(NewSessionHandler(new(sessionServiceMock), store, nil), agentPrincipal)
	store.On("Online", mock.Anything).Return([]presence.Agent{{AgentID: "agent-1"}, {AgentID: "agent-2"}}, nil).Once()

	rec := serve(router, http.MethodGet, "/chat/agents/online", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])
}
