package repositories

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat-service/internal/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func requestRow(id int64, status string) []driver.Value {
	return []driver.Value{id, "user_abc", "Alice", nil, int64(1), nil, "help", status,
		nil, nil, testNow, nil, nil, nil, testNow.Add(2 * time.Minute)}
}

func requestRows(rows ...[]driver.Value) *sqlmock.Rows {
	r := sqlmock.NewRows([]string{"id", "user_id", "user_name", "user_email", "category_id", "subcategory_id",
		"message", "status", "assigned_to", "rejection_reason", "created_at", "accepted_at", "rejected_at",
		"closed_at", "expires_at"})
	for _, row := range rows {
		r.AddRow(row...)
	}
	return r
}

func sessionRows(id, requestID int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "request_id", "user_id", "support_user_id", "status", "started_at",
		"ended_at", "ended_by", "last_message", "last_sender_type", "message_count"}).
		AddRow(id, requestID, "user_abc", "agent-1", status, testNow, nil, nil, nil, nil, 0)
}

func TestRequestRepoAcceptCreatesSession(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE chat_requests\s+SET status = 'accepted'`).
		WithArgs(int64(7), "agent-1", testNow).
		WillReturnRows(requestRows(requestRow(7, "accepted")))
	mock.ExpectQuery(`INSERT INTO chat_sessions`).
		WithArgs(int64(7), "user_abc", "agent-1", testNow).
		WillReturnRows(sessionRows(3, 7, "active"))
	mock.ExpectCommit()

	req, session, err := repo.Accept(context.Background(), 7, "agent-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, models.RequestAccepted, req.Status)
	assert.Equal(t, int64(3), session.ID)
	assert.Equal(t, "agent-1", session.SupportUserID)
	assert.Equal(t, req.UserID, session.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoAcceptNotPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE chat_requests\s+SET status = 'accepted'`).
		WithArgs(int64(7), "agent-1", testNow).
		WillReturnRows(requestRows())
	mock.ExpectRollback()

	_, _, err := repo.Accept(context.Background(), 7, "agent-1", testNow)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoAcceptRollsBackWhenSessionInsertFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE chat_requests`).WillReturnRows(requestRows(requestRow(7, "accepted")))
	mock.ExpectQuery(`INSERT INTO chat_sessions`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, _, err := repo.Accept(context.Background(), 7, "agent-1", testNow)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoCancelRequiresOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepo(db)

	mock.ExpectQuery(`SET status = 'canceled'`).
		WithArgs(int64(4), "user_other", testNow).
		WillReturnRows(requestRows())

	_, err := repo.Cancel(context.Background(), 4, "user_other", testNow)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoRejectStoresReason(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepo(db)
	reason := "out of hours"

	mock.ExpectQuery(`SET status = 'rejected'`).
		WithArgs(int64(5), "agent-2", reason, testNow).
		WillReturnRows(requestRows(requestRow(5, "rejected")))

	req, err := repo.Reject(context.Background(), 5, "agent-2", &reason, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoListPendingJoinsNames(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepo(db)

	cols := []string{"id", "user_id", "user_name", "user_email", "category_id", "subcategory_id",
		"message", "status", "assigned_to", "rejection_reason", "created_at", "accepted_at", "rejected_at",
		"closed_at", "expires_at", "category_name", "subcategory_name"}
	row := append(requestRow(1, "pending"), "General Support", nil)
	mock.ExpectQuery(`WHERE r.status = 'pending' AND r.expires_at > \$1`).
		WithArgs(testNow).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(row...))

	list, err := repo.ListPending(context.Background(), testNow)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "General Support", list[0].CategoryName)
	assert.Nil(t, list[0].SubcategoryName)
	assert.Equal(t, "Alice", *list[0].UserName)
}

func TestRequestRepoExpireOverdue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepo(db)

	mock.ExpectQuery(`SET status = 'timeout', closed_at = \$1\s+WHERE status = 'pending' AND expires_at <= \$1`).
		WithArgs(testNow).
		WillReturnRows(requestRows(requestRow(2, "timeout"), requestRow(3, "timeout")))

	expired, err := repo.ExpireOverdue(context.Background(), testNow)
	require.NoError(t, err)
	assert.Len(t, expired, 2)
}

func TestSessionRepoEndOnlyActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)

	mock.ExpectQuery(`SET status = 'ended'`).
		WithArgs(int64(3), testNow, "agent-1").
		WillReturnRows(sessionRows(3, 7, "ended"))

	session, err := repo.End(context.Background(), 3, "agent-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, session.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepoEndMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)

	mock.ExpectQuery(`SET status = 'ended'`).
		WithArgs(int64(9), testNow, "agent-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.End(context.Background(), 9, "agent-1", testNow)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepoTotals(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)

	mock.ExpectQuery(`FROM chat_sessions`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "ended"}).AddRow(5, 2, 3))

	totals, err := repo.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SessionTotals{Total: 5, Active: 2, Ended: 3}, totals)
}

func TestMessageRepoAppendUpdatesSessionThenInserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE chat_sessions\s+SET last_message = \$2, last_sender_type = \$3, message_count = message_count \+ 1`).
		WithArgs(int64(3), "Hello", "user").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO chat_messages`).
		WithArgs(int64(3), "user", "user_abc", "Hello", "text", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "sender_type", "sender_id", "message", "message_type", "is_read", "created_at"}).
			AddRow(11, 3, "user", "user_abc", "Hello", "text", false, testNow))
	mock.ExpectCommit()

	msg, err := repo.Append(context.Background(), models.ChatMessage{
		SessionID: 3, SenderType: models.SenderUser, SenderID: "user_abc", Message: "Hello",
		MessageType: models.DefaultMessageType, CreatedAt: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoAppendToEndedSession(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE chat_sessions`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), models.ChatMessage{SessionID: 3, SenderType: models.SenderSupport, SenderID: "agent-1", Message: "bye"})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepoListOrdersByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectQuery(`FROM chat_messages WHERE session_id=\$1 ORDER BY id ASC`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "sender_type", "sender_id", "message", "message_type", "is_read", "created_at"}).
			AddRow(1, 3, "user", "user_abc", "Hello", "text", false, testNow).
			AddRow(2, 3, "support", "agent-1", "Hi", "text", false, testNow))

	msgs, err := repo.ListBySession(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[0].Message)
	assert.Equal(t, models.SenderSupport, msgs[1].SenderType)
}

func TestFeedbackRepoDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFeedbackRepo(db)

	mock.ExpectQuery(`INSERT INTO chat_feedback`).WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), models.Feedback{SessionID: 3, UserID: "user_abc", OverallRating: 5})
	assert.ErrorIs(t, err, ErrFeedbackExists)
}

func TestFeedbackRepoStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFeedbackRepo(db)

	mock.ExpectQuery(`AS recommend_rate`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "average_overall", "average_support_quality", "average_response_time", "recommend_rate"}).
			AddRow(2, 4.5, 4.0, 3.5, 0.5))
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "user_id", "admin_user_id", "overall_rating", "support_quality",
			"response_time", "comments", "would_recommend", "created_at"}).
			AddRow(1, 3, "user_abc", "agent-1", 5, 4, 4, nil, true, testNow))

	stats, err := repo.Stats(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.InDelta(t, 4.5, stats.AverageOverall, 0.001)
	assert.Len(t, stats.Recent, 1)
}

func TestCategoryRepoDeleteSoftWhenReferenced(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(1)).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`FROM chat_requests WHERE category_id`).WithArgs(int64(1)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(`UPDATE chat_categories SET is_active = FALSE`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	soft, err := repo.DeleteCategory(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, soft)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepoDeleteHardWhenUnused(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(2)).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`FROM chat_requests WHERE subcategory_id`).WithArgs(int64(2)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM chat_subcategories`).WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	soft, err := repo.DeleteSubcategory(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, soft)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepoDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.DeleteCategory(context.Background(), 9)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryRepoCreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectQuery(`INSERT INTO chat_categories`).
		WithArgs("Other", "").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.CreateCategory(context.Background(), models.CategoryInput{Name: "Other"})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestCategoryRepoListSubcategoriesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)
	categoryID := int64(1)

	mock.ExpectQuery(`FROM chat_subcategories WHERE category_id = \$1 AND is_active = TRUE ORDER BY name ASC`).
		WithArgs(categoryID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "name", "description", "is_active", "created_at"}).
			AddRow(4, 1, "Login", "", true, testNow))

	subs, err := repo.ListSubcategories(context.Background(), &categoryID, true)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Login", subs[0].Name)
}
