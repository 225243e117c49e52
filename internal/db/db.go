package db

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"livechat-service/internal/logger"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string, maxOpenConns int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS chat_categories (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL UNIQUE,
        description TEXT NOT NULL DEFAULT '',
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS chat_subcategories (
        id BIGSERIAL PRIMARY KEY,
        category_id BIGINT NOT NULL REFERENCES chat_categories(id),
        name TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        UNIQUE(category_id, name)
    );`,
	`CREATE TABLE IF NOT EXISTS chat_requests (
        id BIGSERIAL PRIMARY KEY,
        user_id TEXT NOT NULL,
        user_name TEXT,
        user_email TEXT,
        category_id BIGINT NOT NULL REFERENCES chat_categories(id),
        subcategory_id BIGINT REFERENCES chat_subcategories(id),
        message TEXT,
        status TEXT NOT NULL DEFAULT 'pending'
            CHECK (status IN ('pending', 'accepted', 'rejected', 'timeout', 'canceled')),
        assigned_to TEXT,
        rejection_reason TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        accepted_at TIMESTAMPTZ,
        rejected_at TIMESTAMPTZ,
        closed_at TIMESTAMPTZ,
        expires_at TIMESTAMPTZ NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_chat_requests_pending ON chat_requests (created_at) WHERE status = 'pending';`,
	`CREATE TABLE IF NOT EXISTS chat_sessions (
        id BIGSERIAL PRIMARY KEY,
        request_id BIGINT NOT NULL UNIQUE REFERENCES chat_requests(id),
        user_id TEXT NOT NULL,
        support_user_id TEXT NOT NULL,
        status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'ended')),
        started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        ended_at TIMESTAMPTZ,
        ended_by TEXT,
        last_message TEXT,
        last_sender_type TEXT,
        message_count INT NOT NULL DEFAULT 0
    );`,
	`CREATE INDEX IF NOT EXISTS idx_chat_sessions_support ON chat_sessions (support_user_id, status);`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
        id BIGSERIAL PRIMARY KEY,
        session_id BIGINT NOT NULL REFERENCES chat_sessions(id),
        sender_type TEXT NOT NULL CHECK (sender_type IN ('user', 'support')),
        sender_id TEXT NOT NULL,
        message TEXT NOT NULL,
        message_type TEXT NOT NULL DEFAULT 'text',
        is_read BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages (session_id, id);`,
	`CREATE TABLE IF NOT EXISTS chat_feedback (
        id BIGSERIAL PRIMARY KEY,
        session_id BIGINT NOT NULL UNIQUE REFERENCES chat_sessions(id),
        user_id TEXT NOT NULL,
        admin_user_id TEXT NOT NULL,
        overall_rating SMALLINT NOT NULL CHECK (overall_rating BETWEEN 1 AND 5),
        support_quality SMALLINT NOT NULL CHECK (support_quality BETWEEN 1 AND 5),
        response_time SMALLINT NOT NULL CHECK (response_time BETWEEN 1 AND 5),
        comments TEXT,
        would_recommend BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS notifications (
        id BIGSERIAL PRIMARY KEY,
        title TEXT NOT NULL,
        message TEXT NOT NULL,
        type TEXT NOT NULL,
        related_id BIGINT,
        is_read BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`INSERT INTO chat_categories (name, description) VALUES
        ('General Support', 'General questions and support'),
        ('Technical Issues', 'Technical problems and troubleshooting'),
        ('Account Help', 'Account related questions'),
        ('Billing & Pricing', 'Billing, payments and pricing questions'),
        ('Feature Request', 'Suggestions for new features'),
        ('Other', 'Anything else')
    ON CONFLICT (name) DO NOTHING;`,
}

func runMigrations(db *sqlx.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	logger.Log.Info("database migrations applied", zap.Int("count", len(migrations)))
	return nil
}
