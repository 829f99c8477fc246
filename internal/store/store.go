// Package store persists profiles, signals, preferences, tier progress,
// matches and the interaction log in Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// Store wraps the shared Postgres connection. Methods are safe for
// concurrent use; writes that read-modify-write run inside transactions.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to Postgres and verifies the connection with a ping.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema bootstraps the tables when they do not exist yet. It is
// idempotent and intentionally not a migration mechanism.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			full_name TEXT,
			date_of_birth TEXT,
			gender_identity TEXT,
			sexual_orientation TEXT,
			city TEXT,
			country TEXT,
			nationality TEXT,
			ethnicity TEXT,
			native_language TEXT,
			religion TEXT,
			religious_practice_level TEXT,
			children_intent TEXT,
			marital_history TEXT,
			smoking TEXT,
			drinking TEXT,
			dietary_restrictions TEXT,
			relationship_intent TEXT,
			relationship_timeline TEXT,
			occupation TEXT,
			industry TEXT,
			education_level TEXT,
			caste_community TEXT,
			height_cm INTEGER,
			profile_active BOOLEAN NOT NULL DEFAULT FALSE,
			matching_activated_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_active TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS user_signals (
			user_id TEXT PRIMARY KEY REFERENCES users(id),
			lifestyle JSONB NOT NULL DEFAULT '{}',
			"values" JSONB NOT NULL DEFAULT '{}',
			relationship_style JSONB NOT NULL DEFAULT '{}',
			personality JSONB NOT NULL DEFAULT '{}',
			family_background JSONB NOT NULL DEFAULT '{}',
			media_signals JSONB NOT NULL DEFAULT '{}',
			match_learnings JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT PRIMARY KEY REFERENCES users(id),
			age_min INTEGER,
			age_max INTEGER,
			gender_preference TEXT[],
			location_preference TEXT[],
			religion_preference TEXT[],
			children_preference TEXT,
			soft_preferences JSONB NOT NULL DEFAULT '{}',
			dealbreakers TEXT[],
			green_flags TEXT[],
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS tier_progress (
			user_id TEXT PRIMARY KEY REFERENCES users(id),
			tier1_completion DOUBLE PRECISION NOT NULL DEFAULT 0,
			tier2_completion DOUBLE PRECISION NOT NULL DEFAULT 0,
			tier3_completion DOUBLE PRECISION NOT NULL DEFAULT 0,
			tier4_completion DOUBLE PRECISION NOT NULL DEFAULT 0,
			completed_fields JSONB NOT NULL DEFAULT '{}',
			open_ended_responses JSONB NOT NULL DEFAULT '[]',
			open_ended_count INTEGER NOT NULL DEFAULT 0,
			session_count INTEGER NOT NULL DEFAULT 0,
			first_session_at TIMESTAMPTZ,
			last_session_at TIMESTAMPTZ,
			mvp_achieved BOOLEAN NOT NULL DEFAULT FALSE,
			mvp_achieved_at TIMESTAMPTZ,
			mvp_blocked_reasons TEXT[],
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			user_a TEXT NOT NULL REFERENCES users(id),
			user_b TEXT NOT NULL REFERENCES users(id),
			match_score DOUBLE PRECISION NOT NULL,
			score_breakdown JSONB,
			status TEXT NOT NULL DEFAULT 'proposed',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_a, user_b)
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			direction TEXT NOT NULL,
			content TEXT,
			extracted_data JSONB,
			interaction_type TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS interactions_user_created_idx
			ON interactions (user_id, created_at DESC)`,
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	s.logger.Debug("schema ensured", zap.Int("statements", len(statements)))
	return nil
}
