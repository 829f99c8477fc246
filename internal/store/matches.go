package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/matching"
)

// Match statuses move proposed -> interested | rejected.
const (
	MatchStatusProposed   = "proposed"
	MatchStatusInterested = "interested"
	MatchStatusRejected   = "rejected"
)

// Match is a stored candidate pairing. UserA sorts before UserB so each
// pair occupies exactly one row regardless of proposal direction.
type Match struct {
	ID        int64
	UserA     string
	UserB     string
	Score     float64
	Breakdown matching.Breakdown
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Other returns the id of the counterpart for the given user.
func (m *Match) Other(userID string) string {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}

func ValidMatchStatus(status string) bool {
	switch status {
	case MatchStatusProposed, MatchStatusInterested, MatchStatusRejected:
		return true
	}
	return false
}

// SaveMatch upserts the pair, refreshing score and breakdown when it is
// proposed again. An existing status survives the refresh.
func (s *Store) SaveMatch(ctx context.Context, userA, userB string, score float64, breakdown matching.Breakdown) (*Match, error) {
	userA = strings.TrimSpace(userA)
	userB = strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return nil, fmt.Errorf("both match user ids are required")
	}
	if userA == userB {
		return nil, fmt.Errorf("cannot match user %s with itself", userA)
	}

	first, second := orderedPair(userA, userB)

	payload, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("encode score breakdown: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO matches (user_a, user_b, match_score, score_breakdown)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (user_a, user_b) DO UPDATE SET
			match_score = EXCLUDED.match_score,
			score_breakdown = EXCLUDED.score_breakdown,
			updated_at = now()
		RETURNING id, user_a, user_b, match_score,
			COALESCE(score_breakdown, '{}'::jsonb), status, created_at, updated_at`,
		first, second, score, payload)

	match, err := scanMatch(row)
	if err != nil {
		return nil, fmt.Errorf("save match: %w", err)
	}

	s.logger.Debug("match saved",
		zap.Int64("match_id", match.ID),
		zap.String("user_a", match.UserA),
		zap.String("user_b", match.UserB),
		zap.Float64("score", match.Score),
	)
	return match, nil
}

// MatchesForUser returns the user's matches, newest first.
func (s *Store) MatchesForUser(ctx context.Context, userID string, limit int) ([]*Match, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_a, user_b, match_score,
			COALESCE(score_breakdown, '{}'::jsonb), status, created_at, updated_at
		FROM matches
		WHERE user_a = $1 OR user_b = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// UpdateMatchStatus sets the status of one match row.
func (s *Store) UpdateMatchStatus(ctx context.Context, matchID int64, status string) error {
	if !ValidMatchStatus(status) {
		return fmt.Errorf("invalid match status %q", status)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE matches SET status = $1, updated_at = now() WHERE id = $2",
		status, matchID)
	if err != nil {
		return fmt.Errorf("update match status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update match status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("match %d not found", matchID)
	}
	return nil
}

func scanMatch(row rowScanner) (*Match, error) {
	var (
		match        Match
		rawBreakdown []byte
	)
	err := row.Scan(&match.ID, &match.UserA, &match.UserB, &match.Score,
		&rawBreakdown, &match.Status, &match.CreatedAt, &match.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(rawBreakdown) > 0 {
		if err := json.Unmarshal(rawBreakdown, &match.Breakdown); err != nil {
			return nil, fmt.Errorf("decode score breakdown: %w", err)
		}
	}
	return &match, nil
}

// orderedPair puts the lexicographically smaller id first.
func orderedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
