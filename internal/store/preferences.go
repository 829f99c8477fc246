package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/extraction"
)

// Preferences is the partner-preferences row as read back from the store.
type Preferences struct {
	AgeMin             int
	AgeMax             int
	GenderPreference   []string
	LocationPreference []string
	ReligionPreference []string
	ChildrenPreference string
	SoftPreferences    map[string]extraction.SoftPreference
	Dealbreakers       []string
	GreenFlags         []string
}

// UpsertPreferences merges extracted partner preferences into the row.
// Scalar filters and preference arrays overwrite (the latest statement
// wins), soft preferences merge per key, dealbreakers and green flags
// accumulate as a case-insensitive union.
func (s *Store) UpsertPreferences(ctx context.Context, userID string, prefs *extraction.Preferences) error {
	if prefs == nil {
		return nil
	}
	if prefs.HardFilters == nil && len(prefs.SoftPreferences) == 0 &&
		len(prefs.Dealbreakers) == 0 && len(prefs.GreenFlags) == 0 {
		return nil
	}

	if err := s.CreateUser(ctx, userID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin preferences upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("ensure preferences row: %w", err)
	}

	var (
		rawSoft      []byte
		dealbreakers pq.StringArray
		greenFlags   pq.StringArray
	)
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(soft_preferences, '{}'::jsonb), dealbreakers, green_flags
		FROM user_preferences WHERE user_id = $1 FOR UPDATE`, userID).
		Scan(&rawSoft, &dealbreakers, &greenFlags)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}

	var (
		assignments []string
		args        []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filters := prefs.HardFilters; filters != nil {
		if filters.AgeMin > 0 {
			set("age_min", filters.AgeMin)
		}
		if filters.AgeMax > 0 {
			set("age_max", filters.AgeMax)
		}
		if len(filters.GenderPreference) > 0 {
			set("gender_preference", pq.Array(filters.GenderPreference))
		}
		if len(filters.LocationPreference) > 0 {
			set("location_preference", pq.Array(filters.LocationPreference))
		}
		if len(filters.ReligionPreference) > 0 {
			set("religion_preference", pq.Array(filters.ReligionPreference))
		}
		if children := strings.TrimSpace(filters.ChildrenPreference); children != "" {
			set("children_preference", children)
		}
	}

	if len(prefs.SoftPreferences) > 0 {
		current := map[string]extraction.SoftPreference{}
		if len(rawSoft) > 0 {
			if err := json.Unmarshal(rawSoft, &current); err != nil {
				return fmt.Errorf("decode soft preferences: %w", err)
			}
		}
		for field, pref := range prefs.SoftPreferences {
			current[field] = pref
		}

		payload, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encode soft preferences: %w", err)
		}
		args = append(args, payload)
		assignments = append(assignments, fmt.Sprintf("soft_preferences = $%d::jsonb", len(args)))
	}

	if len(prefs.Dealbreakers) > 0 {
		set("dealbreakers", pq.Array(unionStrings(dealbreakers, prefs.Dealbreakers)))
	}
	if len(prefs.GreenFlags) > 0 {
		set("green_flags", pq.Array(unionStrings(greenFlags, prefs.GreenFlags)))
	}

	if len(assignments) == 0 {
		return tx.Commit()
	}

	assignments = append(assignments, "updated_at = now()")
	args = append(args, userID)

	query := fmt.Sprintf("UPDATE user_preferences SET %s WHERE user_id = $%d",
		strings.Join(assignments, ", "), len(args))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit preferences upsert: %w", err)
	}

	s.logger.Debug("preferences updated",
		zap.String("user_id", userID),
		zap.Int("fields", len(assignments)-1),
	)
	return nil
}

// GetPreferences returns nil without error when no row exists yet.
func (s *Store) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(age_min, 0), COALESCE(age_max, 0),
			gender_preference, location_preference, religion_preference,
			COALESCE(children_preference, ''),
			COALESCE(soft_preferences, '{}'::jsonb),
			dealbreakers, green_flags
		FROM user_preferences WHERE user_id = $1`, userID)

	var (
		prefs        Preferences
		rawSoft      []byte
		gender       pq.StringArray
		location     pq.StringArray
		religion     pq.StringArray
		dealbreakers pq.StringArray
		greenFlags   pq.StringArray
	)
	err := row.Scan(&prefs.AgeMin, &prefs.AgeMax, &gender, &location, &religion,
		&prefs.ChildrenPreference, &rawSoft, &dealbreakers, &greenFlags)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	prefs.GenderPreference = gender
	prefs.LocationPreference = location
	prefs.ReligionPreference = religion
	prefs.Dealbreakers = dealbreakers
	prefs.GreenFlags = greenFlags

	if len(rawSoft) > 0 {
		prefs.SoftPreferences = map[string]extraction.SoftPreference{}
		if err := json.Unmarshal(rawSoft, &prefs.SoftPreferences); err != nil {
			return nil, fmt.Errorf("decode soft preferences: %w", err)
		}
	}
	return &prefs, nil
}

// unionStrings appends incoming values not already present, comparing
// case-insensitively and preserving first-seen order.
func unionStrings(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing)+len(incoming))

	add := func(values []string) {
		for _, value := range values {
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				continue
			}
			key := strings.ToLower(trimmed)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, trimmed)
		}
	}
	add(existing)
	add(incoming)

	return merged
}
