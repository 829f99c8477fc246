package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// User is the demographics row. Text columns come back as empty strings
// when unset so callers never deal with NULLs.
type User struct {
	ID                     string
	FullName               string
	DateOfBirth            string
	GenderIdentity         string
	SexualOrientation      string
	City                   string
	Country                string
	Nationality            string
	Ethnicity              string
	NativeLanguage         string
	Religion               string
	ReligiousPracticeLevel string
	ChildrenIntent         string
	MaritalHistory         string
	Smoking                string
	Drinking               string
	DietaryRestrictions    string
	RelationshipIntent     string
	RelationshipTimeline   string
	Occupation             string
	Industry               string
	EducationLevel         string
	CasteCommunity         string
	HeightCM               int
	ProfileActive          bool
	MatchingActivatedAt    *time.Time
	CreatedAt              time.Time
	LastActive             time.Time
}

// hardFilterColumns is the allow-list for UpdateHardFilters. Order fixes
// the generated SET clause so queries are deterministic. Age is derived
// from date_of_birth and never stored.
var hardFilterColumns = []string{
	"full_name",
	"date_of_birth",
	"gender_identity",
	"sexual_orientation",
	"city",
	"country",
	"nationality",
	"ethnicity",
	"native_language",
	"religion",
	"religious_practice_level",
	"children_intent",
	"marital_history",
	"smoking",
	"drinking",
	"dietary_restrictions",
	"relationship_intent",
	"relationship_timeline",
	"occupation",
	"industry",
	"education_level",
	"caste_community",
	"height_cm",
}

// CreateUser inserts the user row if missing, otherwise touches
// last_active. Safe to call on every turn.
func (s *Store) CreateUser(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id) VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET last_active = now()`, userID)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser returns nil without error when the user does not exist.
func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id,
			COALESCE(full_name, ''), COALESCE(date_of_birth, ''),
			COALESCE(gender_identity, ''), COALESCE(sexual_orientation, ''),
			COALESCE(city, ''), COALESCE(country, ''),
			COALESCE(nationality, ''), COALESCE(ethnicity, ''),
			COALESCE(native_language, ''), COALESCE(religion, ''),
			COALESCE(religious_practice_level, ''), COALESCE(children_intent, ''),
			COALESCE(marital_history, ''), COALESCE(smoking, ''),
			COALESCE(drinking, ''), COALESCE(dietary_restrictions, ''),
			COALESCE(relationship_intent, ''), COALESCE(relationship_timeline, ''),
			COALESCE(occupation, ''), COALESCE(industry, ''),
			COALESCE(education_level, ''), COALESCE(caste_community, ''),
			COALESCE(height_cm, 0),
			profile_active, matching_activated_at, created_at, last_active
		FROM users WHERE id = $1`, userID)

	var (
		user      User
		activated sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.FullName, &user.DateOfBirth,
		&user.GenderIdentity, &user.SexualOrientation,
		&user.City, &user.Country,
		&user.Nationality, &user.Ethnicity,
		&user.NativeLanguage, &user.Religion,
		&user.ReligiousPracticeLevel, &user.ChildrenIntent,
		&user.MaritalHistory, &user.Smoking,
		&user.Drinking, &user.DietaryRestrictions,
		&user.RelationshipIntent, &user.RelationshipTimeline,
		&user.Occupation, &user.Industry,
		&user.EducationLevel, &user.CasteCommunity,
		&user.HeightCM,
		&user.ProfileActive, &activated, &user.CreatedAt, &user.LastActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if activated.Valid {
		user.MatchingActivatedAt = &activated.Time
	}
	return &user, nil
}

// UpdateHardFilters writes extracted demographic fields onto the user
// row. Only allow-listed columns are set; unknown fields and unusable
// values are skipped with a warning, never an error.
func (s *Store) UpdateHardFilters(ctx context.Context, userID string, filters map[string]any) error {
	if len(filters) == 0 {
		return nil
	}

	if err := s.CreateUser(ctx, userID); err != nil {
		return err
	}

	assignments, args, skipped := hardFilterAssignments(filters)
	if len(skipped) > 0 {
		s.logger.Warn("skipping unusable hard filter fields",
			zap.String("user_id", userID),
			zap.Strings("fields", skipped),
		)
	}
	if len(assignments) == 0 {
		return nil
	}

	assignments = append(assignments, "last_active = now()")
	args = append(args, userID)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d",
		strings.Join(assignments, ", "), len(args))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update hard filters: %w", err)
	}

	s.logger.Debug("hard filters updated",
		zap.String("user_id", userID),
		zap.Int("fields", len(assignments)-1),
	)
	return nil
}

// hardFilterAssignments builds the SET clause in allow-list order and
// reports every skipped field name.
func hardFilterAssignments(filters map[string]any) ([]string, []any, []string) {
	var (
		assignments []string
		args        []any
		skipped     []string
	)

	allowed := make(map[string]bool, len(hardFilterColumns))
	for _, column := range hardFilterColumns {
		allowed[column] = true

		raw, ok := filters[column]
		if !ok {
			continue
		}
		value, usable := hardFilterValue(column, raw)
		if !usable {
			skipped = append(skipped, column)
			continue
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	for field := range filters {
		if !allowed[field] {
			skipped = append(skipped, field)
		}
	}
	sort.Strings(skipped)

	return assignments, args, skipped
}

func hardFilterValue(column string, raw any) (any, bool) {
	if column == "height_cm" {
		switch v := raw.(type) {
		case float64:
			return int(math.Round(v)), true
		case int:
			return v, true
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, false
			}
			return n, true
		}
		return nil, false
	}

	switch v := raw.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		return trimmed, trimmed != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return nil, false
}
