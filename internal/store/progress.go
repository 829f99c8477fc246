package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Tier1RequiredFields are the basics every profile needs before matching
// can start. Tier 1 completion is the share of these present.
var Tier1RequiredFields = []string{
	"full_name",
	"date_of_birth",
	"gender_identity",
	"sexual_orientation",
	"city",
	"religion",
	"children_intent",
	"marital_history",
	"smoking",
	"drinking",
	"dietary_restrictions",
	"relationship_intent",
	"relationship_timeline",
	"education_level",
	"occupation",
}

// Field targets for the open-ended tiers. Tier 4 tracks fields without a
// completion target.
const (
	Tier2TargetFields = 40
	Tier3TargetFields = 30
)

// Activation thresholds: every basic present plus 70% breadth.
const (
	MVPTier1Minimum = 100.0
	MVPTier2Minimum = 70.0
)

// Completeness weights per tier.
const (
	tier1Weight = 0.5
	tier2Weight = 0.3
	tier3Weight = 0.2
)

// TierProgress mirrors the tier_progress row.
type TierProgress struct {
	UserID             string
	Tier1Completion    float64
	Tier2Completion    float64
	Tier3Completion    float64
	Tier4Completion    float64
	CompletedFields    map[string][]string
	OpenEndedResponses []OpenEndedResponse
	OpenEndedCount     int
	SessionCount       int
	FirstSessionAt     *time.Time
	LastSessionAt      *time.Time
	MVPAchieved        bool
	MVPAchievedAt      *time.Time
	MVPBlockedReasons  []string
}

// OpenEndedResponse logs a substantive free-text answer.
type OpenEndedResponse struct {
	Question         string `json:"question,omitempty"`
	Response         string `json:"response"`
	SignalsExtracted int    `json:"signals_extracted"`
	AskedAt          string `json:"asked_at,omitempty"`
}

// MVPStatus reports whether the profile can start matching, and what
// blocks it when it cannot.
type MVPStatus struct {
	MeetsMVP       bool
	BlockedReasons []string
}

const tierProgressColumns = `user_id,
	tier1_completion, tier2_completion, tier3_completion, tier4_completion,
	completed_fields, open_ended_responses, open_ended_count,
	session_count, first_session_at, last_session_at,
	mvp_achieved, mvp_achieved_at, mvp_blocked_reasons`

// UpdateTierProgress merges newly completed fields into the tracked
// sets, recomputes per-tier completion, logs the open-ended response
// when given, bumps session counters, and refreshes MVP status. The
// whole update runs in one transaction and returns the resulting row.
func (s *Store) UpdateTierProgress(ctx context.Context, userID string, completedFields map[string][]string, openEnded *OpenEndedResponse, sessionIncrement bool) (*TierProgress, error) {
	if err := s.CreateUser(ctx, userID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin progress update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tier_progress (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return nil, fmt.Errorf("ensure progress row: %w", err)
	}

	var (
		rawFields    []byte
		rawResponses []byte
		sessionCount int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT completed_fields, open_ended_responses, session_count
		FROM tier_progress WHERE user_id = $1 FOR UPDATE`, userID).
		Scan(&rawFields, &rawResponses, &sessionCount)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	existingFields := map[string][]string{}
	if len(rawFields) > 0 {
		if err := json.Unmarshal(rawFields, &existingFields); err != nil {
			return nil, fmt.Errorf("decode completed fields: %w", err)
		}
	}

	merged := mergeFieldSets(existingFields, completedFields)
	completions := tierCompletions(merged)

	fieldsPayload, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode completed fields: %w", err)
	}

	var (
		assignments []string
		args        []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	set("tier1_completion", completions["tier1"])
	set("tier2_completion", completions["tier2"])
	set("tier3_completion", completions["tier3"])
	set("tier4_completion", completions["tier4"])
	args = append(args, fieldsPayload)
	assignments = append(assignments, fmt.Sprintf("completed_fields = $%d::jsonb", len(args)))

	if openEnded != nil {
		responses := []OpenEndedResponse{}
		if len(rawResponses) > 0 {
			if err := json.Unmarshal(rawResponses, &responses); err != nil {
				return nil, fmt.Errorf("decode open-ended responses: %w", err)
			}
		}

		entry := *openEnded
		if entry.AskedAt == "" {
			entry.AskedAt = time.Now().UTC().Format(time.RFC3339)
		}
		responses = append(responses, entry)

		payload, err := json.Marshal(responses)
		if err != nil {
			return nil, fmt.Errorf("encode open-ended responses: %w", err)
		}
		args = append(args, payload)
		assignments = append(assignments, fmt.Sprintf("open_ended_responses = $%d::jsonb", len(args)))
		set("open_ended_count", len(responses))
	}

	if sessionIncrement {
		set("session_count", sessionCount+1)
		assignments = append(assignments, "first_session_at = COALESCE(first_session_at, now())")
		assignments = append(assignments, "last_session_at = now()")
	}

	assignments = append(assignments, "updated_at = now()")
	args = append(args, userID)

	query := fmt.Sprintf("UPDATE tier_progress SET %s WHERE user_id = $%d",
		strings.Join(assignments, ", "), len(args))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	status := evaluateMVP(completions, merged["tier1"])
	if status.MeetsMVP {
		if _, err := tx.ExecContext(ctx, `
			UPDATE tier_progress
			SET mvp_achieved = TRUE,
				mvp_achieved_at = COALESCE(mvp_achieved_at, now()),
				mvp_blocked_reasons = NULL
			WHERE user_id = $1`, userID); err != nil {
			return nil, fmt.Errorf("mark mvp achieved: %w", err)
		}
		// Activation is one-way: a later regression never deactivates.
		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET profile_active = TRUE,
				matching_activated_at = COALESCE(matching_activated_at, now())
			WHERE id = $1`, userID); err != nil {
			return nil, fmt.Errorf("activate profile: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			UPDATE tier_progress
			SET mvp_achieved = FALSE, mvp_blocked_reasons = $2
			WHERE user_id = $1`, userID, pq.Array(status.BlockedReasons)); err != nil {
			return nil, fmt.Errorf("record mvp blockers: %w", err)
		}
	}

	row := tx.QueryRowContext(ctx,
		"SELECT "+tierProgressColumns+" FROM tier_progress WHERE user_id = $1", userID)
	progress, err := scanTierProgress(row)
	if err != nil {
		return nil, fmt.Errorf("reload progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit progress update: %w", err)
	}

	s.logger.Debug("tier progress updated",
		zap.String("user_id", userID),
		zap.Float64("tier1", progress.Tier1Completion),
		zap.Float64("tier2", progress.Tier2Completion),
		zap.Bool("mvp", progress.MVPAchieved),
	)
	return progress, nil
}

// GetTierProgress returns nil without error when no row exists yet.
func (s *Store) GetTierProgress(ctx context.Context, userID string) (*TierProgress, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+tierProgressColumns+" FROM tier_progress WHERE user_id = $1", userID)

	progress, err := scanTierProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tier progress: %w", err)
	}
	return progress, nil
}

// CheckMVPActivation evaluates the activation rule against the stored
// progress without persisting anything.
func (s *Store) CheckMVPActivation(ctx context.Context, userID string) (MVPStatus, error) {
	progress, err := s.GetTierProgress(ctx, userID)
	if err != nil {
		return MVPStatus{}, err
	}
	if progress == nil {
		return evaluateMVP(map[string]float64{}, nil), nil
	}

	completions := map[string]float64{
		"tier1": progress.Tier1Completion,
		"tier2": progress.Tier2Completion,
		"tier3": progress.Tier3Completion,
		"tier4": progress.Tier4Completion,
	}
	return evaluateMVP(completions, progress.CompletedFields["tier1"]), nil
}

// Completeness is the weighted overall percentage (0-100).
func (s *Store) Completeness(ctx context.Context, userID string) (float64, error) {
	progress, err := s.GetTierProgress(ctx, userID)
	if err != nil {
		return 0, err
	}
	if progress == nil {
		return 0, nil
	}

	total := progress.Tier1Completion*tier1Weight +
		progress.Tier2Completion*tier2Weight +
		progress.Tier3Completion*tier3Weight
	return round2(total), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTierProgress(row rowScanner) (*TierProgress, error) {
	var (
		progress     TierProgress
		rawFields    []byte
		rawResponses []byte
		firstSession sql.NullTime
		lastSession  sql.NullTime
		achievedAt   sql.NullTime
		reasons      pq.StringArray
	)
	err := row.Scan(
		&progress.UserID,
		&progress.Tier1Completion, &progress.Tier2Completion,
		&progress.Tier3Completion, &progress.Tier4Completion,
		&rawFields, &rawResponses, &progress.OpenEndedCount,
		&progress.SessionCount, &firstSession, &lastSession,
		&progress.MVPAchieved, &achievedAt, &reasons,
	)
	if err != nil {
		return nil, err
	}

	progress.CompletedFields = map[string][]string{}
	if len(rawFields) > 0 {
		if err := json.Unmarshal(rawFields, &progress.CompletedFields); err != nil {
			return nil, fmt.Errorf("decode completed fields: %w", err)
		}
	}
	if len(rawResponses) > 0 {
		if err := json.Unmarshal(rawResponses, &progress.OpenEndedResponses); err != nil {
			return nil, fmt.Errorf("decode open-ended responses: %w", err)
		}
	}

	if firstSession.Valid {
		progress.FirstSessionAt = &firstSession.Time
	}
	if lastSession.Valid {
		progress.LastSessionAt = &lastSession.Time
	}
	if achievedAt.Valid {
		progress.MVPAchievedAt = &achievedAt.Time
	}
	progress.MVPBlockedReasons = reasons

	return &progress, nil
}

// mergeFieldSets unions incoming field names into the existing per-tier
// sets, keeping append order and dropping duplicates. Neither input is
// mutated.
func mergeFieldSets(existing, incoming map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(existing)+len(incoming))
	for tier, fields := range existing {
		merged[tier] = append([]string(nil), fields...)
	}

	for tier, fields := range incoming {
		seen := make(map[string]bool, len(merged[tier])+len(fields))
		for _, field := range merged[tier] {
			seen[field] = true
		}
		for _, field := range fields {
			field = strings.TrimSpace(field)
			if field == "" || seen[field] {
				continue
			}
			seen[field] = true
			merged[tier] = append(merged[tier], field)
		}
	}
	return merged
}

// tierCompletions recomputes per-tier percentages from the merged field
// sets. Tier 1 counts only the required basics; tiers 2 and 3 measure
// against their field targets; tier 4 has no target.
func tierCompletions(fields map[string][]string) map[string]float64 {
	completions := map[string]float64{"tier1": 0, "tier2": 0, "tier3": 0, "tier4": 0}

	if tier1 := fields["tier1"]; len(tier1) > 0 {
		have := make(map[string]bool, len(tier1))
		for _, field := range tier1 {
			have[field] = true
		}
		count := 0
		for _, required := range Tier1RequiredFields {
			if have[required] {
				count++
			}
		}
		completions["tier1"] = round2(float64(count) / float64(len(Tier1RequiredFields)) * 100)
	}

	completions["tier2"] = targetCompletion(len(fields["tier2"]), Tier2TargetFields)
	completions["tier3"] = targetCompletion(len(fields["tier3"]), Tier3TargetFields)

	return completions
}

func targetCompletion(count, target int) float64 {
	if count <= 0 {
		return 0
	}
	pct := float64(count) / float64(target) * 100
	if pct > 100 {
		pct = 100
	}
	return round2(pct)
}

// evaluateMVP applies the activation rule: every required basic present
// and tier 2 at the breadth minimum. Reasons are worded for the user.
func evaluateMVP(completions map[string]float64, completedTier1 []string) MVPStatus {
	var reasons []string

	if missing := missingTier1(completedTier1); len(missing) > 0 {
		reasons = append(reasons, "basics still missing: "+strings.Join(missing, ", "))
	}
	if tier2 := completions["tier2"]; tier2 < MVPTier2Minimum {
		reasons = append(reasons,
			fmt.Sprintf("more lifestyle and values coverage needed (%.0f%% of %.0f%%)", tier2, MVPTier2Minimum))
	}

	return MVPStatus{MeetsMVP: len(reasons) == 0, BlockedReasons: reasons}
}

// missingTier1 lists required basics not yet completed, in catalog order.
func missingTier1(completed []string) []string {
	have := make(map[string]bool, len(completed))
	for _, field := range completed {
		have[field] = true
	}

	var missing []string
	for _, required := range Tier1RequiredFields {
		if !have[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
