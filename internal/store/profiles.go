package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/extraction"
	"github.com/nvsudo/jodi/internal/profile"
	"github.com/nvsudo/jodi/internal/signal"
)

// Soft-preference keys that carry scoring weights.
const (
	softPrefLocation    = "location"
	softPrefCaste       = "caste_community"
	softPrefLanguage    = "native_language"
	softPrefDiet        = "diet"
	softPrefAgeFlexible = "age_flexible"
)

// GetProfile assembles the users, user_signals and user_preferences rows
// into the typed profile the scorer consumes. Returns nil without error
// for an unknown user.
func (s *Store) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	signals, err := s.GetSignals(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	assembled := &profile.Profile{
		ID:     user.ID,
		Active: user.ProfileActive,
		Identity: profile.Identity{
			FullName:           user.FullName,
			Gender:             user.GenderIdentity,
			Orientation:        user.SexualOrientation,
			DateOfBirth:        user.DateOfBirth,
			City:               user.City,
			Country:            user.Country,
			Religion:           user.Religion,
			RelationshipIntent: user.RelationshipIntent,
			Timeline:           user.RelationshipTimeline,
			Smoking:            user.Smoking,
			Drinking:           user.Drinking,
			Dietary:            user.DietaryRestrictions,
			MaritalHistory:     user.MaritalHistory,
			CasteCommunity:     user.CasteCommunity,
			NativeLanguage:     user.NativeLanguage,
			Occupation:         user.Occupation,
			EducationLevel:     user.EducationLevel,
			HeightCM:           user.HeightCM,
		},
		Tags: flattenTags(signals),
	}

	if dob, err := profile.ParseDOB(user.DateOfBirth); err == nil {
		assembled.Identity.Age = profile.Age(dob, time.Now())
	}

	assembled.Identity.Vegetarian = deriveVegetarian(user.DietaryRestrictions, signals)
	assembled.Preferences = buildScoringPreferences(prefs)
	assembled.Preferences.CulturalWeight = culturalWeight(signals)

	return assembled, nil
}

// GetActiveProfiles lists every matching-activated profile, ordered by id.
func (s *Store) GetActiveProfiles(ctx context.Context) (*profile.Profiles, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM users WHERE profile_active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}

	profiles := &profile.Profiles{Items: make([]*profile.Profile, 0, len(ids))}
	for _, id := range ids {
		assembled, err := s.GetProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		if assembled != nil {
			profiles.Items = append(profiles.Items, assembled)
		}
	}

	s.logger.Debug("active profiles loaded", zap.Int("count", profiles.Len()))
	return profiles, nil
}

// buildScoringPreferences maps the preferences row onto the weight knobs
// the scorer reads. Weight-bearing soft preferences are looked up by key;
// everything else stays in the row for prompt context only.
func buildScoringPreferences(prefs *Preferences) profile.Preferences {
	if prefs == nil {
		return profile.Preferences{}
	}

	scoring := profile.Preferences{
		AgeMin:             prefs.AgeMin,
		AgeMax:             prefs.AgeMax,
		GenderPreference:   prefs.GenderPreference,
		LocationPreference: prefs.LocationPreference,
		ReligionPreference: prefs.ReligionPreference,
		Dealbreakers:       prefs.Dealbreakers,
		GreenFlags:         prefs.GreenFlags,
	}

	if weight, ok := softPrefWeight(prefs.SoftPreferences, softPrefLocation); ok {
		scoring.LocationWeight = weight
	}
	if weight, ok := softPrefWeight(prefs.SoftPreferences, softPrefCaste); ok {
		scoring.CasteWeight = weight
	}
	if weight, ok := softPrefWeight(prefs.SoftPreferences, softPrefLanguage); ok {
		scoring.LanguageWeight = weight
	}
	if weight, ok := softPrefWeight(prefs.SoftPreferences, softPrefDiet); ok {
		scoring.DietWeight = weight
	}
	if _, ok := prefs.SoftPreferences[softPrefAgeFlexible]; ok {
		scoring.AgeFlexible = true
	}

	return scoring
}

func softPrefWeight(prefs map[string]extraction.SoftPreference, key string) (*float64, bool) {
	pref, ok := prefs[key]
	if !ok {
		return nil, false
	}
	weight := pref.Weight
	return &weight, true
}

// culturalWeight promotes the cultural_identity_strength values signal
// into the scorer's HIGH marker.
func culturalWeight(signals map[string]signal.Batch) string {
	sig, ok := signals["values"]["cultural_identity_strength"]
	if !ok {
		return ""
	}
	if value, ok := sig.Value.(string); ok && strings.EqualFold(strings.TrimSpace(value), "high") {
		return profile.CulturalWeightHigh
	}
	return ""
}

// deriveVegetarian resolves the tri-state diet flag. The stored
// dietary_restrictions column wins; the lifestyle signal is a fallback.
// Unknown stays nil so diet scoring contributes nothing.
func deriveVegetarian(dietary string, signals map[string]signal.Batch) *bool {
	switch strings.ToLower(strings.TrimSpace(dietary)) {
	case "vegetarian", "vegan", "jain":
		return boolPtr(true)
	case "none":
		return boolPtr(false)
	}

	if sig, ok := signals["lifestyle"]["diet_food_culture"]; ok {
		if value, ok := sig.Value.(string); ok {
			lowered := strings.ToLower(value)
			if strings.Contains(lowered, "non-veg") {
				return boolPtr(false)
			}
			if strings.Contains(lowered, "vegetarian") || strings.Contains(lowered, "vegan") {
				return boolPtr(true)
			}
		}
	}
	return nil
}

// flattenTags turns string-valued signals into scorer tags. Categories
// and fields are walked in fixed order so assembly is deterministic.
func flattenTags(signals map[string]signal.Batch) []profile.Tag {
	var tags []profile.Tag

	for _, category := range signal.Categories {
		batch, ok := signals[category]
		if !ok {
			continue
		}

		fields := make([]string, 0, len(batch))
		for field := range batch {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			sig := batch[field]
			switch value := sig.Value.(type) {
			case string:
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					tags = append(tags, profile.Tag{
						Label:      trimmed,
						Confidence: sig.Confidence,
						Category:   category,
					})
				}
			case []any:
				for _, item := range value {
					if text, ok := item.(string); ok {
						if trimmed := strings.TrimSpace(text); trimmed != "" {
							tags = append(tags, profile.Tag{
								Label:      trimmed,
								Confidence: sig.Confidence,
								Category:   category,
							})
						}
					}
				}
			}
		}
	}
	return tags
}

func boolPtr(v bool) *bool {
	return &v
}
