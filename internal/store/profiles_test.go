package store

import (
	"testing"

	"github.com/nvsudo/jodi/internal/extraction"
	"github.com/nvsudo/jodi/internal/profile"
	"github.com/nvsudo/jodi/internal/signal"
)

func TestDeriveVegetarian(t *testing.T) {
	t.Parallel()

	dietSignal := func(value string) map[string]signal.Batch {
		return map[string]signal.Batch{
			"lifestyle": {"diet_food_culture": {Value: value, Confidence: 0.9}},
		}
	}

	tests := []struct {
		name    string
		dietary string
		signals map[string]signal.Batch
		want    *bool
	}{
		{"vegetarian column", "Vegetarian", nil, boolPtr(true)},
		{"vegan column", "Vegan", nil, boolPtr(true)},
		{"jain column", "Jain", nil, boolPtr(true)},
		{"no restrictions", "None", nil, boolPtr(false)},
		{"halal stays unknown", "Halal", nil, nil},
		{"signal fallback vegetarian", "", dietSignal("strictly vegetarian household"), boolPtr(true)},
		{"signal fallback non-veg", "", dietSignal("loves non-veg street food"), boolPtr(false)},
		{"signal fallback inconclusive", "", dietSignal("foodie, loves trying cuisines"), nil},
		{"nothing known", "", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := deriveVegetarian(tt.dietary, tt.signals)

			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("expected unknown, got %v", *got)
			case tt.want != nil && got == nil:
				t.Fatalf("expected %v, got unknown", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Fatalf("expected %v, got %v", *tt.want, *got)
			}
		})
	}
}

func TestCulturalWeight(t *testing.T) {
	t.Parallel()

	high := map[string]signal.Batch{
		"values": {"cultural_identity_strength": {Value: "High", Confidence: 0.9}},
	}
	if culturalWeight(high) != profile.CulturalWeightHigh {
		t.Fatalf("expected HIGH marker")
	}

	medium := map[string]signal.Batch{
		"values": {"cultural_identity_strength": {Value: "medium", Confidence: 0.9}},
	}
	if culturalWeight(medium) != "" {
		t.Fatalf("expected empty weight for medium")
	}

	if culturalWeight(map[string]signal.Batch{}) != "" {
		t.Fatalf("expected empty weight when signal absent")
	}
}

func TestBuildScoringPreferences(t *testing.T) {
	t.Parallel()

	prefs := &Preferences{
		AgeMin:       28,
		AgeMax:       35,
		Dealbreakers: []string{"smoking"},
		GreenFlags:   []string{"ambitious"},
		SoftPreferences: map[string]extraction.SoftPreference{
			"location":     {Weight: 0.9},
			"diet":         {Weight: 0.95},
			"age_flexible": {Weight: 0.5},
			"wants_kids":   {Weight: 0.8},
		},
	}

	scoring := buildScoringPreferences(prefs)

	if scoring.AgeMin != 28 || scoring.AgeMax != 35 {
		t.Fatalf("age bounds not mapped: %+v", scoring)
	}
	if scoring.LocationWeight == nil || *scoring.LocationWeight != 0.9 {
		t.Fatalf("location weight not mapped: %+v", scoring.LocationWeight)
	}
	if scoring.DietWeight == nil || *scoring.DietWeight != 0.95 {
		t.Fatalf("diet weight not mapped: %+v", scoring.DietWeight)
	}
	if scoring.CasteWeight != nil || scoring.LanguageWeight != nil {
		t.Fatalf("absent weights must stay nil: %+v", scoring)
	}
	if !scoring.AgeFlexible {
		t.Fatalf("expected age_flexible soft preference to set the flag")
	}
	if len(scoring.Dealbreakers) != 1 || scoring.Dealbreakers[0] != "smoking" {
		t.Fatalf("dealbreakers not mapped: %v", scoring.Dealbreakers)
	}
}

func TestBuildScoringPreferencesNil(t *testing.T) {
	t.Parallel()

	scoring := buildScoringPreferences(nil)
	if scoring.LocationWeight != nil || scoring.AgeMin != 0 || scoring.AgeFlexible {
		t.Fatalf("expected zero preferences, got %+v", scoring)
	}
}

func TestFlattenTags(t *testing.T) {
	t.Parallel()

	signals := map[string]signal.Batch{
		"lifestyle": {
			"weekend_style": {Value: "hiking and cooking", Confidence: 0.85},
			"numeric_noise": {Value: 3.5, Confidence: 0.9},
		},
		"values": {
			"family_values": {Value: "close-knit family", Confidence: 0.9},
		},
		"relationship_style": {
			"green_flags_sought": {Value: []any{"kind", "curious", 7}, Confidence: 0.8},
		},
	}

	tags := flattenTags(signals)

	if len(tags) != 4 {
		t.Fatalf("expected 4 tags, got %d: %v", len(tags), tags)
	}

	// signal.Categories order: lifestyle before values before relationship_style.
	if tags[0].Label != "hiking and cooking" || tags[0].Category != "lifestyle" {
		t.Fatalf("unexpected first tag: %+v", tags[0])
	}
	if tags[1].Label != "close-knit family" || tags[1].Category != "values" {
		t.Fatalf("unexpected second tag: %+v", tags[1])
	}
	if tags[2].Label != "kind" || tags[3].Label != "curious" {
		t.Fatalf("array values must flatten in order: %+v", tags[2:])
	}
	if tags[1].Confidence != 0.9 {
		t.Fatalf("confidence must ride along, got %f", tags[1].Confidence)
	}
}
