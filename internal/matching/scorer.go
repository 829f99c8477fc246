package matching

import (
	"math"
	"strings"

	"github.com/nvsudo/jodi/internal/profile"
)

const (
	defaultWeight = 0.5
	// Location weights below this mark a profile as flexible about distance.
	flexibleBelow = 0.6
)

// Factor is one signed contribution to a match score.
type Factor struct {
	Section string  `json:"section"`
	Name    string  `json:"name"`
	Points  float64 `json:"points"`
}

// Breakdown explains a score as an ordered list of contributing factors.
// It is created fresh on every scoring call and never persisted by the
// scorer itself.
type Breakdown struct {
	Factors []Factor `json:"factors"`
	Total   float64  `json:"total"`
}

// Get returns the points recorded for a named factor.
func (b Breakdown) Get(name string) (float64, bool) {
	for _, f := range b.Factors {
		if f.Name == name {
			return f.Points, true
		}
	}
	return 0, false
}

// SectionTotal sums the contributions of one section.
func (b Breakdown) SectionTotal(section string) float64 {
	total := 0.0
	for _, f := range b.Factors {
		if f.Section == section {
			total += f.Points
		}
	}
	return total
}

// Scorer computes contextual compatibility scores. Weighted reasoning, not
// boolean filters: location matters less when cultural specificity is higher.
// Safe for concurrent use; scoring performs no I/O and mutates nothing.
type Scorer struct {
	tables *Tables
}

func New(tables *Tables) *Scorer {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Scorer{tables: tables}
}

// Score computes the compatibility score for an ordered pair of profiles.
// The result is not guaranteed symmetric since each side's own preference
// weights influence penalties. Missing fields contribute nothing; sparse
// profiles score 0 rather than failing.
func (s *Scorer) Score(a, b *profile.Profile) (float64, Breakdown) {
	if a == nil || b == nil {
		return 0, Breakdown{}
	}

	sections := []struct {
		name string
		fn   func(a, b *profile.Profile) (float64, []Factor)
	}{
		{"location", s.scoreLocation},
		{"cultural", s.scoreCultural},
		{"age", s.scoreAge},
		{"lifestyle", s.scoreLifestyle},
		{"signals", s.scoreSignals},
	}

	total := 0.0
	var factors []Factor
	for _, section := range sections {
		delta, parts := section.fn(a, b)
		total += delta
		for _, part := range parts {
			part.Section = section.name
			factors = append(factors, part)
		}
	}

	return total, Breakdown{Factors: factors, Total: round2(total)}
}

// scoreLocation is where cultural depth compensates for distance. Same city
// and same metro short-circuit; different localities accumulate flexibility,
// country, and cultural-compensation adjustments.
func (s *Scorer) scoreLocation(a, b *profile.Profile) (float64, []Factor) {
	locA := a.Identity.Location()
	locB := b.Identity.Location()
	if locA == "" || locB == "" {
		return 0, nil
	}

	if locA == locB {
		return 30, []Factor{{Name: "same_city", Points: 30}}
	}

	if s.tables.sameMetro(locA, locB) {
		return 20, []Factor{{Name: "same_metro", Points: 20}}
	}

	score := 0.0
	var factors []Factor

	flexA := prefWeight(a.Preferences.LocationWeight)
	flexB := prefWeight(b.Preferences.LocationWeight)
	switch {
	case flexA < flexibleBelow && flexB < flexibleBelow:
		score += 15
		factors = append(factors, Factor{Name: "both_flexible", Points: 15})
	case flexA < flexibleBelow || flexB < flexibleBelow:
		score += 10
		factors = append(factors, Factor{Name: "one_flexible", Points: 10})
	}

	if s.tables.sameCountry(locA, locB) {
		score += 5
		factors = append(factors, Factor{Name: "same_country", Points: 5})
	} else {
		score -= 10
		factors = append(factors, Factor{Name: "different_country", Points: -10})
	}

	// Either side declaring a HIGH cultural weight is enough to pull in the
	// compensation bonus for both.
	if a.Preferences.CulturalWeight == profile.CulturalWeightHigh ||
		b.Preferences.CulturalWeight == profile.CulturalWeightHigh {
		bonus := 0.0
		if a.Identity.CasteCommunity != "" && a.Identity.CasteCommunity == b.Identity.CasteCommunity {
			bonus += 10
		}
		if a.Identity.NativeLanguage != "" && a.Identity.NativeLanguage == b.Identity.NativeLanguage {
			bonus += 10
		}

		if bonus > 0 {
			score += bonus
			factors = append(factors, Factor{Name: "cultural_compensation", Points: bonus})
		}
	}

	return score, factors
}

func (s *Scorer) scoreCultural(a, b *profile.Profile) (float64, []Factor) {
	score := 0.0
	var factors []Factor

	casteA := a.Identity.CasteCommunity
	casteB := b.Identity.CasteCommunity
	casteWeightA := prefWeight(a.Preferences.CasteWeight)
	casteWeightB := prefWeight(b.Preferences.CasteWeight)

	if casteA != "" && casteB != "" {
		if casteA == casteB {
			points := 15 * math.Max(casteWeightA, casteWeightB)
			score += points
			factors = append(factors, Factor{Name: "same_caste", Points: round2(points)})
		} else if casteWeightA > 0.7 || casteWeightB > 0.7 {
			penalty := -10 * math.Max(casteWeightA, casteWeightB)
			score += penalty
			factors = append(factors, Factor{Name: "different_caste_penalty", Points: round2(penalty)})
		}
	}

	langA := a.Identity.NativeLanguage
	langB := b.Identity.NativeLanguage
	if langA != "" && langB != "" && langA == langB {
		points := 10 * math.Max(prefWeight(a.Preferences.LanguageWeight), prefWeight(b.Preferences.LanguageWeight))
		score += points
		factors = append(factors, Factor{Name: "same_language", Points: round2(points)})
	}

	return score, factors
}

func (s *Scorer) scoreAge(a, b *profile.Profile) (float64, []Factor) {
	ageA := a.Identity.Age
	ageB := b.Identity.Age
	if ageA <= 0 || ageB <= 0 {
		return 0, nil
	}

	diff := ageA - ageB
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff <= 2:
		return 10, []Factor{{Name: "age_diff", Points: 10}}
	case diff <= 5:
		return 7, []Factor{{Name: "age_diff", Points: 7}}
	case diff <= 8:
		return 3, []Factor{{Name: "age_diff", Points: 3}}
	}

	if a.Preferences.AgeFlexible && b.Preferences.AgeFlexible {
		return 1, []Factor{{Name: "age_diff_flexible", Points: 1}}
	}
	return -5, []Factor{{Name: "age_diff_penalty", Points: -5}}
}

func (s *Scorer) scoreLifestyle(a, b *profile.Profile) (float64, []Factor) {
	score := 0.0
	var factors []Factor

	vegA := a.Identity.Vegetarian
	vegB := b.Identity.Vegetarian
	if vegA != nil && vegB != nil {
		dietWeightA := prefWeight(a.Preferences.DietWeight)
		dietWeightB := prefWeight(b.Preferences.DietWeight)

		if *vegA == *vegB {
			points := 10 * math.Max(dietWeightA, dietWeightB)
			score += points
			factors = append(factors, Factor{Name: "vegetarian_match", Points: round2(points)})
		} else if dietWeightA > 0.8 || dietWeightB > 0.8 {
			penalty := -15 * math.Max(dietWeightA, dietWeightB)
			score += penalty
			factors = append(factors, Factor{Name: "vegetarian_mismatch", Points: round2(penalty)})
		}
	}

	occA := strings.ToLower(strings.TrimSpace(a.Identity.Occupation))
	occB := strings.ToLower(strings.TrimSpace(b.Identity.Occupation))
	if occA != "" && occB != "" && s.tables.similarOccupation(occA, occB) {
		score += 5
		factors = append(factors, Factor{Name: "similar_occupation", Points: 5})
	}

	return score, factors
}

// scoreSignals is a small keyword-based bonus layer over conversation-derived
// tags, not a semantic similarity model.
func (s *Scorer) scoreSignals(a, b *profile.Profile) (float64, []Factor) {
	score := 0.0
	var factors []Factor

	labelsA := a.TagLabels()
	labelsB := b.TagLabels()

	if anyContains(labelsA, "diaspora") && anyContains(labelsB, "diaspora") {
		score += 10
		factors = append(factors, Factor{Name: "shared_diaspora_experience", Points: 10})
	}

	if anyContains(labelsA, "family") && anyContains(labelsB, "family") {
		score += 5
		factors = append(factors, Factor{Name: "family_oriented", Points: 5})
	}

	intellectualA := anyContains(labelsA, "intellectual") || anyContains(labelsA, "curious")
	intellectualB := anyContains(labelsB, "intellectual") || anyContains(labelsB, "curious")
	if intellectualA && intellectualB {
		score += 5
		factors = append(factors, Factor{Name: "intellectual_match", Points: 5})
	}

	return score, factors
}

func (t *Tables) sameMetro(locA, locB string) bool {
	for _, localities := range t.MetroAreas {
		if containsAny(locA, localities) && containsAny(locB, localities) {
			return true
		}
	}
	return false
}

func (t *Tables) sameCountry(locA, locB string) bool {
	for _, cities := range t.Countries {
		if containsAny(locA, cities) && containsAny(locB, cities) {
			return true
		}
	}
	return false
}

func (t *Tables) similarOccupation(occA, occB string) bool {
	for _, group := range t.OccupationGroups {
		if containsAny(occA, group) && containsAny(occB, group) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

func anyContains(labels []string, keyword string) bool {
	for _, label := range labels {
		if strings.Contains(label, keyword) {
			return true
		}
	}
	return false
}

// prefWeight resolves an optional importance weight: nil defaults to 0.5,
// out-of-range values clamp to the nearest bound.
func prefWeight(w *float64) float64 {
	if w == nil {
		return defaultWeight
	}
	return clamp01(*w)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return defaultWeight
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
