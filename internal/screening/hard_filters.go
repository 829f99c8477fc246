package screening

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/profile"
)

// ageFlexPadding widens the stated age range when the seeker marked it flexible.
const ageFlexPadding = 2

type hardFiltersFilter struct {
	prefs profile.Preferences
}

// NewHardFilters creates a filter that enforces the seeker's declared partner filters:
// gender, age range, religion and location. Unknown candidate values pass through,
// mismatches are dropped before scoring.
func NewHardFilters() Filter {
	return &hardFiltersFilter{}
}

func (f *hardFiltersFilter) Name() string { return "hard_filters" }

func (f *hardFiltersFilter) Disable(string) {}

func (f *hardFiltersFilter) IsEnabled() bool { return true }

func (f *hardFiltersFilter) Validate(cfg *Config) error {
	if cfg == nil || cfg.Seeker == nil {
		return fmt.Errorf("seeker profile is required when hard_filters filter is enabled")
	}
	f.prefs = cfg.Seeker.Preferences
	return nil
}

func (f *hardFiltersFilter) Apply(_ context.Context, deps Deps, c *profile.Profiles) (*profile.Profiles, Step, error) {
	initial := c.Len()

	kept := make([]*profile.Profile, 0, initial)
	var excluded []string
	for _, candidate := range c.Items {
		reason := f.mismatch(candidate)
		if reason != "" {
			excluded = append(excluded, candidate.ID)
			if deps.Logger != nil {
				deps.Logger.Debug("candidate failed a hard filter",
					zap.String("profile_id", candidate.ID),
					zap.String("filter", reason),
				)
			}
			continue
		}
		kept = append(kept, candidate)
	}
	c.Items = kept

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding candidates by hard filters",
			zap.Strings("excluded_profiles", excluded),
			zap.Int("profiles_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

// mismatch names the first hard filter the candidate fails, or "" when they pass.
func (f *hardFiltersFilter) mismatch(candidate *profile.Profile) string {
	if len(f.prefs.GenderPreference) > 0 && candidate.Identity.Gender != "" {
		if !equalsAnyFold(f.prefs.GenderPreference, candidate.Identity.Gender) {
			return "gender"
		}
	}

	min, max := f.ageBounds()
	if candidate.Identity.Age > 0 {
		if min > 0 && candidate.Identity.Age < min {
			return "age"
		}
		if max > 0 && candidate.Identity.Age > max {
			return "age"
		}
	}

	if len(f.prefs.ReligionPreference) > 0 && candidate.Identity.Religion != "" {
		if !containsAnyFold(f.prefs.ReligionPreference, candidate.Identity.Religion) {
			return "religion"
		}
	}

	if len(f.prefs.LocationPreference) > 0 {
		place := strings.TrimSpace(candidate.Identity.City + " " + candidate.Identity.Country)
		if place != "" && !containsAnyFold(f.prefs.LocationPreference, place) {
			return "location"
		}
	}

	return ""
}

func (f *hardFiltersFilter) ageBounds() (int, int) {
	min, max := f.prefs.AgeMin, f.prefs.AgeMax
	if f.prefs.AgeFlexible {
		if min > 0 {
			min -= ageFlexPadding
		}
		if max > 0 {
			max += ageFlexPadding
		}
	}
	return min, max
}

func equalsAnyFold(values []string, value string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}

func containsAnyFold(values []string, haystack string) bool {
	haystack = strings.ToLower(haystack)
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" && strings.Contains(haystack, v) {
			return true
		}
	}
	return false
}

func (f *hardFiltersFilter) Status() Status {
	details := map[string]string{}
	min, max := f.ageBounds()
	if min > 0 || max > 0 {
		details["age_range"] = fmt.Sprintf("%d-%d", min, max)
	}
	if len(f.prefs.GenderPreference) > 0 {
		details["genders"] = strings.Join(f.prefs.GenderPreference, ",")
	}
	if len(f.prefs.ReligionPreference) > 0 {
		details["religions"] = strings.Join(f.prefs.ReligionPreference, ",")
	}
	if len(f.prefs.LocationPreference) > 0 {
		details["locations"] = strings.Join(f.prefs.LocationPreference, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
