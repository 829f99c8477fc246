package screening

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/profile"
)

// Values that clear a smoking or drinking dealbreaker. Any other stored
// value counts as a hit: a stated dealbreaker wins over ambiguity, while an
// empty value means unknown and is kept.
var (
	nonSmokingValues  = []string{"", "never", "no", "former smoker", "quitting"}
	nonDrinkingValues = []string{"", "never", "no", "prefer not to say"}
)

type dealbreakersFilter struct {
	disabled bool
	reason   string
	terms    []string
}

// NewDealbreakers creates a filter that removes candidates hitting the seeker's dealbreakers.
func NewDealbreakers() Filter {
	return &dealbreakersFilter{}
}

func (f *dealbreakersFilter) Name() string { return "dealbreakers" }

func (f *dealbreakersFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *dealbreakersFilter) IsEnabled() bool { return !f.disabled }

func (f *dealbreakersFilter) Validate(cfg *Config) error {
	f.terms = nil
	if !f.IsEnabled() {
		return nil
	}
	if cfg == nil || cfg.Seeker == nil {
		return fmt.Errorf("seeker profile is required when dealbreakers filter is enabled")
	}
	for _, term := range cfg.Seeker.Preferences.Dealbreakers {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		f.terms = append(f.terms, term)
	}
	return nil
}

func (f *dealbreakersFilter) Apply(_ context.Context, deps Deps, c *profile.Profiles) (*profile.Profiles, Step, error) {
	initial := c.Len()
	if len(f.terms) == 0 {
		return c, Step{Initial: initial, Dropped: 0, Left: c.Len()}, nil
	}

	kept := make([]*profile.Profile, 0, initial)
	var excluded []string
	for _, candidate := range c.Items {
		term, hit := f.firstHit(candidate)
		if hit {
			excluded = append(excluded, candidate.ID)
			if deps.Logger != nil {
				deps.Logger.Debug("candidate hit a dealbreaker",
					zap.String("profile_id", candidate.ID),
					zap.String("term", term),
				)
			}
			continue
		}
		kept = append(kept, candidate)
	}
	c.Items = kept

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding candidates by dealbreakers",
			zap.Strings("excluded_profiles", excluded),
			zap.Int("profiles_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

func (f *dealbreakersFilter) firstHit(candidate *profile.Profile) (string, bool) {
	for _, term := range f.terms {
		if matchesDealbreaker(candidate, term) {
			return term, true
		}
	}
	return "", false
}

// matchesDealbreaker checks one term against a candidate. Smoking and
// drinking terms compare against the known status values; everything else
// falls back to a substring scan over the lifestyle columns and signal tags.
func matchesDealbreaker(candidate *profile.Profile, term string) bool {
	switch {
	case strings.Contains(term, "smok"):
		return !containsFold(nonSmokingValues, candidate.Identity.Smoking)
	case strings.Contains(term, "drink"), strings.Contains(term, "alcohol"):
		return !containsFold(nonDrinkingValues, candidate.Identity.Drinking)
	}

	for _, value := range []string{
		candidate.Identity.Smoking,
		candidate.Identity.Drinking,
		candidate.Identity.Religion,
		candidate.Identity.Dietary,
	} {
		if value != "" && strings.Contains(strings.ToLower(value), term) {
			return true
		}
	}

	for _, label := range candidate.TagLabels() {
		if strings.Contains(label, term) {
			return true
		}
	}

	return false
}

func containsFold(values []string, value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func (f *dealbreakersFilter) Status() Status {
	details := map[string]string{
		"terms": strconv.Itoa(len(f.terms)),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
