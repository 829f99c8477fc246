package extraction

import (
	"context"

	"github.com/nvsudo/jodi/internal/signal"
)

// Turn is a single message in the running conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProfileSnapshot is the extractor's view of everything already known about a
// user before the current message. It is serialized into the prompt so the
// model does not re-extract settled facts.
type ProfileSnapshot struct {
	UserID       string                  `json:"user_id,omitempty"`
	Demographics map[string]any          `json:"demographics,omitempty"`
	Signals      map[string]signal.Batch `json:"existing_signals,omitempty"`
	TierProgress map[string]any          `json:"tier_progress,omitempty"`
}

// PartnerFilters are non-negotiable partner requirements.
type PartnerFilters struct {
	AgeMin             int      `json:"age_min,omitempty" mapstructure:"age_min"`
	AgeMax             int      `json:"age_max,omitempty" mapstructure:"age_max"`
	GenderPreference   []string `json:"gender_preference,omitempty" mapstructure:"gender_preference"`
	LocationPreference []string `json:"location_preference,omitempty" mapstructure:"location_preference"`
	ReligionPreference []string `json:"religion_preference,omitempty" mapstructure:"religion_preference"`
	ChildrenPreference string   `json:"children_preference,omitempty" mapstructure:"children_preference"`
}

// SoftPreference is a weighted want rather than a requirement.
type SoftPreference struct {
	Values []any   `json:"values,omitempty" mapstructure:"values"`
	Weight float64 `json:"weight,omitempty" mapstructure:"weight"`
	Type   string  `json:"type,omitempty" mapstructure:"type"`
}

// Preferences describe what the user wants in a partner.
type Preferences struct {
	HardFilters     *PartnerFilters           `json:"hard_filters,omitempty" mapstructure:"hard_filters"`
	SoftPreferences map[string]SoftPreference `json:"soft_preferences,omitempty" mapstructure:"soft_preferences"`
	Dealbreakers    []string                  `json:"dealbreakers,omitempty" mapstructure:"dealbreakers"`
	GreenFlags      []string                  `json:"green_flags,omitempty" mapstructure:"green_flags"`
}

// Result is everything learned from a single user message.
type Result struct {
	HardFilters map[string]any          `json:"hard_filters,omitempty"`
	Signals     map[string]signal.Batch `json:"signals,omitempty"`
	Preferences *Preferences            `json:"preferences,omitempty"`
	Tier        int                     `json:"tier,omitempty"`
	OpenEnded   bool                    `json:"open_ended,omitempty"`
	Raw         string                  `json:"-"`
}

// SignalCount returns the number of individual signals across all categories.
func (r *Result) SignalCount() int {
	if r == nil {
		return 0
	}

	count := 0
	for _, batch := range r.Signals {
		count += len(batch)
	}
	return count
}

// Empty reports whether nothing storable was extracted.
func (r *Result) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.HardFilters) == 0 && r.SignalCount() == 0 && r.Preferences == nil
}

// Extractor turns a free-text user message into structured profile data.
type Extractor interface {
	Extract(ctx context.Context, message string, history []Turn, snapshot ProfileSnapshot) (*Result, error)
}
