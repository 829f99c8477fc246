package screening

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/profile"
)

func TestMatchesDealbreaker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		term     string
		identity profile.Identity
		tags     []profile.Tag
		want     bool
	}{
		{name: "smoker hit", term: "no smoking", identity: profile.Identity{Smoking: "Current smoker"}, want: true},
		{name: "social smoker hit", term: "smoking", identity: profile.Identity{Smoking: "Socially"}, want: true},
		{name: "never smoker passes", term: "smoking", identity: profile.Identity{Smoking: "Never"}, want: false},
		{name: "former smoker passes", term: "no smoking", identity: profile.Identity{Smoking: "Former smoker"}, want: false},
		{name: "unknown smoking passes", term: "smoking", identity: profile.Identity{}, want: false},
		{name: "ambiguous smoking counts as hit", term: "smoking", identity: profile.Identity{Smoking: "occasionally"}, want: true},
		{name: "regular drinker hit", term: "heavy drinking", identity: profile.Identity{Drinking: "Regularly"}, want: true},
		{name: "alcohol term uses drinking column", term: "alcohol", identity: profile.Identity{Drinking: "Socially"}, want: true},
		{name: "undisclosed drinking passes", term: "drinking", identity: profile.Identity{Drinking: "Prefer not to say"}, want: false},
		{name: "religion substring hit", term: "atheist", identity: profile.Identity{Religion: "Atheist"}, want: true},
		{name: "religion no hit", term: "atheist", identity: profile.Identity{Religion: "Hindu"}, want: false},
		{name: "dietary substring hit", term: "halal", identity: profile.Identity{Dietary: "Halal"}, want: true},
		{
			name: "signal tag hit",
			term: "non-vegetarian",
			tags: []profile.Tag{{Label: "loves non-vegetarian street food"}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			candidate := &profile.Profile{ID: "c", Identity: tt.identity, Tags: tt.tags}
			if got := matchesDealbreaker(candidate, tt.term); got != tt.want {
				t.Fatalf("matchesDealbreaker(%q) = %v, want %v", tt.term, got, tt.want)
			}
		})
	}
}

func TestDealbreakersApply(t *testing.T) {
	t.Parallel()

	filter := NewDealbreakers()
	seeker := seekerProfile()
	seeker.Preferences.Dealbreakers = []string{"No smoking", "  ", "drinking"}
	if err := filter.Validate(&Config{Seeker: seeker}); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	smoker := candidate("smoker", true)
	smoker.Identity.Smoking = "Socially"
	drinker := candidate("drinker", true)
	drinker.Identity.Drinking = "Regularly"
	clean := candidate("clean", true)
	clean.Identity.Smoking = "Never"
	clean.Identity.Drinking = "Never"

	pool := candidates(smoker, drinker, clean)
	got, step, err := filter.Apply(context.Background(), Deps{Logger: zap.NewNop()}, pool)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if step.Initial != 3 || step.Dropped != 2 || step.Left != 1 {
		t.Fatalf("unexpected step accounting: %+v", step)
	}
	if got.FindByID("clean") == nil {
		t.Fatal("clean candidate was dropped")
	}
}

func TestDealbreakersApplyNoTerms(t *testing.T) {
	t.Parallel()

	filter := NewDealbreakers()
	if err := filter.Validate(&Config{Seeker: &profile.Profile{ID: "seeker"}}); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	pool := candidates(candidate("1", true))
	got, step, err := filter.Apply(context.Background(), Deps{}, pool)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if step.Dropped != 0 || got.Len() != 1 {
		t.Fatalf("no-term filter dropped candidates: %+v", step)
	}
}

func TestDealbreakersValidateSkippedWhenDisabled(t *testing.T) {
	t.Parallel()

	filter := NewDealbreakers()
	filter.Disable("disabled via config")
	if err := filter.Validate(nil); err != nil {
		t.Fatalf("disabled filter should not validate config: %v", err)
	}
}
