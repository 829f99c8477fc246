package screening

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/profile"
)

func candidate(id string, active bool) *profile.Profile {
	return &profile.Profile{
		ID:     id,
		Active: active,
		Identity: profile.Identity{
			Gender: "Woman",
			Age:    28,
			City:   "Sydney",
		},
	}
}

func candidates(items ...*profile.Profile) *profile.Profiles {
	return &profile.Profiles{Items: items}
}

func seekerProfile() *profile.Profile {
	return &profile.Profile{
		ID:     "seeker",
		Active: true,
		Preferences: profile.Preferences{
			Dealbreakers: []string{"No smoking"},
		},
	}
}

func TestActiveOnlyApply(t *testing.T) {
	t.Parallel()

	pool := candidates(
		candidate("1", true),
		candidate("2", false),
		candidate("3", true),
		candidate("4", false),
	)

	got, step, err := NewActiveOnly().Apply(context.Background(), Deps{Logger: zap.NewNop()}, pool)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if step.Initial != 4 || step.Dropped != 2 || step.Left != 2 {
		t.Fatalf("unexpected step accounting: %+v", step)
	}
	if got.FindByID("2") != nil || got.FindByID("4") != nil {
		t.Fatalf("inactive profiles survived: %+v", got.Items)
	}
	if got.FindByID("1") == nil || got.FindByID("3") == nil {
		t.Fatalf("active profiles were dropped: %+v", got.Items)
	}
}

func TestExcludedApply(t *testing.T) {
	t.Parallel()

	filter := NewExcluded()
	if err := filter.Validate(&Config{Excluded: []string{"2"}}); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	pool := candidates(candidate("1", true), candidate("2", true))
	got, step, err := filter.Apply(context.Background(), Deps{}, pool)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if step.Dropped != 1 || step.Left != 1 {
		t.Fatalf("unexpected step accounting: %+v", step)
	}
	if got.FindByID("2") != nil {
		t.Fatal("suppressed candidate survived")
	}
}

func TestRunValidateErrorNamesTheStep(t *testing.T) {
	t.Parallel()

	steps := []Filter{NewActiveOnly(), NewDealbreakers()}
	_, err := Run(context.Background(), &Config{}, Deps{Logger: zap.NewNop()}, steps, candidates())
	if err == nil {
		t.Fatal("expected validation error for missing seeker")
	}
	if !strings.Contains(err.Error(), "dealbreakers:") {
		t.Fatalf("error does not name the failing step: %v", err)
	}
}

func TestRunSkipsDisabledSteps(t *testing.T) {
	t.Parallel()

	steps := []Filter{NewDealbreakers()}
	DisableByName(steps, "dealbreakers", "disabled via config")

	pool := candidates(candidate("1", true))
	got, err := Run(context.Background(), &Config{}, Deps{Logger: zap.NewNop()}, steps, pool)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("disabled step changed the pool: %d left", got.Len())
	}
}

func TestRunPipeline(t *testing.T) {
	t.Parallel()

	smoker := candidate("smoker", true)
	smoker.Identity.Smoking = "Current smoker"

	pool := candidates(
		candidate("keeper", true),
		candidate("inactive", false),
		candidate("suppressed", true),
		smoker,
	)

	cfg := &Config{Seeker: seekerProfile(), Excluded: []string{"suppressed"}}
	steps := []Filter{NewActiveOnly(), NewExcluded(), NewDealbreakers()}

	got, err := Run(context.Background(), cfg, Deps{Logger: zap.NewNop()}, steps, pool)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got.Len() != 1 || got.FindByID("keeper") == nil {
		t.Fatalf("unexpected survivors: %+v", got.Items)
	}
}

func TestDescribeReportsDisabledReason(t *testing.T) {
	t.Parallel()

	steps := []Filter{NewActiveOnly(), NewDealbreakers()}
	DisableByName(steps, "dealbreakers", "disabled via config")

	statuses := Describe(steps)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}

	if statuses[0].Name != "active_only" || !statuses[0].Enabled {
		t.Fatalf("unexpected active_only status: %+v", statuses[0])
	}
	if statuses[1].Name != "dealbreakers" || statuses[1].Enabled {
		t.Fatalf("unexpected dealbreakers status: %+v", statuses[1])
	}
	if statuses[1].Reason != "disabled via config" {
		t.Fatalf("disable reason missing: %+v", statuses[1])
	}
}
