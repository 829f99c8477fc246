package screening

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/profile"
	"github.com/nvsudo/jodi/internal/store"
)

type alreadyMatchedFilter struct {
	seekerID string
}

// NewAlreadyMatched creates a filter that removes the seeker themself and every
// candidate already paired with the seeker in a non-rejected match, so standing
// proposals are not re-proposed. Rejected pairs stay eligible for a rescore.
func NewAlreadyMatched() Filter {
	return &alreadyMatchedFilter{}
}

func (f *alreadyMatchedFilter) Name() string { return "already_matched" }

func (f *alreadyMatchedFilter) Disable(string) {}

func (f *alreadyMatchedFilter) IsEnabled() bool { return true }

func (f *alreadyMatchedFilter) Validate(cfg *Config) error {
	if cfg == nil || cfg.Seeker == nil {
		return fmt.Errorf("seeker profile is required when already_matched filter is enabled")
	}
	f.seekerID = cfg.Seeker.ID
	return nil
}

func (f *alreadyMatchedFilter) Apply(ctx context.Context, deps Deps, c *profile.Profiles) (*profile.Profiles, Step, error) {
	initial := c.Len()
	if deps.Store == nil {
		return c, Step{}, fmt.Errorf("store is required")
	}

	matches, err := deps.Store.MatchesForUser(ctx, f.seekerID, 0)
	if err != nil {
		return c, Step{}, fmt.Errorf("load existing matches: %w", err)
	}

	paired := map[string]bool{f.seekerID: true}
	for _, match := range matches {
		if match.Status == store.MatchStatusRejected {
			continue
		}
		paired[match.Other(f.seekerID)] = true
	}

	kept := make([]*profile.Profile, 0, initial)
	var excluded []string
	for _, candidate := range c.Items {
		if paired[candidate.ID] {
			excluded = append(excluded, candidate.ID)
			continue
		}
		kept = append(kept, candidate)
	}
	c.Items = kept

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding already matched candidates",
			zap.Strings("excluded_profiles", excluded),
			zap.Int("profiles_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}
