package screening

import (
	"context"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/profile"
)

type activeOnlyFilter struct{}

// NewActiveOnly creates a filter that removes profiles whose matching is not activated yet.
func NewActiveOnly() Filter {
	return &activeOnlyFilter{}
}

func (f *activeOnlyFilter) Name() string { return "active_only" }

func (f *activeOnlyFilter) Disable(string) {}

func (f *activeOnlyFilter) IsEnabled() bool { return true }

func (f *activeOnlyFilter) Validate(*Config) error { return nil }

func (f *activeOnlyFilter) Apply(_ context.Context, deps Deps, c *profile.Profiles) (*profile.Profiles, Step, error) {
	initial := c.Len()

	kept := make([]*profile.Profile, 0, initial)
	var excluded []string
	for _, candidate := range c.Items {
		if !candidate.Active {
			excluded = append(excluded, candidate.ID)
			continue
		}
		kept = append(kept, candidate)
	}
	c.Items = kept

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding inactive profiles",
			zap.Strings("excluded_profiles", excluded),
			zap.Int("profiles_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}
