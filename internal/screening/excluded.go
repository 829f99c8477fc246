package screening

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/profile"
)

type excludedFilter struct {
	ids []string
}

// NewExcluded creates a filter that removes candidates suppressed in the config.
func NewExcluded() Filter {
	return &excludedFilter{}
}

func (f *excludedFilter) Name() string { return "excluded" }

func (f *excludedFilter) Disable(string) {}

func (f *excludedFilter) IsEnabled() bool { return true }

func (f *excludedFilter) Validate(cfg *Config) error {
	f.ids = nil
	if cfg != nil {
		f.ids = append(f.ids, cfg.Excluded...)
	}
	return nil
}

func (f *excludedFilter) Apply(_ context.Context, deps Deps, c *profile.Profiles) (*profile.Profiles, Step, error) {
	initial := c.Len()
	if len(f.ids) == 0 {
		return c, Step{Initial: initial, Dropped: 0, Left: c.Len()}, nil
	}

	excluded := c.Exclude(profile.ProfileIDField, f.ids)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding suppressed candidates",
			zap.Strings("excluded_profiles", excluded),
			zap.Int("profiles_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

func (f *excludedFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		details["excluded"] = strings.Join(f.ids, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
