package matching

import (
	"sort"

	"github.com/nvsudo/jodi/internal/profile"
)

// Defaults for match search.
const (
	DefaultMinScore = 40.0
	DefaultLimit    = 5
)

// Result pairs a candidate with its score and explanation.
type Result struct {
	Candidate *profile.Profile `json:"candidate"`
	Score     float64          `json:"score"`
	Breakdown Breakdown        `json:"breakdown"`
}

// FindMatches scores the seeker against every candidate except itself,
// keeps candidates at or above minScore, and returns at most limit results
// sorted descending by score. Equal scores preserve candidate input order.
// A limit of zero or less means no cap.
func (s *Scorer) FindMatches(seeker *profile.Profile, candidates *profile.Profiles, minScore float64, limit int) []Result {
	if seeker == nil || candidates == nil {
		return nil
	}

	results := make([]Result, 0, candidates.Len())
	for _, candidate := range candidates.Items {
		if candidate == nil || candidate.ID == seeker.ID {
			continue
		}

		total, breakdown := s.Score(seeker, candidate)
		if total >= minScore {
			results = append(results, Result{Candidate: candidate, Score: total, Breakdown: breakdown})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}
