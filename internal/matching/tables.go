package matching

import (
	"encoding/json"
	"fmt"
	"os"
)

// Tables holds the fixed lookup sets the scorer matches locations and
// occupations against. The groupings are deliberately coarse and hand-tuned;
// updating them must not require touching scoring logic.
type Tables struct {
	// MetroAreas maps a canonical metro name to its constituent localities.
	MetroAreas map[string][]string `json:"metro_areas"`
	// Countries maps a country name to its recognizable city names.
	Countries map[string][]string `json:"countries"`
	// OccupationGroups lists keyword sets that mark occupations as similar.
	OccupationGroups [][]string `json:"occupation_groups"`
}

// DefaultTables returns the built-in lookup sets.
func DefaultTables() *Tables {
	return &Tables{
		MetroAreas: map[string][]string{
			"sydney":    {"sydney", "parramatta", "bondi", "manly"},
			"melbourne": {"melbourne", "carlton", "richmond", "st kilda"},
			"brisbane":  {"brisbane", "gold coast", "sunshine coast"},
			"delhi":     {"delhi", "new delhi", "gurgaon", "noida", "ghaziabad"},
			"mumbai":    {"mumbai", "navi mumbai", "thane"},
		},
		Countries: map[string][]string{
			"australia": {"sydney", "melbourne", "brisbane", "canberra", "adelaide", "perth"},
			"india":     {"delhi", "mumbai", "bangalore", "ahmedabad", "pune", "hyderabad"},
			"usa":       {"new york", "san francisco", "los angeles", "chicago", "boston"},
			"uk":        {"london", "manchester", "birmingham", "edinburgh"},
		},
		OccupationGroups: [][]string{
			{"engineer", "developer", "software", "tech", "programmer"},
			{"doctor", "physician", "surgeon", "medical"},
			{"consultant", "analyst", "manager"},
			{"teacher", "professor", "educator"},
			{"accountant", "finance", "banking"},
		},
	}
}

// LoadTablesFromFile loads lookup tables from a JSON file, falling back to
// the defaults on read or parse errors.
func LoadTablesFromFile(path string) (*Tables, error) {
	tables := DefaultTables()

	b, err := os.ReadFile(path)
	if err != nil {
		return tables, fmt.Errorf("read tables file: %w", err)
	}
	if err := json.Unmarshal(b, tables); err != nil {
		return DefaultTables(), fmt.Errorf("unmarshal tables: %w", err)
	}
	return tables, nil
}
