package profile

import "strings"

// CulturalWeightHigh marks a profile that treats shared cultural markers as
// more important than distance. Any other value is treated as medium.
const CulturalWeightHigh = "HIGH"

type Profile struct {
	ID          string      `json:"id"`
	Identity    Identity    `json:"identity"`
	Preferences Preferences `json:"preferences"`
	Tags        []Tag       `json:"tags,omitempty"`
	Active      bool        `json:"active,omitempty"`
}

// Identity holds the hard-filter demographics. All fields are optional;
// unknown values stay empty and contribute nothing to scoring.
type Identity struct {
	FullName           string `json:"full_name,omitempty"`
	Gender             string `json:"gender_identity,omitempty"`
	Orientation        string `json:"sexual_orientation,omitempty"`
	DateOfBirth        string `json:"date_of_birth,omitempty"`
	Age                int    `json:"age,omitempty"`
	City               string `json:"city,omitempty"`
	Country            string `json:"country,omitempty"`
	Religion           string `json:"religion,omitempty"`
	RelationshipIntent string `json:"relationship_intent,omitempty"`
	Timeline           string `json:"relationship_timeline,omitempty"`
	Smoking            string `json:"smoking,omitempty"`
	Drinking           string `json:"drinking,omitempty"`
	Dietary            string `json:"dietary_restrictions,omitempty"`
	Vegetarian         *bool  `json:"vegetarian,omitempty"`
	MaritalHistory     string `json:"marital_history,omitempty"`
	CasteCommunity     string `json:"caste_community,omitempty"`
	NativeLanguage     string `json:"native_language,omitempty"`
	Occupation         string `json:"occupation,omitempty"`
	EducationLevel     string `json:"education_level,omitempty"`
	HeightCM           int    `json:"height_cm,omitempty"`
}

// Preferences holds per-attribute importance weights (0.0 flexible .. 1.0
// rigid), flexibility flags and the partner gating lists. Nil weights
// default to 0.5 at scoring time.
type Preferences struct {
	LocationWeight     *float64 `json:"location_weight,omitempty"`
	CulturalWeight     string   `json:"cultural_weight,omitempty"`
	CasteWeight        *float64 `json:"caste_weight,omitempty"`
	LanguageWeight     *float64 `json:"language_weight,omitempty"`
	DietWeight         *float64 `json:"diet_weight,omitempty"`
	AgeFlexible        bool     `json:"age_flexible,omitempty"`
	AgeMin             int      `json:"age_min,omitempty"`
	AgeMax             int      `json:"age_max,omitempty"`
	GenderPreference   []string `json:"gender_preference,omitempty"`
	LocationPreference []string `json:"location_preference,omitempty"`
	ReligionPreference []string `json:"religion_preference,omitempty"`
	Dealbreakers       []string `json:"dealbreakers,omitempty"`
	GreenFlags         []string `json:"green_flags,omitempty"`
}

// Tag is a free-text-derived signal label attached to a profile.
type Tag struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence,omitempty"`
	Category   string  `json:"category,omitempty"`
}

// Location returns the normalized locality string used for matching,
// lowercased "city, country" when both parts are known.
func (i Identity) Location() string {
	city := strings.ToLower(strings.TrimSpace(i.City))
	country := strings.ToLower(strings.TrimSpace(i.Country))

	switch {
	case city == "":
		return country
	case country == "":
		return city
	default:
		return city + ", " + country
	}
}

// TagLabels returns the lowercased tag labels for keyword matching.
func (p *Profile) TagLabels() []string {
	labels := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		labels = append(labels, strings.ToLower(tag.Label))
	}
	return labels
}
