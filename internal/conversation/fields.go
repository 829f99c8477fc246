package conversation

import (
	"regexp"
	"strings"
)

// categoricalOptions lists the canonical stored value for every button-driven
// profile field. Free-text answers outside the catalog are stored as given.
var categoricalOptions = map[string][]string{
	"gender_identity":          {"Male", "Female", "Non-binary", "Other"},
	"sexual_orientation":       {"Men", "Women", "Both", "Other"},
	"relationship_intent":      {"Marriage", "Long-term committed", "Open to marriage or LTR"},
	"relationship_timeline":    {"Ready now", "Within a year", "1-2 years", "Exploring"},
	"religion":                 {"Muslim", "Hindu", "Christian", "Jewish", "Sikh", "Buddhist", "Spiritual", "Atheist", "Other"},
	"religious_practice_level": {"Devout", "Practicing", "Cultural", "Non-practicing"},
	"children_intent":          {"Want kids", "Probably yes", "Open to kids", "Probably not", "Don't want kids"},
	"smoking":                  {"Never", "Socially", "Current smoker", "Former smoker"},
	"drinking":                 {"Never", "Socially", "Regularly", "Prefer not to say"},
	"dietary_restrictions":     {"None", "Halal", "Vegetarian", "Kosher", "Vegan", "Jain", "Other"},
	"marital_history":          {"Never married", "Divorced", "Widowed", "Separated"},
	"education_level":          {"High School", "Some College", "Bachelors", "Masters", "PhD", "Other"},
}

// quickReplyFields maps legacy button categories to profile field names.
var quickReplyFields = map[string]string{
	"gender":      "gender_identity",
	"orientation": "sexual_orientation",
	"children":    "children_intent",
	"marital":     "marital_history",
	"intent":      "relationship_intent",
	"timeline":    "relationship_timeline",
	"diet":        "dietary_restrictions",
	"education":   "education_level",
}

// childrenIntentValues maps compact button payloads to their stored form.
var childrenIntentValues = map[string]string{
	"WantKids":     "Want kids",
	"DontWantKids": "Don't want kids",
	"AlreadyHave":  "Already have kids",
	"OpenToEither": "Open to either",
	"NotSure":      "Not sure yet",
}

var (
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z0-9])`)
	digitBoundary = regexp.MustCompile(`([0-9])([A-Z])`)
)

// IsCategorical reports whether the field has a fixed option catalog.
func IsCategorical(field string) bool {
	_, ok := categoricalOptions[field]
	return ok
}

// OptionsFor returns the catalog options for a categorical field.
func OptionsFor(field string) []string {
	options, ok := categoricalOptions[field]
	if !ok {
		return nil
	}
	out := make([]string, len(options))
	copy(out, options)
	return out
}

// NormalizeFieldValue maps a value onto its catalog spelling when a
// case-insensitive match exists. Unknown values pass through trimmed.
func NormalizeFieldValue(field, value string) string {
	value = strings.TrimSpace(value)
	if canonical, ok := catalogMatch(field, value); ok {
		return canonical
	}
	return value
}

func catalogMatch(field, value string) (string, bool) {
	for _, option := range categoricalOptions[field] {
		if strings.EqualFold(option, value) {
			return option, true
		}
	}
	return "", false
}

// ParseQuickReply decodes "category:value" button payloads into a profile
// field and its stored value. Values are matched against the catalog as-is
// first, so compact payload spellings (PreferNotToSay, NeverMarried,
// 1To2Years) are expanded only when the raw value is not already canonical.
func ParseQuickReply(data string) (string, string, bool) {
	category, value, ok := strings.Cut(data, ":")
	if !ok {
		return "", "", false
	}

	category = strings.TrimSpace(category)
	value = strings.TrimSpace(value)
	if category == "" || value == "" {
		return "", "", false
	}

	field, ok := quickReplyFields[category]
	if !ok {
		field = category
	}

	if canonical, ok := catalogMatch(field, value); ok {
		return field, canonical, true
	}
	return field, NormalizeFieldValue(field, expandQuickReplyValue(value)), true
}

func expandQuickReplyValue(value string) string {
	if value == "PreferNotToSay" {
		return "Prefer not to say"
	}
	if expanded, ok := childrenIntentValues[value]; ok {
		return expanded
	}

	if strings.HasSuffix(value, "Years") && strings.Contains(value, "To") {
		value = strings.Replace(value, "To", "-", 1)
	}
	value = camelBoundary.ReplaceAllString(value, "$1 $2")
	value = digitBoundary.ReplaceAllString(value, "$1 $2")
	return value
}
