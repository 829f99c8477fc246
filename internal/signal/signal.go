package signal

// Confidence thresholds for extracted signals. Anything below StoreMinimum
// never reaches storage.
const (
	StoreMinimum      = 0.70
	Explicit          = 1.0
	StrongInference   = 0.85
	ModerateInference = 0.70
)

const (
	SourceExplicit = "explicit"
	SourceInferred = "inferred"
)

// Signal is one extracted attribute with its confidence. It is transient:
// produced by extraction, merged once, then lives on only as profile data.
type Signal struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

// Batch maps field names to signals within a single category.
type Batch map[string]Signal

// Categories lists the valid signal categories, in tier order.
var Categories = []string{
	"lifestyle",
	"values",
	"relationship_style",
	"personality",
	"family_background",
	"media_signals",
	"match_learnings",
}

func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Merge reconciles incoming signals against existing ones without ever
// lowering the trustworthiness of stored data. A field present only in
// incoming is inserted; a field present in both keeps the existing signal
// unless the incoming confidence is strictly greater. Equal confidence keeps
// the existing value, so restated facts do not churn storage.
//
// Incoming entries below StoreMinimum or with a nil value are ignored.
// Neither input map is mutated.
func Merge(existing, incoming Batch) Batch {
	merged := make(Batch, len(existing)+len(incoming))
	for field, sig := range existing {
		merged[field] = sig
	}

	for field, sig := range incoming {
		if sig.Value == nil || sig.Confidence < StoreMinimum {
			continue
		}

		current, ok := merged[field]
		if !ok || sig.Confidence > current.Confidence {
			merged[field] = sig
		}
	}

	return merged
}

// FilterByConfidence returns the entries at or above the threshold, dropping
// malformed entries with a nil value.
func FilterByConfidence(batch Batch, threshold float64) Batch {
	filtered := make(Batch, len(batch))
	for field, sig := range batch {
		if sig.Value == nil || sig.Confidence < threshold {
			continue
		}
		filtered[field] = sig
	}
	return filtered
}
