package signal

import "testing"

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing Batch
		incoming Batch
		expect   Batch
	}{
		{
			name:     "new field inserted",
			existing: Batch{},
			incoming: Batch{"work_style": {Value: "Startup", Confidence: 0.85}},
			expect:   Batch{"work_style": {Value: "Startup", Confidence: 0.85}},
		},
		{
			name:     "higher confidence overwrites",
			existing: Batch{"work_style": {Value: "Corporate", Confidence: 0.75}},
			incoming: Batch{"work_style": {Value: "Startup", Confidence: 0.9}},
			expect:   Batch{"work_style": {Value: "Startup", Confidence: 0.9}},
		},
		{
			name:     "lower confidence keeps existing",
			existing: Batch{"work_style": {Value: "Corporate", Confidence: 0.95}},
			incoming: Batch{"work_style": {Value: "Startup", Confidence: 0.8}},
			expect:   Batch{"work_style": {Value: "Corporate", Confidence: 0.95}},
		},
		{
			name:     "equal confidence keeps existing value",
			existing: Batch{"work_style": {Value: "Corporate", Confidence: 0.85}},
			incoming: Batch{"work_style": {Value: "Startup", Confidence: 0.85}},
			expect:   Batch{"work_style": {Value: "Corporate", Confidence: 0.85}},
		},
		{
			name:     "below threshold ignored",
			existing: Batch{},
			incoming: Batch{"work_style": {Value: "Startup", Confidence: 0.5}},
			expect:   Batch{},
		},
		{
			name:     "nil value ignored",
			existing: Batch{"pet_ownership": {Value: "dog", Confidence: 0.8}},
			incoming: Batch{"pet_ownership": {Confidence: 0.99}},
			expect:   Batch{"pet_ownership": {Value: "dog", Confidence: 0.8}},
		},
		{
			name:     "empty incoming is a no-op",
			existing: Batch{"social_energy": {Value: "introvert", Confidence: 0.9}},
			incoming: Batch{},
			expect:   Batch{"social_energy": {Value: "introvert", Confidence: 0.9}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Merge(tt.existing, tt.incoming)

			if len(got) != len(tt.expect) {
				t.Fatalf("expected %d fields, got %d", len(tt.expect), len(got))
			}
			for field, want := range tt.expect {
				have, ok := got[field]
				if !ok {
					t.Fatalf("expected field %q in merged batch", field)
				}
				if have.Value != want.Value || have.Confidence != want.Confidence {
					t.Fatalf("field %q: expected %+v, got %+v", field, want, have)
				}
			}
		})
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	existing := Batch{"work_style": {Value: "Corporate", Confidence: 0.75}}
	incoming := Batch{"work_style": {Value: "Startup", Confidence: 0.9}}

	Merge(existing, incoming)

	if existing["work_style"].Value != "Corporate" {
		t.Fatalf("existing batch was mutated: %+v", existing["work_style"])
	}
	if incoming["work_style"].Confidence != 0.9 {
		t.Fatalf("incoming batch was mutated: %+v", incoming["work_style"])
	}
}

func TestMergeConfidenceIsMonotonic(t *testing.T) {
	t.Parallel()

	batches := []Batch{
		{"family_values": {Value: "traditional", Confidence: 0.72}},
		{"family_values": {Value: "modern", Confidence: 0.7}},
		{"family_values": {Value: "blend", Confidence: 0.95}},
		{"family_values": {Value: "restated", Confidence: 0.95}},
		{"family_values": {Value: "weak guess", Confidence: 0.1}},
	}

	stored := Batch{}
	last := 0.0
	for i, batch := range batches {
		stored = Merge(stored, batch)

		current := stored["family_values"].Confidence
		if current < last {
			t.Fatalf("confidence decreased after batch %d: %f -> %f", i, last, current)
		}
		last = current
	}

	if stored["family_values"].Value != "blend" {
		t.Fatalf("expected highest-confidence value to win, got %v", stored["family_values"].Value)
	}
	if stored["family_values"].Confidence != 0.95 {
		t.Fatalf("expected confidence 0.95, got %f", stored["family_values"].Confidence)
	}
}

func TestFilterByConfidence(t *testing.T) {
	t.Parallel()

	batch := Batch{
		"strong": {Value: "kept", Confidence: 0.85},
		"weak":   {Value: "dropped", Confidence: 0.42},
		"broken": {Confidence: 0.99},
		"edge":   {Value: "kept", Confidence: StoreMinimum},
	}

	filtered := FilterByConfidence(batch, StoreMinimum)

	if len(filtered) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(filtered))
	}
	if _, ok := filtered["strong"]; !ok {
		t.Fatalf("expected strong signal to survive")
	}
	if _, ok := filtered["edge"]; !ok {
		t.Fatalf("expected threshold-equal signal to survive")
	}
}

func TestValidCategory(t *testing.T) {
	t.Parallel()

	for _, category := range Categories {
		if !ValidCategory(category) {
			t.Fatalf("expected %q to be valid", category)
		}
	}

	if ValidCategory("astrology") {
		t.Fatalf("expected unknown category to be invalid")
	}
}
