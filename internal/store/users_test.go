package store

import (
	"strings"
	"testing"
)

func TestHardFilterAssignments(t *testing.T) {
	t.Parallel()

	filters := map[string]any{
		"city":          "Sydney",
		"full_name":     "Priya Sharma",
		"height_cm":     170.0,
		"telegram_join": "2024-01-01",
		"occupation":    "   ",
	}

	assignments, args, skipped := hardFilterAssignments(filters)

	// Allow-list order, not map order.
	if len(assignments) != 3 {
		t.Fatalf("expected 3 assignments, got %v", assignments)
	}
	if assignments[0] != "full_name = $1" || assignments[1] != "city = $2" || assignments[2] != "height_cm = $3" {
		t.Fatalf("unexpected assignment order: %v", assignments)
	}

	if args[0] != "Priya Sharma" || args[1] != "Sydney" {
		t.Fatalf("unexpected args: %v", args)
	}
	if args[2] != 170 {
		t.Fatalf("expected height coerced to int, got %T %v", args[2], args[2])
	}

	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped fields, got %v", skipped)
	}
	joined := strings.Join(skipped, ",")
	if !strings.Contains(joined, "telegram_join") || !strings.Contains(joined, "occupation") {
		t.Fatalf("expected unknown and blank fields skipped, got %v", skipped)
	}
}

func TestHardFilterAssignmentsEmpty(t *testing.T) {
	t.Parallel()

	assignments, args, skipped := hardFilterAssignments(map[string]any{})
	if len(assignments) != 0 || len(args) != 0 || len(skipped) != 0 {
		t.Fatalf("expected nothing for empty filters, got %v %v %v", assignments, args, skipped)
	}
}

func TestHardFilterValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		column string
		raw    any
		want   any
		usable bool
	}{
		{"string trimmed", "city", "  Sydney ", "Sydney", true},
		{"blank string unusable", "city", "   ", nil, false},
		{"number formatted for text column", "full_name", 42.0, "42", true},
		{"bool formatted for text column", "smoking", true, "true", true},
		{"height from float", "height_cm", 167.6, 168, true},
		{"height from numeric string", "height_cm", "170", 170, true},
		{"height from garbage", "height_cm", "tall", nil, false},
		{"list unusable", "city", []any{"Sydney"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, usable := hardFilterValue(tt.column, tt.raw)
			if usable != tt.usable {
				t.Fatalf("expected usable=%v, got %v", tt.usable, usable)
			}
			if usable && got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
