package store

import "testing"

func TestOrderedPair(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b          string
		first, second string
	}{
		{"user-9", "user-1", "user-1", "user-9"},
		{"user-1", "user-9", "user-1", "user-9"},
		{"alpha", "alpha2", "alpha", "alpha2"},
	}

	for _, tt := range tests {
		first, second := orderedPair(tt.a, tt.b)
		if first != tt.first || second != tt.second {
			t.Fatalf("orderedPair(%q, %q): expected (%q, %q), got (%q, %q)",
				tt.a, tt.b, tt.first, tt.second, first, second)
		}
	}
}

func TestValidMatchStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []string{MatchStatusProposed, MatchStatusInterested, MatchStatusRejected} {
		if !ValidMatchStatus(status) {
			t.Fatalf("expected %q to be valid", status)
		}
	}

	for _, status := range []string{"", "accepted", "PROPOSED"} {
		if ValidMatchStatus(status) {
			t.Fatalf("expected %q to be invalid", status)
		}
	}
}

func TestMatchOther(t *testing.T) {
	t.Parallel()

	match := &Match{UserA: "user-1", UserB: "user-9"}

	if other := match.Other("user-1"); other != "user-9" {
		t.Fatalf("expected user-9, got %s", other)
	}
	if other := match.Other("user-9"); other != "user-1" {
		t.Fatalf("expected user-1, got %s", other)
	}
}
