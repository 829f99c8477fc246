package conversation

import "testing"

func TestInRollout(t *testing.T) {
	t.Parallel()

	// sha256 buckets: user-1 -> 52, user-2 -> 7, user-3 -> 72.
	tests := []struct {
		name   string
		userID string
		pct    int
		want   bool
	}{
		{name: "zero percent excludes everyone", userID: "user-2", pct: 0, want: false},
		{name: "negative percent excludes everyone", userID: "user-2", pct: -5, want: false},
		{name: "full rollout includes everyone", userID: "user-1", pct: 100, want: true},
		{name: "over full rollout includes everyone", userID: "user-1", pct: 150, want: true},
		{name: "low bucket inside", userID: "user-2", pct: 10, want: true},
		{name: "high bucket outside", userID: "user-1", pct: 10, want: false},
		{name: "bucket equal to pct is outside", userID: "user-3", pct: 72, want: false},
		{name: "bucket below pct is inside", userID: "user-3", pct: 73, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := InRollout(tt.userID, tt.pct); got != tt.want {
				t.Fatalf("InRollout(%q, %d) = %v, want %v", tt.userID, tt.pct, got, tt.want)
			}
		})
	}
}

func TestInRolloutDeterministic(t *testing.T) {
	t.Parallel()

	for i := 0; i < 5; i++ {
		if InRollout("user-2", 10) != true {
			t.Fatal("bucket changed between calls")
		}
	}
}
