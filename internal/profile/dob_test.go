package profile

import (
	"errors"
	"testing"
	"time"
)

var dobNow = time.Date(2026, time.August, 21, 12, 0, 0, 0, time.UTC)

func TestParseDOBLayouts(t *testing.T) {
	t.Parallel()

	want := time.Date(1995, time.May, 15, 0, 0, 0, 0, time.UTC)

	inputs := []string{
		"1995-05-15",
		"1995/05/15",
		"15-05-1995",
		"05/15/1995",
		"May 15, 1995",
		"May 15 1995",
		"15 May 1995",
		"  1995-05-15  ",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseDOB(input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(want) {
				t.Fatalf("expected %s, got %s", want.Format(time.DateOnly), got.Format(time.DateOnly))
			}
		})
	}
}

func TestParseDOBRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "yesterday", "I'm 28 years old", "15th of Maytember"} {
		if _, err := ParseDOB(input); !errors.Is(err, ErrDOBUnparseable) {
			t.Fatalf("expected unparseable error for %q, got %v", input, err)
		}
	}
}

func TestAge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dob  time.Time
		want int
	}{
		{"birthday passed this year", time.Date(1995, time.May, 15, 0, 0, 0, 0, time.UTC), 31},
		{"birthday later this year", time.Date(1995, time.December, 1, 0, 0, 0, 0, time.UTC), 30},
		{"birthday today", time.Date(1995, time.August, 21, 0, 0, 0, 0, time.UTC), 31},
		{"birthday tomorrow", time.Date(1995, time.August, 22, 0, 0, 0, 0, time.UTC), 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Age(tt.dob, dobNow); got != tt.want {
				t.Fatalf("expected age %d, got %d", tt.want, got)
			}
		})
	}
}

func TestValidateDOBBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"exactly 18", "2008-08-21", nil},
		{"one day short of 18", "2008-08-22", ErrDOBUnderage},
		{"seventeen", "2009-08-21", ErrDOBUnderage},
		{"exactly 80", "1946-08-21", nil},
		{"eighty-one", "1945-08-20", ErrDOBOutOfRange},
		{"future date", "2030-01-01", ErrDOBInFuture},
		{"unparseable", "not a date", ErrDOBUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dob, err := ValidateDOB(tt.input, dobNow)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && dob.IsZero() {
				t.Fatalf("expected a parsed date for %q", tt.input)
			}
		})
	}
}

func TestFindDOB(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    string
		found   bool
	}{
		{"iso embedded", "I was born on 1995-05-15 in Pune", "1995-05-15", true},
		{"month name embedded", "my birthday is May 15, 1995 actually", "1995-05-15", true},
		{"slash format", "born 05/15/1995", "1995-05-15", true},
		{"bare age is not a date", "I'm 28 years old", "", false},
		{"underage date skipped", "born 2015-01-01", "", false},
		{"no date at all", "I love hiking and cooking", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dob, ok := FindDOB(tt.message, dobNow)
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, ok)
			}
			if tt.found && dob.Format(time.DateOnly) != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, dob.Format(time.DateOnly))
			}
		})
	}
}
