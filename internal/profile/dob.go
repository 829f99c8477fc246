package profile

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Age bounds enforced on every stored date of birth.
const (
	MinAge = 18
	MaxAge = 80
)

// Validation failures carry the message shown to the user verbatim.
var (
	ErrDOBUnparseable = errors.New("I couldn't understand that date. Could you try again? For example: '1995-05-15' or 'May 15, 1995'")
	ErrDOBInFuture    = errors.New("Date of birth cannot be in the future.")
	ErrDOBUnderage    = errors.New("You must be at least 18 years old to use Jodi.")
	ErrDOBOutOfRange  = errors.New("Please provide a valid date of birth (age 18-80).")
)

var dobLayouts = []string{
	time.DateOnly,
	"2006/01/02",
	"02-01-2006",
	"2-1-2006",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

var dobPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{4}[-/]\d{1,2}[-/]\d{1,2})\b`),
	regexp.MustCompile(`\b(\d{1,2}[-/]\d{1,2}[-/]\d{4})\b`),
	regexp.MustCompile(`\b([A-Za-z]+\s+\d{1,2},?\s+\d{4})\b`),
}

// ParseDOB parses a date of birth in any of the accepted layouts.
// Numeric day-first and month-first forms are tried in that order, so
// an ambiguous date resolves to day-first.
func ParseDOB(text string) (time.Time, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}, ErrDOBUnparseable
	}

	for _, layout := range dobLayouts {
		if dob, err := time.Parse(layout, trimmed); err == nil {
			return dob, nil
		}
	}

	return time.Time{}, ErrDOBUnparseable
}

// Age returns full years elapsed between dob and now.
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

// ValidateDOB parses text and enforces the age bounds. The returned
// error, when non-nil, is safe to send to the user as-is.
func ValidateDOB(text string, now time.Time) (time.Time, error) {
	dob, err := ParseDOB(text)
	if err != nil {
		return time.Time{}, err
	}

	if dob.After(now) {
		return time.Time{}, ErrDOBInFuture
	}

	switch age := Age(dob, now); {
	case age < MinAge:
		return time.Time{}, ErrDOBUnderage
	case age > MaxAge:
		return time.Time{}, ErrDOBOutOfRange
	}

	return dob, nil
}

// FindDOB scans a conversational message for a date of birth. Only
// explicit dates count; a bare age ("I'm 28") is never enough. The
// first candidate that passes validation wins.
func FindDOB(message string, now time.Time) (time.Time, bool) {
	for _, pattern := range dobPatterns {
		for _, match := range pattern.FindAllStringSubmatch(message, -1) {
			if dob, err := ValidateDOB(match[1], now); err == nil {
				return dob, true
			}
		}
	}
	return time.Time{}, false
}
