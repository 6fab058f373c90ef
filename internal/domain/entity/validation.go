package entity

import (
	"fmt"
	"strings"
	"time"
)

// IsCVEKeyword reports whether a search keyword selects exact CVE matching.
func IsCVEKeyword(keyword string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(keyword)), "cve-")
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ValidateDateRange checks both ends parse and start is not after end.
func ValidateDateRange(start, end string) (time.Time, time.Time, error) {
	s, err := ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if s.After(e) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange, start, end)
	}
	return s, e, nil
}

// DatesBetween lists every calendar date in [start, end] inclusive.
func DatesBetween(start, end time.Time) []string {
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out
}
