package entity

import "strings"

// Level is the canonical severity vocabulary shared by every source.
type Level int

const (
	// LevelNone marks a record whose source carries no severity at all.
	LevelNone Level = iota
	LevelUnknown
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
	// LevelUnmapped keeps an upstream string that has no canonical mapping.
	LevelUnmapped
)

var levelNames = map[Level]string{
	LevelNone:     "",
	LevelUnknown:  "unknown",
	LevelLow:      "low",
	LevelMedium:   "medium",
	LevelHigh:     "high",
	LevelCritical: "critical",
	LevelUnmapped: "unmapped",
}

// String returns the lower-case canonical name of the level.
func (l Level) String() string {
	return levelNames[l]
}

// Severity is a tagged severity value: the canonical level plus the
// upstream string it was derived from.
type Severity struct {
	Level Level
	Raw   string
}

// NoSeverity is the severity of records from sources without a severity field.
var NoSeverity = Severity{Level: LevelNone}

// Unmapped wraps an upstream severity string that no table maps.
func Unmapped(raw string) Severity {
	return Severity{Level: LevelUnmapped, Raw: strings.TrimSpace(raw)}
}

// IsZero reports whether the severity is absent.
func (s Severity) IsZero() bool {
	return s.Level == LevelNone
}

// String renders the canonical name, or the original text when unmapped.
func (s Severity) String() string {
	if s.Level == LevelUnmapped {
		return s.Raw
	}
	return s.Level.String()
}

// Rank orders severities for sorting; unmapped and absent values sort lowest.
func (s Severity) Rank() int {
	switch s.Level {
	case LevelCritical:
		return 4
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	case LevelLow:
		return 1
	default:
		return 0
	}
}

// MarshalText encodes the severity as its display string.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SeverityTable maps one source's upstream vocabulary onto canonical levels.
// Keys are matched case-insensitively after trimming.
type SeverityTable map[string]Level

// Map converts an upstream severity string. Strings missing from the
// table are preserved as Unmapped rather than dropped.
func (t SeverityTable) Map(raw string) Severity {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Severity{Level: LevelUnknown}
	}
	if lvl, ok := t[strings.ToLower(raw)]; ok {
		return Severity{Level: lvl, Raw: raw}
	}
	return Unmapped(raw)
}

// Allows reports whether raw is one of the table's upstream keys, which is
// how a source expresses the severities it considers interesting.
func (t SeverityTable) Allows(raw string) bool {
	_, ok := t[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}
