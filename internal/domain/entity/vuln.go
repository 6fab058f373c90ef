// Package entity defines the canonical vulnerability record shared by every
// feed adapter, along with its severity vocabulary and validation rules.
package entity

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for every record and query.
const DateLayout = "2006-01-02"

var cvePattern = regexp.MustCompile(`(?i)^CVE-\d{4}-\d{4,}$`)

// VulnParams carries raw, upstream-shaped values into NewVuln.
type VulnParams struct {
	Name        string
	CVE         string
	OtherID     string
	Date        string
	Severity    Severity
	Tags        string
	Source      string
	Description string
	Reference   string
}

// Vuln is one normalized vulnerability observation. It is immutable:
// all normalization happens in NewVuln.
type Vuln struct {
	name        string
	cve         string
	otherID     string
	date        string
	severity    Severity
	tags        string
	source      string
	description string
	reference   string
}

// NewVuln validates and normalizes p into a Vuln.
//
// The CVE is upper-cased; a value that is not a CVE identifier moves to
// OtherID. A date with a time suffix ("2025-01-02 10:00", "2025-01-02T10:00Z")
// is cut to its calendar date.
func NewVuln(p VulnParams) (*Vuln, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}
	source := strings.TrimSpace(p.Source)
	if source == "" {
		return nil, &ValidationError{Field: "source", Message: "source is required"}
	}

	date, err := NormalizeDate(p.Date)
	if err != nil {
		return nil, &ValidationError{Field: "date", Message: err.Error()}
	}

	cve, other := NormalizeCVE(p.CVE), strings.TrimSpace(p.OtherID)
	if cve == "" && strings.TrimSpace(p.CVE) != "" && other == "" {
		other = strings.TrimSpace(p.CVE)
	}

	return &Vuln{
		name:        name,
		cve:         cve,
		otherID:     other,
		date:        date,
		severity:    p.Severity,
		tags:        strings.TrimSpace(p.Tags),
		source:      source,
		description: strings.TrimSpace(p.Description),
		reference:   strings.TrimSpace(p.Reference),
	}, nil
}

// Name returns the vulnerability title.
func (v *Vuln) Name() string { return v.name }

// CVE returns the canonical CVE identifier, or "".
func (v *Vuln) CVE() string { return v.cve }

// OtherID returns a provider-specific identifier, or "".
func (v *Vuln) OtherID() string { return v.otherID }

// Date returns the disclosure date as YYYY-MM-DD, or "".
func (v *Vuln) Date() string       { return v.date }
func (v *Vuln) Severity() Severity { return v.severity }
func (v *Vuln) Tags() string       { return v.tags }

// Source returns the provenance tag of the adapter that built the record.
func (v *Vuln) Source() string      { return v.source }
func (v *Vuln) Description() string { return v.description }
func (v *Vuln) Reference() string   { return v.reference }

// DedupKey identifies duplicates across sources: the CVE when present,
// otherwise the name and date pair.
func (v *Vuln) DedupKey() string {
	if v.cve != "" {
		return v.cve
	}
	return v.name + "|" + v.date
}

type vulnJSON struct {
	Name        string   `json:"name"`
	CVE         string   `json:"cve,omitempty"`
	OtherID     string   `json:"other_id,omitempty"`
	Date        string   `json:"date,omitempty"`
	Severity    Severity `json:"severity"`
	Tags        string   `json:"tags,omitempty"`
	Source      string   `json:"source"`
	Description string   `json:"description,omitempty"`
	Reference   string   `json:"reference,omitempty"`
}

// MarshalJSON exposes the record to the CLI and HTTP surfaces.
func (v *Vuln) MarshalJSON() ([]byte, error) {
	return json.Marshal(vulnJSON{
		Name:        v.name,
		CVE:         v.cve,
		OtherID:     v.otherID,
		Date:        v.date,
		Severity:    v.severity,
		Tags:        v.tags,
		Source:      v.source,
		Description: v.description,
		Reference:   v.reference,
	})
}

// NormalizeCVE returns the upper-case CVE identifier, or "" when raw is
// not one.
func NormalizeCVE(raw string) string {
	raw = strings.TrimSpace(raw)
	if !cvePattern.MatchString(raw) {
		return ""
	}
	return strings.ToUpper(raw)
}

// NormalizeDate cuts a timestamp down to YYYY-MM-DD and validates it.
// An empty input stays empty.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	if _, err := time.Parse(DateLayout, raw); err != nil {
		return "", ErrInvalidDate
	}
	return raw, nil
}
