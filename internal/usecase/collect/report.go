package collect

import (
	"time"

	"vuln-feed/internal/domain/entity"
)

// SourceStatus is the outcome of one adapter call.
type SourceStatus struct {
	Source string

	// Date is the fetched date; empty in search mode.
	Date string

	Count     int
	Err       error
	Truncated bool
	Duration  time.Duration
}

// Report is the result of an aggregated fetch or search.
type Report struct {
	Records  []*entity.Vuln
	Statuses []SourceStatus

	// Duplicates counts records dropped by dedup (fetch mode only).
	Duplicates int
}

// Failed lists the failed adapter calls in call order.
func (r *Report) Failed() []SourceStatus {
	var out []SourceStatus
	for _, s := range r.Statuses {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Partial reports whether any adapter failed or stopped early.
func (r *Report) Partial() bool {
	for _, s := range r.Statuses {
		if s.Err != nil || s.Truncated {
			return true
		}
	}
	return false
}
