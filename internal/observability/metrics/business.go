package metrics

import "time"

// Call outcomes recorded by RecordSourceCall.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailure = "failure"
)

// RecordSourceCall records one adapter call. A truncated call (pagination
// stopped by a failed page) counts as partial.
func RecordSourceCall(source, op string, records int, truncated bool, err error, duration time.Duration) {
	status := StatusSuccess
	switch {
	case err != nil:
		status = StatusFailure
	case truncated:
		status = StatusPartial
	}
	SourceCallsTotal.WithLabelValues(source, op, status).Inc()
	SourceCallDuration.WithLabelValues(source, op).Observe(duration.Seconds())
	if records > 0 {
		SourceRecordsTotal.WithLabelValues(source, op).Add(float64(records))
	}
}

// RecordPageFailure records a page abandoned after all retry attempts.
func RecordPageFailure(source string) {
	SourcePageFailures.WithLabelValues(source).Inc()
}

// RecordDuplicates adds n dropped duplicates.
func RecordDuplicates(n int) {
	if n > 0 {
		DuplicatesDropped.Add(float64(n))
	}
}

// RecordPoCLookup records whether a resolver call was served from cache.
func RecordPoCLookup(cacheHit bool) {
	result := "miss"
	if cacheHit {
		result = "hit"
	}
	PoCLookupsTotal.WithLabelValues(result).Inc()
}

// RecordPoCQuery records one upstream repository search.
func RecordPoCQuery(phase string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	PoCQueriesTotal.WithLabelValues(phase, status).Inc()
}
