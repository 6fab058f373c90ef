package collect

import (
	"errors"

	"vuln-feed/internal/domain/entity"
)

var (
	// ErrInvalidDate is returned for a date that is not YYYY-MM-DD.
	ErrInvalidDate = entity.ErrInvalidDate

	// ErrInvalidDateRange is returned when start is after end.
	ErrInvalidDateRange = entity.ErrInvalidDateRange

	// ErrEmptyKeyword is returned by SearchAll for a blank keyword.
	ErrEmptyKeyword = errors.New("keyword is required")

	// ErrNoSources is returned when no adapter was supplied.
	ErrNoSources = errors.New("no sources selected")

	// ErrSourcePanic is recorded as a source's error when its adapter panics.
	ErrSourcePanic = errors.New("source adapter panicked")
)
