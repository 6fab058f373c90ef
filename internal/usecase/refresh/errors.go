package refresh

import "errors"

var (
	// ErrStale is returned when a newer refresh started before this one
	// finished; its results were discarded.
	ErrStale = errors.New("refresh superseded by a newer request")

	// ErrNoSnapshot is returned by Latest before the first refresh completed.
	ErrNoSnapshot = errors.New("no snapshot published yet")
)
