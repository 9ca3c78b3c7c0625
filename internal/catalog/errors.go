package catalog

import (
	"errors"
	"fmt"
)

// ErrAlignmentExhausted is reported through LoadResult.Notice when the
// installed source ran out of pages while still alphabetically behind the
// catalog. Catalog entries past that point may lack an installed annotation.
var ErrAlignmentExhausted = errors.New("installed packages exhausted before catalog position")

// FetchError wraps a failed page fetch with the source and page it came from.
// The cursor of that source is left unchanged, so the call can be retried.
type FetchError struct {
	Source Source
	Page   int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s page %d: %v", e.Source, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Partial reports whether catalog progress was kept despite the failure.
func (e *FetchError) Partial() bool { return e.Source == SourceInstalled }

// OrderError reports a page that violates the name ordering the engine relies
// on to align both sources. The engine expects names case-insensitively
// ordered with byte order breaking ties. A server whose database collation
// orders names differently (one that ignores punctuation, say, and puts
// python_abi before python-dateutil) fails on every load; retrying does not
// help until the server collation matches.
type OrderError struct {
	Previous string
	Next     string
	// Position is the offset of Next within its page.
	Position int
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("names out of order at position %d: %q after %q (server name collation must be case-insensitive with byte order ties)",
		e.Position, e.Next, e.Previous)
}

// AsFetchError extracts a *FetchError from err.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
