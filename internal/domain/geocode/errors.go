package geocode

import "errors"

var (
	// ErrNoResult is returned by providers when the upstream has no match.
	ErrNoResult = errors.New("no geocode result")
	// ErrUpstream wraps non-success HTTP statuses and provider error states.
	ErrUpstream = errors.New("geocode upstream failure")
	// ErrMalformed wraps payloads that do not decode.
	ErrMalformed = errors.New("malformed geocode response")
)
