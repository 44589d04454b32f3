package services

import (
	"errors"
)

// Error taxonomy for webhook ingestion. Handlers map these onto the response
// contract: validation and resolution failures are deterministic and return
// success=false with HTTP 200 (retrying cannot help), upstream fetch and
// persistence failures return HTTP 500 so the sender redelivers.
var (
	// ErrValidation marks an event missing required fields.
	ErrValidation = errors.New("validation failed")

	// ErrResolution marks a required local entity that could not be
	// resolved or provisioned.
	ErrResolution = errors.New("resolution failed")

	// ErrUpstreamFetch marks a failed call to the accounting API.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
)

// IsDeterministicFailure reports whether retrying the same delivery is
// pointless.
func IsDeterministicFailure(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrResolution)
}
