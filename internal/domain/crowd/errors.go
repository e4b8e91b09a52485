// internal/domain/crowd/errors.go

package crowd

import "errors"

var (
	// ErrMissingLocation is returned when a query carries neither a place
	// name nor coordinates. Rejected before any source call.
	ErrMissingLocation = errors.New("location parameter or coordinates are required")

	// ErrNoEvidence is returned when every configured source came back
	// empty for a query. This is a domain failure, not a transport error.
	ErrNoEvidence = errors.New("no data found for the specified location")
)
