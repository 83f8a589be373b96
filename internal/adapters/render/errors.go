package render

import "errors"

// Sentinel kinds for render errors.
var (
	// ErrUnavailable is returned when the plotting library fails to
	// become ready inside the poll window. Fatal for the map instance.
	ErrUnavailable = errors.New("render library unavailable")
)
