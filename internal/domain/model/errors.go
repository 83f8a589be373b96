package model

import "errors"

// Sentinel kinds for payload errors. These are fatal for the map instance
// that submitted the payload.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrMissingHome      = errors.New("payload missing home coordinates")
	ErrUnknownVariant   = errors.New("unknown map variant")
)
