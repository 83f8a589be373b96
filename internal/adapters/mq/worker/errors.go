package worker

import "errors"

// Sentinel kinds for loop errors.
var (
	ErrShutdownTimeout = errors.New("derivation loop shutdown timed out")
)
