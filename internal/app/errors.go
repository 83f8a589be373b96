package service

import "errors"

// Sentinel errors for the engine service.
var (
	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrReducedMotion is returned when playback is requested on an
	// instance created with reduced motion; the control stays disabled.
	ErrReducedMotion = errors.New("playback disabled: reduced motion")

	// ErrPlaybackUnavailable is returned when no record carries a year
	// range, so there is no observed range for the timeline to walk.
	ErrPlaybackUnavailable = errors.New("playback unavailable: no observed years")

	// ErrInvalidState is returned when a state patch carries an
	// unrecognized value.
	ErrInvalidState = errors.New("invalid state value")
)
