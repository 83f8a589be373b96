package repository

import "errors"

// Sentinel kinds for dataset store errors.
var (
	ErrNotFound  = errors.New("map instance not found")
	ErrStoreFull = errors.New("dataset store full")
)
