// Package repository defines the dataset store interface and errors.
package repository

import (
	"context"

	"github.com/okian/relmap/internal/domain/model"
)

// Snapshot is one stored payload with its load-time diagnostics.
type Snapshot struct {
	Dataset     *model.Dataset
	Diagnostics model.Diagnostics
}

// Store provides access to the payloads backing live map instances.
type Store interface {
	// Put stores a dataset under a map instance id.
	// Returns ErrStoreFull when the instance cap is reached.
	Put(ctx context.Context, id string, snap Snapshot) error

	// Get returns the dataset for an instance id.
	// Returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (Snapshot, error)

	// Delete removes the dataset for an instance id.
	Delete(ctx context.Context, id string)

	// Count returns the number of stored datasets.
	Count(ctx context.Context) int

	// IDs returns the stored instance ids in insertion order.
	IDs(ctx context.Context) []string
}
