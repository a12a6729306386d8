// Package repository holds the in-memory entity store and publishes
// immutable snapshots of it for readers.
package repository

import (
	"context"

	"github.com/okian/standings/internal/domain/model"
)

// Store provides read/write access to the entity population.
type Store interface {
	// Upsert validates e and replaces any stored entity with the same ID.
	Upsert(ctx context.Context, e model.Entity) error
	// Get returns the stored entity or ErrNotFound.
	Get(ctx context.Context, id string) (model.Entity, error)
	// Remove deletes the entity or returns ErrNotFound.
	Remove(ctx context.Context, id string) error
	// Rollover closes the ranking period: every entity's current metrics
	// become its prior metrics. It returns the number of entities rolled.
	Rollover(ctx context.Context) (int, error)
	// Snapshot returns the latest published snapshot; never nil.
	Snapshot() *model.Snapshot
	// Count returns the number of stored entities.
	Count(ctx context.Context) int
}
