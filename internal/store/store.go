// Package store is the persistence boundary: the FunnelStore contract
// the sync engine talks to, its MongoDB implementation, and the local
// fallback cache. Storage-format concerns (normalization) stay in this
// package and never leak into the domain model.
package store

import (
	"context"
	"errors"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

// ErrNotFound is returned when a funnel document does not exist.
var ErrNotFound = errors.New("funnel not found")

// FunnelStore is the remote document store the engine persists to.
// Every write sends the entire funnel snapshot; there are no deltas.
type FunnelStore interface {
	// ListByOwner returns the owner's funnels, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Funnel, error)
	// Create inserts the funnel and returns the canonical document id.
	Create(ctx context.Context, funnel models.Funnel) (string, error)
	// Update replaces the document body by id.
	Update(ctx context.Context, id string, funnel models.Funnel) error
	// Delete removes the document by id.
	Delete(ctx context.Context, id string) error
	// Get fetches one funnel by id with no ownership check.
	Get(ctx context.Context, id string) (*models.Funnel, error)
}
