// Package collections persists Collection records in the local database.
package collections

import (
	"context"

	"github.com/dmitrijs2005/lifelist/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, c *models.Collection) error
	Update(ctx context.Context, c *models.Collection) error
	GetByID(ctx context.Context, id string) (*models.Collection, error)

	// List returns every non-tombstoned collection. Visibility scoping is the
	// store's job; the repository returns whatever the database holds.
	List(ctx context.Context) ([]models.Collection, error)

	// ListByOwner returns collections owned by owner ("" selects guest-local
	// rows), including shared collections when includeShared is set.
	ListByOwner(ctx context.Context, owner string, includeShared bool) ([]models.Collection, error)

	// UpdateAggregates rewrites the cached item counters.
	UpdateAggregates(ctx context.Context, id string, itemCount, completedCount int) error

	// Delete removes the row entirely. Soft deletion goes through Update
	// with DeletedAt set; hard deletion is for records that never synced.
	Delete(ctx context.Context, id string) error
}
