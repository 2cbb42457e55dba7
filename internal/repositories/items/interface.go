// Package items persists Item records in the local database.
package items

import (
	"context"

	"github.com/dmitrijs2005/lifelist/internal/models"
)

type Repository interface {
	// Insert adds an item. Returns shared.ErrDuplicateEntry when the
	// collection already tracks the same species.
	Insert(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id string) (*models.Item, error)
	ListByCollection(ctx context.Context, collectionID string) ([]models.Item, error)
	ListAll(ctx context.Context) ([]models.Item, error)

	// SpeciesIDs returns the set of species tracked by the collection.
	SpeciesIDs(ctx context.Context, collectionID string) (map[string]struct{}, error)

	// Counts returns the total and completed item counts for a collection,
	// feeding the cached aggregates on the owning collection.
	Counts(ctx context.Context, collectionID string) (total, completed int, err error)

	Delete(ctx context.Context, id string) error
	DeleteByCollection(ctx context.Context, collectionID string) error
}
