// Package photos persists Photo attachment records in the local database.
package photos

import (
	"context"

	"github.com/dmitrijs2005/lifelist/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, p *models.Photo) error
	Update(ctx context.Context, p *models.Photo) error
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	ListByItem(ctx context.Context, itemID string) ([]models.Photo, error)
	Delete(ctx context.Context, id string) error
	DeleteByItem(ctx context.Context, itemID string) error

	// DeleteByCollection removes every photo under the collection's items.
	// Must run before the items themselves are deleted.
	DeleteByCollection(ctx context.Context, collectionID string) error
}
