// Package rules persists Rule records in the local database.
package rules

import (
	"context"

	"github.com/dmitrijs2005/lifelist/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, rule *models.Rule) error
	Update(ctx context.Context, rule *models.Rule) error
	GetByID(ctx context.Context, id string) (*models.Rule, error)

	// ListByCollection returns the collection's rules ordered by priority
	// descending. activeOnly restricts to rules with the active flag set.
	ListByCollection(ctx context.Context, collectionID string, activeOnly bool) ([]models.Rule, error)

	Delete(ctx context.Context, id string) error
	DeleteByCollection(ctx context.Context, collectionID string) error
}
