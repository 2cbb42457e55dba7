package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/lifelist/internal/dbx"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

// CreateCollection adds a collection owned by the active identity. Guest
// collections stay local until adopted on login.
func (s *Store) CreateCollection(ctx context.Context, c *models.Collection) error {
	owner := s.ActiveUser()
	now := s.now()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Kind == "" {
		c.Kind = models.KindCustom
	}
	c.OwnerID = owner
	c.SyncStatus = initialStatus(owner)
	c.CreatedAt = now
	c.UpdatedAt = now

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := collectionsRepo(tx).Insert(ctx, c); err != nil {
			return err
		}
		if c.SyncStatus == models.SyncPendingOwner {
			return nil
		}
		return s.enqueue(ctx, tx, models.KindCollection, c.ID, owner, models.OpCreate, c)
	})
}

// UpdateCollection applies the caller's edits to title, location and dates.
// Aggregates and sync bookkeeping are not the caller's to set.
func (s *Store) UpdateCollection(ctx context.Context, c *models.Collection) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := collectionsRepo(tx)

		cur, err := s.visibleCollection(ctx, tx, c.ID)
		if err != nil {
			return err
		}

		cur.Title = c.Title
		cur.Location = c.Location
		cur.StartDate = c.StartDate
		cur.EndDate = c.EndDate
		cur.SyncStatus = bumpStatus(cur.SyncStatus)
		cur.UpdatedAt = s.now()

		if err := repo.Update(ctx, cur); err != nil {
			return err
		}
		*c = *cur
		if cur.SyncStatus == models.SyncPendingOwner {
			return nil
		}
		return s.enqueue(ctx, tx, models.KindCollection, cur.ID, cur.OwnerID, queueOp(cur.SyncStatus), cur)
	})
}

// DeleteCollection removes a collection and everything under it. A
// collection the server has seen is tombstoned and queued for remote
// deletion; one that never left the device is dropped outright together
// with its queue entry.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cur, err := s.visibleCollection(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := s.dropChildren(ctx, tx, id); err != nil {
			return err
		}

		if cur.SyncStatus == models.SyncPendingCreate || cur.SyncStatus == models.SyncPendingOwner {
			if err := collectionsRepo(tx).Delete(ctx, id); err != nil {
				return err
			}
			// cancel the queued create instead of pushing a delete for a
			// record the server never saw
			return queueRepo(tx).Remove(ctx, models.KindCollection, id)
		}

		now := s.now()
		cur.DeletedAt = &now
		cur.UpdatedAt = now
		cur.SyncStatus = models.SyncPendingDelete
		if err := collectionsRepo(tx).Update(ctx, cur); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, models.KindCollection, id, cur.OwnerID, models.OpDelete, cur)
	})
}

// Collections lists the collections visible to the active identity: the
// guest sees guest-local ones, an authenticated user sees their own plus
// shared ones.
func (s *Store) Collections(ctx context.Context) ([]models.Collection, error) {
	owner := s.ActiveUser()
	list, err := collectionsRepo(s.db).ListByOwner(ctx, owner, owner != "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	// the query over-selects for the guest: a shared collection it created
	// matches owner_id='' but is hidden until login, same as GetCollection
	visible := list[:0]
	for i := range list {
		if list[i].Visible(owner) {
			visible = append(visible, list[i])
		}
	}
	return visible, nil
}

// GetCollection returns one visible collection.
func (s *Store) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	c, err := collectionsRepo(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	if c.DeletedAt != nil || !c.Visible(s.ActiveUser()) {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

// visibleCollection loads a collection inside tx and enforces visibility
// before a mutation touches it.
func (s *Store) visibleCollection(ctx context.Context, tx dbx.DBTX, id string) (*models.Collection, error) {
	c, err := collectionsRepo(tx).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.DeletedAt != nil || !c.Visible(s.ActiveUser()) {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

// dropChildren removes everything under a collection: photo, item and rule
// rows plus their queue entries. Child queue entries must go too, or the
// agent would keep pushing operations for records that no longer exist.
func (s *Store) dropChildren(ctx context.Context, tx dbx.DBTX, collectionID string) error {
	queue := queueRepo(tx)

	itemList, err := itemsRepo(tx).ListByCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	for i := range itemList {
		photoList, err := photosRepo(tx).ListByItem(ctx, itemList[i].ID)
		if err != nil {
			return err
		}
		for j := range photoList {
			if err := queue.Remove(ctx, models.KindPhoto, photoList[j].ID); err != nil {
				return err
			}
		}
		if err := queue.Remove(ctx, models.KindItem, itemList[i].ID); err != nil {
			return err
		}
	}

	ruleList, err := rulesRepo(tx).ListByCollection(ctx, collectionID, false)
	if err != nil {
		return err
	}
	for i := range ruleList {
		if err := queue.Remove(ctx, models.KindRule, ruleList[i].ID); err != nil {
			return err
		}
	}

	if err := photosRepo(tx).DeleteByCollection(ctx, collectionID); err != nil {
		return err
	}
	if err := itemsRepo(tx).DeleteByCollection(ctx, collectionID); err != nil {
		return err
	}
	return rulesRepo(tx).DeleteByCollection(ctx, collectionID)
}

// queueOp maps a pending status to the remote operation it calls for.
func queueOp(st models.SyncStatus) models.Operation {
	switch st {
	case models.SyncPendingCreate, models.SyncPendingOwner:
		return models.OpCreate
	case models.SyncPendingDelete:
		return models.OpDelete
	default:
		return models.OpUpdate
	}
}
