package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/lifelist/internal/dbx"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

// CreateItem adds a species to a collection. Returns
// shared.ErrDuplicateEntry when the collection already tracks the species.
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	now := s.now()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = models.ItemPending
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		parent, err := s.visibleCollection(ctx, tx, item.CollectionID)
		if err != nil {
			return err
		}
		item.SyncStatus = initialStatus(parent.OwnerID)

		if err := itemsRepo(tx).Insert(ctx, item); err != nil {
			return err
		}
		if err := s.refreshAggregates(ctx, tx, item.CollectionID); err != nil {
			return err
		}
		if item.SyncStatus == models.SyncPendingOwner {
			return nil
		}
		return s.enqueue(ctx, tx, models.KindItem, item.ID, parent.OwnerID, models.OpCreate, item)
	})
}

// UpdateItem applies edits to notes, coordinates, target window and the
// notification flag. Status changes go through ToggleItem.
func (s *Store) UpdateItem(ctx context.Context, item *models.Item) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cur, parent, err := s.visibleItem(ctx, tx, item.ID)
		if err != nil {
			return err
		}

		cur.Notes = item.Notes
		cur.Lat = item.Lat
		cur.Lon = item.Lon
		cur.TargetStart = item.TargetStart
		cur.TargetEnd = item.TargetEnd
		cur.NotifyEnabled = item.NotifyEnabled
		cur.SyncStatus = bumpStatus(cur.SyncStatus)
		cur.UpdatedAt = s.now()

		if err := itemsRepo(tx).Update(ctx, cur); err != nil {
			return err
		}
		*item = *cur
		if cur.SyncStatus == models.SyncPendingOwner {
			return nil
		}
		return s.enqueue(ctx, tx, models.KindItem, cur.ID, parent.OwnerID, queueOp(cur.SyncStatus), cur)
	})
}

// ToggleItem flips an item between pending and completed, stamping or
// clearing the completion time, and refreshes the parent's aggregates.
func (s *Store) ToggleItem(ctx context.Context, id string) (*models.Item, error) {
	var out *models.Item
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cur, parent, err := s.visibleItem(ctx, tx, id)
		if err != nil {
			return err
		}

		now := s.now()
		if cur.Status == models.ItemCompleted {
			cur.Status = models.ItemPending
			cur.CompletedAt = nil
		} else {
			cur.Status = models.ItemCompleted
			cur.CompletedAt = &now
		}
		cur.SyncStatus = bumpStatus(cur.SyncStatus)
		cur.UpdatedAt = now

		if err := itemsRepo(tx).Update(ctx, cur); err != nil {
			return err
		}
		if err := s.refreshAggregates(ctx, tx, cur.CollectionID); err != nil {
			return err
		}
		out = cur
		if cur.SyncStatus == models.SyncPendingOwner {
			return nil
		}
		return s.enqueue(ctx, tx, models.KindItem, cur.ID, parent.OwnerID, queueOp(cur.SyncStatus), cur)
	})
	return out, err
}

// DeleteItem removes the item locally. An item the server has seen gets a
// delete queued; one that never left the device has its queued create
// cancelled instead.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cur, parent, err := s.visibleItem(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := s.dropItemPhotos(ctx, tx, id); err != nil {
			return err
		}
		if err := itemsRepo(tx).Delete(ctx, id); err != nil {
			return err
		}
		if err := s.refreshAggregates(ctx, tx, cur.CollectionID); err != nil {
			return err
		}

		if cur.SyncStatus == models.SyncPendingCreate || cur.SyncStatus == models.SyncPendingOwner {
			return queueRepo(tx).Remove(ctx, models.KindItem, id)
		}
		return s.enqueue(ctx, tx, models.KindItem, id, parent.OwnerID, models.OpDelete, cur)
	})
}

// Items lists a collection's items.
func (s *Store) Items(ctx context.Context, collectionID string) ([]models.Item, error) {
	if _, err := s.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}
	list, err := itemsRepo(s.db).ListByCollection(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return list, nil
}

// AllItems returns the union of items across visible collections, one entry
// per species. When the same species appears in several collections a
// completed sighting wins over a pending one.
func (s *Store) AllItems(ctx context.Context) ([]models.Item, error) {
	cols, err := s.Collections(ctx)
	if err != nil {
		return nil, err
	}
	visible := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		visible[c.ID] = struct{}{}
	}

	all, err := itemsRepo(s.db).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}

	bySpecies := make(map[string]int) // species id -> index in out
	var out []models.Item
	for _, item := range all {
		if _, ok := visible[item.CollectionID]; !ok {
			continue
		}
		i, seen := bySpecies[item.SpeciesID]
		if !seen {
			bySpecies[item.SpeciesID] = len(out)
			out = append(out, item)
			continue
		}
		if out[i].Status != models.ItemCompleted && item.Status == models.ItemCompleted {
			out[i] = item
		}
	}
	return out, nil
}

// visibleItem loads an item and its parent collection inside tx, enforcing
// the parent's visibility.
func (s *Store) visibleItem(ctx context.Context, tx dbx.DBTX, id string) (*models.Item, *models.Collection, error) {
	item, err := itemsRepo(tx).GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	parent, err := s.visibleCollection(ctx, tx, item.CollectionID)
	if err != nil {
		return nil, nil, err
	}
	return item, parent, nil
}

// dropItemPhotos removes an item's photo rows together with their queue
// entries.
func (s *Store) dropItemPhotos(ctx context.Context, tx dbx.DBTX, itemID string) error {
	photoList, err := photosRepo(tx).ListByItem(ctx, itemID)
	if err != nil {
		return err
	}
	for i := range photoList {
		if err := queueRepo(tx).Remove(ctx, models.KindPhoto, photoList[i].ID); err != nil {
			return err
		}
	}
	return photosRepo(tx).DeleteByItem(ctx, itemID)
}

// refreshAggregates recomputes the parent's cached counters inside the same
// transaction as the item mutation that invalidated them.
func (s *Store) refreshAggregates(ctx context.Context, tx dbx.DBTX, collectionID string) error {
	total, completed, err := itemsRepo(tx).Counts(ctx, collectionID)
	if err != nil {
		return err
	}
	return collectionsRepo(tx).UpdateAggregates(ctx, collectionID, total, completed)
}
