package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/lifelist/internal/dbx"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

// AddPhoto attaches a photo record to an item. Only the record syncs; the
// binary upload is a separate concern.
func (s *Store) AddPhoto(ctx context.Context, itemID, localPath string) (*models.Photo, error) {
	now := s.now()
	photo := &models.Photo{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		LocalPath: localPath,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, parent, err := s.visibleItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		photo.SyncStatus = initialStatus(parent.OwnerID)

		if err := photosRepo(tx).Insert(ctx, photo); err != nil {
			return err
		}
		if photo.SyncStatus == models.SyncPendingOwner {
			return nil
		}
		return s.enqueue(ctx, tx, models.KindPhoto, photo.ID, parent.OwnerID, models.OpCreate, photo)
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// Photos lists an item's photo records.
func (s *Store) Photos(ctx context.Context, itemID string) ([]models.Photo, error) {
	list, err := photosRepo(s.db).ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return list, nil
}

// DeletePhoto removes the photo record.
func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cur, err := photosRepo(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		_, parent, err := s.visibleItem(ctx, tx, cur.ItemID)
		if err != nil {
			return err
		}

		if err := photosRepo(tx).Delete(ctx, id); err != nil {
			return err
		}
		if cur.SyncStatus == models.SyncPendingCreate || cur.SyncStatus == models.SyncPendingOwner {
			return queueRepo(tx).Remove(ctx, models.KindPhoto, id)
		}
		return s.enqueue(ctx, tx, models.KindPhoto, id, parent.OwnerID, models.OpDelete, cur)
	})
}
