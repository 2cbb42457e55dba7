package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lifelist/internal/dbx"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

// The sync-facing surface: the agent drains the queue through these, the
// realtime listener merges remote events through ApplyRemote.

// DueEntries returns queue entries of the kind whose backoff has elapsed.
func (s *Store) DueEntries(ctx context.Context, kind models.RecordKind, limit int) ([]models.QueueEntry, error) {
	entries, err := queueRepo(s.db).Due(ctx, kind, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return entries, nil
}

// RescheduleEntry records a failed push: the attempt counter goes up and the
// entry waits out the given delay. Entries are never dropped on failure.
func (s *Store) RescheduleEntry(ctx context.Context, entry *models.QueueEntry, delay time.Duration) error {
	err := queueRepo(s.db).Reschedule(ctx, entry.Kind, entry.RecordID, entry.AttemptCount+1, s.now().Add(delay))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return nil
}

// RemoveEntry drops a queue entry without touching the record. Used when a
// push turns out to be moot, e.g. the server already deleted the record.
func (s *Store) RemoveEntry(ctx context.Context, kind models.RecordKind, recordID string) error {
	if err := queueRepo(s.db).Remove(ctx, kind, recordID); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return nil
}

// MarkSynced acknowledges a successful push. The queue entry is removed only
// if it was not superseded while the push was in flight; a superseded entry
// stays queued and the record keeps its pending status. serverTime, when
// set, becomes the record's authoritative update time.
func (s *Store) MarkSynced(ctx context.Context, entry *models.QueueEntry, serverTime time.Time) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		removed, err := queueRepo(tx).RemoveIfUnchanged(ctx, entry.Kind, entry.RecordID, entry.EnqueuedAt)
		if err != nil {
			return err
		}
		if !removed {
			s.log.Debug(ctx, "push acknowledged but entry superseded", "kind", entry.Kind, "record", entry.RecordID)
			return nil
		}

		if entry.Op == models.OpDelete {
			// the tombstone has served its purpose
			if entry.Kind == models.KindCollection {
				return collectionsRepo(tx).Delete(ctx, entry.RecordID)
			}
			return nil
		}
		return s.settleRecord(ctx, tx, entry.Kind, entry.RecordID, serverTime)
	})
}

// settleRecord flips a pushed record to synced. A record deleted while its
// push was in flight is left alone.
func (s *Store) settleRecord(ctx context.Context, tx dbx.DBTX, kind models.RecordKind, recordID string, serverTime time.Time) error {
	switch kind {
	case models.KindCollection:
		c, err := collectionsRepo(tx).GetByID(ctx, recordID)
		if err != nil {
			return ignoreNotFound(err)
		}
		c.SyncStatus = models.SyncSynced
		if !serverTime.IsZero() {
			c.UpdatedAt = serverTime
		}
		return collectionsRepo(tx).Update(ctx, c)
	case models.KindItem:
		item, err := itemsRepo(tx).GetByID(ctx, recordID)
		if err != nil {
			return ignoreNotFound(err)
		}
		item.SyncStatus = models.SyncSynced
		if !serverTime.IsZero() {
			item.UpdatedAt = serverTime
		}
		return itemsRepo(tx).Update(ctx, item)
	case models.KindRule:
		rule, err := rulesRepo(tx).GetByID(ctx, recordID)
		if err != nil {
			return ignoreNotFound(err)
		}
		rule.SyncStatus = models.SyncSynced
		if !serverTime.IsZero() {
			rule.UpdatedAt = serverTime
		}
		return rulesRepo(tx).Update(ctx, rule)
	case models.KindPhoto:
		photo, err := photosRepo(tx).GetByID(ctx, recordID)
		if err != nil {
			return ignoreNotFound(err)
		}
		photo.SyncStatus = models.SyncSynced
		if !serverTime.IsZero() {
			photo.UpdatedAt = serverTime
		}
		return photosRepo(tx).Update(ctx, photo)
	default:
		return fmt.Errorf("unknown record kind %q", kind)
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}

// ApplyRemote merges a record coming from the server, either a conflict
// response or a realtime event. Resolution is last-write-wins on the
// record's update time: the remote copy is applied unless the local one is
// newer, in which case local pending edits survive and will be pushed
// again. Reports whether the remote copy was applied.
func (s *Store) ApplyRemote(ctx context.Context, kind models.RecordKind, op models.Operation, raw json.RawMessage) (bool, error) {
	applied := false
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		applied, err = s.mergeRemote(ctx, tx, kind, op, raw)
		return err
	})
	return applied, err
}

func (s *Store) mergeRemote(ctx context.Context, tx dbx.DBTX, kind models.RecordKind, op models.Operation, raw json.RawMessage) (bool, error) {
	switch kind {
	case models.KindCollection:
		var remote models.Collection
		if err := json.Unmarshal(raw, &remote); err != nil {
			return false, err
		}
		if op == models.OpDelete {
			if err := s.dropChildren(ctx, tx, remote.ID); err != nil {
				return false, err
			}
			if err := collectionsRepo(tx).Delete(ctx, remote.ID); err != nil {
				return false, err
			}
			return true, queueRepo(tx).Remove(ctx, kind, remote.ID)
		}

		local, err := collectionsRepo(tx).GetByID(ctx, remote.ID)
		if errors.Is(err, shared.ErrNotFound) {
			remote.SyncStatus = models.SyncSynced
			return true, collectionsRepo(tx).Insert(ctx, &remote)
		}
		if err != nil {
			return false, err
		}
		if localWins(local.UpdatedAt, local.SyncStatus, remote.UpdatedAt) {
			return false, nil
		}
		remote.SyncStatus = models.SyncSynced
		if err := collectionsRepo(tx).Update(ctx, &remote); err != nil {
			return false, err
		}
		return true, queueRepo(tx).Remove(ctx, kind, remote.ID)

	case models.KindItem:
		var remote models.Item
		if err := json.Unmarshal(raw, &remote); err != nil {
			return false, err
		}
		if op == models.OpDelete {
			if err := s.dropItemPhotos(ctx, tx, remote.ID); err != nil {
				return false, err
			}
			if err := itemsRepo(tx).Delete(ctx, remote.ID); err != nil {
				return false, err
			}
			if err := s.refreshAggregates(ctx, tx, remote.CollectionID); err != nil {
				return false, err
			}
			return true, queueRepo(tx).Remove(ctx, kind, remote.ID)
		}

		local, err := itemsRepo(tx).GetByID(ctx, remote.ID)
		if errors.Is(err, shared.ErrNotFound) {
			remote.SyncStatus = models.SyncSynced
			if err := itemsRepo(tx).Insert(ctx, &remote); err != nil {
				return false, err
			}
			return true, s.refreshAggregates(ctx, tx, remote.CollectionID)
		}
		if err != nil {
			return false, err
		}
		if localWins(local.UpdatedAt, local.SyncStatus, remote.UpdatedAt) {
			return false, nil
		}
		remote.SyncStatus = models.SyncSynced
		if err := itemsRepo(tx).Update(ctx, &remote); err != nil {
			return false, err
		}
		if err := s.refreshAggregates(ctx, tx, remote.CollectionID); err != nil {
			return false, err
		}
		return true, queueRepo(tx).Remove(ctx, kind, remote.ID)

	case models.KindRule:
		var remote models.Rule
		if err := json.Unmarshal(raw, &remote); err != nil {
			return false, err
		}
		if op == models.OpDelete {
			if err := rulesRepo(tx).Delete(ctx, remote.ID); err != nil {
				return false, err
			}
			return true, queueRepo(tx).Remove(ctx, kind, remote.ID)
		}

		local, err := rulesRepo(tx).GetByID(ctx, remote.ID)
		if errors.Is(err, shared.ErrNotFound) {
			remote.SyncStatus = models.SyncSynced
			return true, rulesRepo(tx).Insert(ctx, &remote)
		}
		if err != nil {
			return false, err
		}
		if localWins(local.UpdatedAt, local.SyncStatus, remote.UpdatedAt) {
			return false, nil
		}
		remote.SyncStatus = models.SyncSynced
		if err := rulesRepo(tx).Update(ctx, &remote); err != nil {
			return false, err
		}
		return true, queueRepo(tx).Remove(ctx, kind, remote.ID)

	case models.KindPhoto:
		var remote models.Photo
		if err := json.Unmarshal(raw, &remote); err != nil {
			return false, err
		}
		if op == models.OpDelete {
			if err := photosRepo(tx).Delete(ctx, remote.ID); err != nil {
				return false, err
			}
			return true, queueRepo(tx).Remove(ctx, kind, remote.ID)
		}

		local, err := photosRepo(tx).GetByID(ctx, remote.ID)
		if errors.Is(err, shared.ErrNotFound) {
			remote.SyncStatus = models.SyncSynced
			return true, photosRepo(tx).Insert(ctx, &remote)
		}
		if err != nil {
			return false, err
		}
		if localWins(local.UpdatedAt, local.SyncStatus, remote.UpdatedAt) {
			return false, nil
		}
		remote.SyncStatus = models.SyncSynced
		if err := photosRepo(tx).Update(ctx, &remote); err != nil {
			return false, err
		}
		return true, queueRepo(tx).Remove(ctx, kind, remote.ID)

	default:
		return false, fmt.Errorf("unknown record kind %q", kind)
	}
}

// localWins implements the tie-break: local pending edits survive only when
// strictly newer than the remote copy. Wall clocks, so ties go to the
// server.
func localWins(localUpdated time.Time, localStatus models.SyncStatus, remoteUpdated time.Time) bool {
	return localStatus.Pending() && localUpdated.After(remoteUpdated)
}

// AdoptGuestData assigns everything created in the guest context to the
// newly authenticated user and queues it for upload. Each collection is
// adopted atomically with its items, rules and photos.
func (s *Store) AdoptGuestData(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: adoption needs an authenticated user", shared.ErrUnauthorized)
	}

	guestCols, err := collectionsRepo(s.db).ListByOwner(ctx, "", false)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}

	adopted := 0
	for i := range guestCols {
		col := guestCols[i]
		err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			return s.adoptCollection(ctx, tx, &col, userID)
		})
		if err != nil {
			return adopted, err
		}
		adopted++
	}
	return adopted, nil
}

func (s *Store) adoptCollection(ctx context.Context, tx dbx.DBTX, col *models.Collection, userID string) error {
	now := s.now()

	col.OwnerID = userID
	col.SyncStatus = models.SyncPendingCreate
	col.UpdatedAt = now
	if err := collectionsRepo(tx).Update(ctx, col); err != nil {
		return err
	}
	if err := s.enqueue(ctx, tx, models.KindCollection, col.ID, userID, models.OpCreate, col); err != nil {
		return err
	}

	itemList, err := itemsRepo(tx).ListByCollection(ctx, col.ID)
	if err != nil {
		return err
	}
	for i := range itemList {
		item := &itemList[i]
		item.SyncStatus = models.SyncPendingCreate
		item.UpdatedAt = now
		if err := itemsRepo(tx).Update(ctx, item); err != nil {
			return err
		}
		if err := s.enqueue(ctx, tx, models.KindItem, item.ID, userID, models.OpCreate, item); err != nil {
			return err
		}

		photoList, err := photosRepo(tx).ListByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		for j := range photoList {
			photo := &photoList[j]
			photo.SyncStatus = models.SyncPendingCreate
			photo.UpdatedAt = now
			if err := photosRepo(tx).Update(ctx, photo); err != nil {
				return err
			}
			if err := s.enqueue(ctx, tx, models.KindPhoto, photo.ID, userID, models.OpCreate, photo); err != nil {
				return err
			}
		}
	}

	ruleList, err := rulesRepo(tx).ListByCollection(ctx, col.ID, false)
	if err != nil {
		return err
	}
	for i := range ruleList {
		rule := &ruleList[i]
		rule.SyncStatus = models.SyncPendingCreate
		rule.UpdatedAt = now
		if err := rulesRepo(tx).Update(ctx, rule); err != nil {
			return err
		}
		if err := s.enqueue(ctx, tx, models.KindRule, rule.ID, userID, models.OpCreate, rule); err != nil {
			return err
		}
	}
	return nil
}

// QueueLen reports the number of pending queue entries.
func (s *Store) QueueLen(ctx context.Context) (int, error) {
	n, err := queueRepo(s.db).Len(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return n, nil
}

// PurgeQueue empties the queue. Called on logout, after which the local
// database only serves the guest context.
func (s *Store) PurgeQueue(ctx context.Context) error {
	if err := queueRepo(s.db).Purge(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return nil
}
