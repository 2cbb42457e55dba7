// Package store is the authoritative local domain store. Every mutation is
// transactional: it applies the change, recomputes cached aggregates,
// advances the record's sync status and enqueues the matching sync queue
// entry, committing all four together.
//
// Mutations are serialized behind a single mutex; reads run concurrently
// against the sqlite snapshot. Enqueue is part of the local transaction and
// never waits on the network.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/lifelist/internal/dbx"
	"github.com/dmitrijs2005/lifelist/internal/logging"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

const metaActiveUser = "active_user"

type Store struct {
	db  *sql.DB
	log logging.Logger

	// mu serializes the mutate → recompute → flip status → enqueue sequence.
	mu sync.Mutex

	idMu       sync.RWMutex
	activeUser string

	now func() time.Time
}

func New(ctx context.Context, db *sql.DB, log logging.Logger) (*Store, error) {
	s := &Store{
		db:  db,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}

	// restore the identity of the previous session, if any
	value, err := metadataRepo(db).Get(ctx, metaActiveUser)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loading identity: %w", err)
	}
	s.activeUser = string(value)

	return s, nil
}

// ActiveUser returns the current identity, "" for the guest context.
func (s *Store) ActiveUser() string {
	s.idMu.RLock()
	defer s.idMu.RUnlock()
	return s.activeUser
}

// SetActiveUser switches the identity and persists it across restarts.
// Pass "" on logout.
func (s *Store) SetActiveUser(ctx context.Context, userID string) error {
	repo := metadataRepo(s.db)

	var err error
	if userID == "" {
		err = repo.Delete(ctx, metaActiveUser)
	} else {
		err = repo.Set(ctx, metaActiveUser, []byte(userID))
	}
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}

	s.idMu.Lock()
	s.activeUser = userID
	s.idMu.Unlock()
	return nil
}

// withTx runs fn under the mutation lock inside one transaction.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := dbx.WithTx(ctx, s.db, nil, fn); err != nil {
		// sentinel errors pass through untouched for the caller to match
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrDuplicateEntry) ||
			errors.Is(err, shared.ErrRuleValidation) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return nil
}

// enqueue writes the sync queue entry for a mutated record inside tx.
// The payload snapshot carries the owner so the agent can gate unowned
// records without extra lookups.
func (s *Store) enqueue(ctx context.Context, tx dbx.DBTX, kind models.RecordKind, recordID, ownerID string, op models.Operation, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(models.QueuePayload{OwnerID: ownerID, Record: raw})
	if err != nil {
		return err
	}

	now := s.now()
	return queueRepo(tx).Enqueue(ctx, &models.QueueEntry{
		RecordID:      recordID,
		Kind:          kind,
		Op:            op,
		Payload:       payload,
		EnqueuedAt:    now,
		NextAttemptAt: now,
	})
}

// initialStatus picks the sync status for a brand-new record.
func initialStatus(ownerID string) models.SyncStatus {
	if ownerID == "" {
		return models.SyncPendingOwner
	}
	return models.SyncPendingCreate
}

// bumpStatus advances the sync status after a local edit. Records that never
// reached the server keep their create-ish status; synced records become
// pending updates.
func bumpStatus(cur models.SyncStatus) models.SyncStatus {
	switch cur {
	case models.SyncPendingCreate, models.SyncPendingOwner, models.SyncPendingDelete:
		return cur
	default:
		return models.SyncPendingUpdate
	}
}
