// Package syncer drains the durable sync queue against the backend. One
// pass walks the record kinds parents-first, pushes due entries, resolves
// conflicts by last write wins and reschedules failures with capped
// exponential backoff.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/lifelist/internal/logging"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/remote"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

// Store is the queue-facing slice of the domain store.
type Store interface {
	DueEntries(ctx context.Context, kind models.RecordKind, limit int) ([]models.QueueEntry, error)
	RescheduleEntry(ctx context.Context, entry *models.QueueEntry, delay time.Duration) error
	RemoveEntry(ctx context.Context, kind models.RecordKind, recordID string) error
	MarkSynced(ctx context.Context, entry *models.QueueEntry, serverTime time.Time) error
	ApplyRemote(ctx context.Context, kind models.RecordKind, op models.Operation, raw json.RawMessage) (bool, error)
}

// Remote pushes single record operations and pulls owner-scoped snapshots.
type Remote interface {
	Push(ctx context.Context, kind models.RecordKind, op models.Operation, recordID string, record json.RawMessage, force bool) (*remote.PushResult, error)
	Pull(ctx context.Context, kind models.RecordKind, owner string) ([]json.RawMessage, error)
}

type Config struct {
	// Interval between periodic queue drains.
	Interval time.Duration

	// BatchSize caps entries fetched per kind per pass.
	BatchSize int

	// BackoffBase and BackoffMax bound the per-entry retry delay:
	// base doubles with every failed attempt up to the cap.
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Interval <= 0 {
		out.Interval = 30 * time.Second
	}
	if out.BatchSize <= 0 {
		out.BatchSize = 50
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = 2 * time.Second
	}
	if out.BackoffMax <= 0 {
		out.BackoffMax = 10 * time.Minute
	}
	return out
}

// Agent owns the push side of synchronization.
type Agent struct {
	store  Store
	remote Remote
	log    logging.Logger
	cfg    Config

	group singleflight.Group
	kick  chan struct{}
}

func NewAgent(store Store, rc Remote, log logging.Logger, cfg Config) *Agent {
	return &Agent{
		store:  store,
		remote: rc,
		log:    log,
		cfg:    cfg.withDefaults(),
		kick:   make(chan struct{}, 1),
	}
}

// Kick requests an immediate drain, coalescing with one already pending.
func (a *Agent) Kick() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

// Run drains the queue on the configured interval and on every Kick until
// the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-a.kick:
		}

		if err := a.SyncAll(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			a.log.Warn(ctx, "sync pass failed", "error", err)
		}
	}
}

// SyncAll runs one full drain. Concurrent calls collapse into a single
// in-flight pass; every caller gets its result.
func (a *Agent) SyncAll(ctx context.Context) error {
	_, err, _ := a.group.Do("sync", func() (any, error) {
		for _, kind := range models.Kinds {
			if err := a.syncKind(ctx, kind); err != nil {
				return nil, fmt.Errorf("syncing %s: %w", kind, err)
			}
		}
		return nil, nil
	})
	return err
}

// DownloadAll fetches the owner's current records kind by kind and merges
// them through the usual last-write-wins path. Run after login so a fresh
// device picks up what the account already has.
func (a *Agent) DownloadAll(ctx context.Context, owner string) error {
	for _, kind := range models.Kinds {
		rows, err := a.remote.Pull(ctx, kind, owner)
		if err != nil {
			return fmt.Errorf("pulling %s: %w", kind, err)
		}
		for _, row := range rows {
			if _, err := a.store.ApplyRemote(ctx, kind, models.OpCreate, row); err != nil {
				return fmt.Errorf("merging pulled %s: %w", kind, err)
			}
		}
	}
	return nil
}

// syncKind pushes due entries of one kind until none are left. The parents
// of a failed entry keep their backoff; children of an unsynced parent fail
// on the server and back off too.
func (a *Agent) syncKind(ctx context.Context, kind models.RecordKind) error {
	for {
		entries, err := a.store.DueEntries(ctx, kind, a.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		progressed := false
		for i := range entries {
			ok, err := a.pushEntry(ctx, &entries[i])
			if err != nil {
				return err
			}
			progressed = progressed || ok
		}
		if !progressed {
			// everything in the batch backed off, stop hammering
			return nil
		}
	}
}

// pushEntry pushes one queue entry and settles its outcome. Returns whether
// the entry was resolved (synced or dropped) as opposed to left in the queue.
// Errors that can only be fixed outside this pass (lost session, cancelled
// context) abort the drain.
func (a *Agent) pushEntry(ctx context.Context, entry *models.QueueEntry) (bool, error) {
	payload, err := entry.DecodePayload()
	if err != nil {
		a.log.Error(ctx, "dropping undecodable queue entry", "kind", entry.Kind, "record", entry.RecordID, "error", err)
		return true, a.store.RemoveEntry(ctx, entry.Kind, entry.RecordID)
	}
	if payload.OwnerID == "" {
		// unowned records stay queued until adoption assigns an owner
		a.log.Warn(ctx, "skipping unowned queue entry", "kind", entry.Kind, "record", entry.RecordID)
		return false, nil
	}

	res, err := a.remote.Push(ctx, entry.Kind, entry.Op, entry.RecordID, payload.Record, false)
	switch {
	case err == nil:
		var serverTime time.Time
		if res != nil {
			serverTime = res.ServerTime
		}
		return true, a.store.MarkSynced(ctx, entry, serverTime)

	case errors.Is(err, shared.ErrConflict):
		return a.resolveConflict(ctx, entry, res.Remote)

	case errors.Is(err, shared.ErrNotFound):
		return a.resolveNotFound(ctx, entry, payload)

	case errors.Is(err, shared.ErrUnauthorized):
		return false, err

	case errors.Is(err, shared.ErrUnavailable), errors.Is(err, shared.ErrServer):
		delay := a.backoffDelay(entry.AttemptCount)
		a.log.Debug(ctx, "push failed, backing off",
			"kind", entry.Kind, "record", entry.RecordID,
			"attempt", entry.AttemptCount+1, "delay", delay, "error", err)
		return false, a.store.RescheduleEntry(ctx, entry, delay)

	default:
		return false, err
	}
}

// resolveConflict settles a rejected push by last write wins. When the
// remote copy is newer it replaces the local one and the entry is done;
// when the local copy is newer the push is repeated with force.
func (a *Agent) resolveConflict(ctx context.Context, entry *models.QueueEntry, remoteRow json.RawMessage) (bool, error) {
	applied, err := a.store.ApplyRemote(ctx, entry.Kind, models.OpUpdate, remoteRow)
	if err != nil {
		return false, err
	}
	if applied {
		a.log.Debug(ctx, "conflict resolved for remote copy", "kind", entry.Kind, "record", entry.RecordID)
		return true, a.store.RemoveEntry(ctx, entry.Kind, entry.RecordID)
	}

	// local copy is newer, override the server's check
	payload, err := entry.DecodePayload()
	if err != nil {
		return false, err
	}
	res, err := a.remote.Push(ctx, entry.Kind, entry.Op, entry.RecordID, payload.Record, true)
	if err != nil {
		delay := a.backoffDelay(entry.AttemptCount)
		return false, a.store.RescheduleEntry(ctx, entry, delay)
	}

	a.log.Debug(ctx, "conflict resolved for local copy", "kind", entry.Kind, "record", entry.RecordID)
	var serverTime time.Time
	if res != nil {
		serverTime = res.ServerTime
	}
	return true, a.store.MarkSynced(ctx, entry, serverTime)
}

// resolveNotFound handles a 404: a delete for a record the server no longer
// has is already done; an update for one becomes a create.
func (a *Agent) resolveNotFound(ctx context.Context, entry *models.QueueEntry, payload *models.QueuePayload) (bool, error) {
	if entry.Op == models.OpDelete {
		return true, a.store.MarkSynced(ctx, entry, time.Time{})
	}

	res, err := a.remote.Push(ctx, entry.Kind, models.OpCreate, entry.RecordID, payload.Record, false)
	if err != nil {
		delay := a.backoffDelay(entry.AttemptCount)
		return false, a.store.RescheduleEntry(ctx, entry, delay)
	}
	var serverTime time.Time
	if res != nil {
		serverTime = res.ServerTime
	}
	return true, a.store.MarkSynced(ctx, entry, serverTime)
}

// backoffDelay doubles the base delay per attempt up to the cap.
func (a *Agent) backoffDelay(attempts int) time.Duration {
	delay := a.cfg.BackoffBase
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= a.cfg.BackoffMax {
			return a.cfg.BackoffMax
		}
	}
	return delay
}
