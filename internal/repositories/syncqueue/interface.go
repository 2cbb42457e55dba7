// Package syncqueue persists the durable queue of pending remote operations.
package syncqueue

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lifelist/internal/models"
)

type Repository interface {
	// Enqueue inserts the entry, or supersedes the queued one for the same
	// (kind, record) pair. A delete queued over a pending create cancels
	// both; that decision is the store's and arrives here as a plain Remove.
	Enqueue(ctx context.Context, entry *models.QueueEntry) error

	// Due returns entries of the given kind whose next attempt time has
	// passed, oldest first.
	Due(ctx context.Context, kind models.RecordKind, now time.Time, limit int) ([]models.QueueEntry, error)

	// Reschedule bumps the attempt counter and pushes the next attempt out.
	// The entry is never dropped on failure.
	Reschedule(ctx context.Context, kind models.RecordKind, recordID string, attemptCount int, nextAttemptAt time.Time) error

	// Remove deletes the entry after a successful push (or a supersede).
	Remove(ctx context.Context, kind models.RecordKind, recordID string) error

	// RemoveIfUnchanged deletes the entry only when it still carries the
	// given enqueue time, i.e. it was not superseded by a newer mutation
	// while its push was in flight. Reports whether a row was removed.
	RemoveIfUnchanged(ctx context.Context, kind models.RecordKind, recordID string, enqueuedAt time.Time) (bool, error)

	// Len returns the number of queued entries across all kinds.
	Len(ctx context.Context) (int, error)

	// Purge empties the queue. Used on logout.
	Purge(ctx context.Context) error
}
