package syncqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lifelist/internal/dbx"
	"github.com/dmitrijs2005/lifelist/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, entry *models.QueueEntry) error {
	// A newer mutation replaces the queued entry wholesale, including its
	// backoff state: the new payload deserves a fresh first attempt.
	query := `INSERT INTO sync_queue (kind, record_id, op, payload, enqueued_at, attempt_count, next_attempt_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT (kind, record_id) DO UPDATE SET
			op=excluded.op,
			payload=excluded.payload,
			enqueued_at=excluded.enqueued_at,
			attempt_count=0,
			next_attempt_at=excluded.next_attempt_at`

	_, err := r.db.ExecContext(ctx, query,
		entry.Kind, entry.RecordID, entry.Op, entry.Payload,
		entry.EnqueuedAt, entry.NextAttemptAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Due(ctx context.Context, kind models.RecordKind, now time.Time, limit int) ([]models.QueueEntry, error) {
	query := `SELECT kind, record_id, op, payload, enqueued_at, attempt_count, next_attempt_at
		FROM sync_queue WHERE kind=? AND next_attempt_at<=?
		ORDER BY enqueued_at LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, kind, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select due entries: %w", err)
	}
	defer rows.Close()

	var result []models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		if err := rows.Scan(&e.Kind, &e.RecordID, &e.Op, &e.Payload,
			&e.EnqueuedAt, &e.AttemptCount, &e.NextAttemptAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) Reschedule(ctx context.Context, kind models.RecordKind, recordID string, attemptCount int, nextAttemptAt time.Time) error {
	query := `UPDATE sync_queue SET attempt_count=?, next_attempt_at=? WHERE kind=? AND record_id=?`
	if _, err := r.db.ExecContext(ctx, query, attemptCount, nextAttemptAt, kind, recordID); err != nil {
		return fmt.Errorf("failed to reschedule: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, kind models.RecordKind, recordID string) error {
	query := `DELETE FROM sync_queue WHERE kind=? AND record_id=?`
	if _, err := r.db.ExecContext(ctx, query, kind, recordID); err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveIfUnchanged(ctx context.Context, kind models.RecordKind, recordID string, enqueuedAt time.Time) (bool, error) {
	query := `DELETE FROM sync_queue WHERE kind=? AND record_id=? AND enqueued_at=?`
	result, err := r.db.ExecContext(ctx, query, kind, recordID, enqueuedAt)
	if err != nil {
		return false, fmt.Errorf("failed to remove entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *SQLiteRepository) Len(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Purge(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue`); err != nil {
		return fmt.Errorf("failed to purge queue: %w", err)
	}
	return nil
}
