package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lifelist/internal/dbx"
	"github.com/dmitrijs2005/lifelist/internal/models"
	"github.com/dmitrijs2005/lifelist/internal/shared"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const columns = `id, collection_id, species_id, status, notes, completed_at,
	lat, lon, target_start, target_end, notify_enabled, sync_status,
	created_at, updated_at`

func (r *SQLiteRepository) Insert(ctx context.Context, item *models.Item) error {
	query := `INSERT INTO items (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.CollectionID, item.SpeciesID, item.Status, item.Notes,
		dbx.NullTime(item.CompletedAt), dbx.NullFloat(item.Lat), dbx.NullFloat(item.Lon),
		dbx.NullTime(item.TargetStart), dbx.NullTime(item.TargetEnd),
		item.NotifyEnabled, item.SyncStatus, item.CreatedAt, item.UpdatedAt)
	if dbx.IsUniqueViolation(err) {
		return shared.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, item *models.Item) error {
	query := `UPDATE items SET status=?, notes=?, completed_at=?, lat=?, lon=?,
		target_start=?, target_end=?, notify_enabled=?, sync_status=?, updated_at=?
		WHERE id=?`

	result, err := r.db.ExecContext(ctx, query,
		item.Status, item.Notes, dbx.NullTime(item.CompletedAt),
		dbx.NullFloat(item.Lat), dbx.NullFloat(item.Lon),
		dbx.NullTime(item.TargetStart), dbx.NullTime(item.TargetEnd),
		item.NotifyEnabled, item.SyncStatus, item.UpdatedAt, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM items WHERE id=?`, id)

	item, err := scanItem(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) ListByCollection(ctx context.Context, collectionID string) ([]models.Item, error) {
	query := `SELECT ` + columns + ` FROM items WHERE collection_id=? ORDER BY created_at`
	return r.queryList(ctx, query, collectionID)
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]models.Item, error) {
	return r.queryList(ctx, `SELECT `+columns+` FROM items ORDER BY created_at`)
}

func (r *SQLiteRepository) queryList(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var result []models.Item
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) SpeciesIDs(ctx context.Context, collectionID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT species_id FROM items WHERE collection_id=?`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select species ids: %w", err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = struct{}{}
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) Counts(ctx context.Context, collectionID string) (int, int, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(status='completed'), 0) FROM items WHERE collection_id=?`,
		collectionID)

	var total, completed int
	if err := row.Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("failed to count items: %w", err)
	}
	return total, completed, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id=?`, id); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByCollection(ctx context.Context, collectionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE collection_id=?`, collectionID); err != nil {
		return fmt.Errorf("failed to delete items: %w", err)
	}
	return nil
}

func scanItem(scan func(dest ...any) error) (*models.Item, error) {
	item := &models.Item{}
	var completed, targetStart, targetEnd sql.NullTime
	var lat, lon sql.NullFloat64

	err := scan(&item.ID, &item.CollectionID, &item.SpeciesID, &item.Status,
		&item.Notes, &completed, &lat, &lon, &targetStart, &targetEnd,
		&item.NotifyEnabled, &item.SyncStatus, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	item.CompletedAt = dbx.TimePtr(completed)
	item.Lat = dbx.FloatPtr(lat)
	item.Lon = dbx.FloatPtr(lon)
	item.TargetStart = dbx.TimePtr(targetStart)
	item.TargetEnd = dbx.TimePtr(targetEnd)
	return item, nil
}
