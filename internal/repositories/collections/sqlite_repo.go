package collections

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

const columns = `id, owner_id, kind, title, location, start_date, end_date,
	item_count, completed_count, sync_status, created_at, updated_at, deleted_at`

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Collection) error {
	query := `INSERT INTO collections (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.Kind, c.Title, c.Location,
		dbx.NullTime(c.StartDate), dbx.NullTime(c.EndDate),
		c.ItemCount, c.CompletedCount, c.SyncStatus,
		c.CreatedAt, c.UpdatedAt, dbx.NullTime(c.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, c *models.Collection) error {
	query := `UPDATE collections SET owner_id=?, kind=?, title=?, location=?,
		start_date=?, end_date=?, item_count=?, completed_count=?,
		sync_status=?, updated_at=?, deleted_at=? WHERE id=?`

	result, err := r.db.ExecContext(ctx, query,
		c.OwnerID, c.Kind, c.Title, c.Location,
		dbx.NullTime(c.StartDate), dbx.NullTime(c.EndDate),
		c.ItemCount, c.CompletedCount, c.SyncStatus,
		c.UpdatedAt, dbx.NullTime(c.DeletedAt), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update collection: %w", err)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Collection, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM collections WHERE id=?`, id)

	c, err := scanCollection(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select collection: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Collection, error) {
	query := `SELECT ` + columns + ` FROM collections WHERE deleted_at IS NULL ORDER BY created_at`
	return r.queryList(ctx, query)
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, owner string, includeShared bool) ([]models.Collection, error) {
	cond := `owner_id=?`
	if includeShared {
		cond += ` OR kind='shared'`
	}
	query := `SELECT ` + columns + ` FROM collections
		WHERE deleted_at IS NULL AND (` + cond + `) ORDER BY created_at`
	return r.queryList(ctx, query, owner)
}

func (r *SQLiteRepository) queryList(ctx context.Context, query string, args ...any) ([]models.Collection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select collections: %w", err)
	}
	defer rows.Close()

	var result []models.Collection
	for rows.Next() {
		c, err := scanCollection(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) UpdateAggregates(ctx context.Context, id string, itemCount, completedCount int) error {
	query := `UPDATE collections SET item_count=?, completed_count=? WHERE id=?`
	if _, err := r.db.ExecContext(ctx, query, itemCount, completedCount, id); err != nil {
		return fmt.Errorf("failed to update aggregates: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id=?`, id); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

func scanCollection(scan func(dest ...any) error) (*models.Collection, error) {
	c := &models.Collection{}
	var start, end, deleted sql.NullTime

	err := scan(&c.ID, &c.OwnerID, &c.Kind, &c.Title, &c.Location,
		&start, &end, &c.ItemCount, &c.CompletedCount, &c.SyncStatus,
		&c.CreatedAt, &c.UpdatedAt, &deleted)
	if err != nil {
		return nil, err
	}

	c.StartDate = dbx.TimePtr(start)
	c.EndDate = dbx.TimePtr(end)
	c.DeletedAt = dbx.TimePtr(deleted)
	return c, nil
}
