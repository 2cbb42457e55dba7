package photos

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

const columns = `id, item_id, local_path, remote_url, sync_status, created_at, updated_at`

func (r *SQLiteRepository) Insert(ctx context.Context, p *models.Photo) error {
	query := `INSERT INTO photos (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.ItemID, p.LocalPath, p.RemoteURL, p.SyncStatus, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, p *models.Photo) error {
	query := `UPDATE photos SET local_path=?, remote_url=?, sync_status=?, updated_at=? WHERE id=?`

	result, err := r.db.ExecContext(ctx, query,
		p.LocalPath, p.RemoteURL, p.SyncStatus, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update photo: %w", err)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM photos WHERE id=?`, id)

	p := &models.Photo{}
	err := row.Scan(&p.ID, &p.ItemID, &p.LocalPath, &p.RemoteURL, &p.SyncStatus, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select photo: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListByItem(ctx context.Context, itemID string) ([]models.Photo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+columns+` FROM photos WHERE item_id=? ORDER BY created_at`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to select photos: %w", err)
	}
	defer rows.Close()

	var result []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.ItemID, &p.LocalPath, &p.RemoteURL, &p.SyncStatus, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE id=?`, id); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByItem(ctx context.Context, itemID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE item_id=?`, itemID); err != nil {
		return fmt.Errorf("failed to delete photos: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByCollection(ctx context.Context, collectionID string) error {
	query := `DELETE FROM photos WHERE item_id IN (SELECT id FROM items WHERE collection_id=?)`
	if _, err := r.db.ExecContext(ctx, query, collectionID); err != nil {
		return fmt.Errorf("failed to delete photos: %w", err)
	}
	return nil
}
