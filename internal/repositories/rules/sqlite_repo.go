package rules

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

const columns = `id, collection_id, rule_type, params, priority, active,
	sync_status, created_at, updated_at`

func (r *SQLiteRepository) Insert(ctx context.Context, rule *models.Rule) error {
	query := `INSERT INTO rules (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.CollectionID, rule.Type, string(rule.Params),
		rule.Priority, rule.Active, rule.SyncStatus, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, rule *models.Rule) error {
	query := `UPDATE rules SET rule_type=?, params=?, priority=?, active=?,
		sync_status=?, updated_at=? WHERE id=?`

	result, err := r.db.ExecContext(ctx, query,
		rule.Type, string(rule.Params), rule.Priority, rule.Active,
		rule.SyncStatus, rule.UpdatedAt, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM rules WHERE id=?`, id)

	rule, err := scanRule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select rule: %w", err)
	}
	return rule, nil
}

func (r *SQLiteRepository) ListByCollection(ctx context.Context, collectionID string, activeOnly bool) ([]models.Rule, error) {
	query := `SELECT ` + columns + ` FROM rules WHERE collection_id=?`
	if activeOnly {
		query += ` AND active=1`
	}
	query += ` ORDER BY priority DESC, created_at`

	rows, err := r.db.QueryContext(ctx, query, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select rules: %w", err)
	}
	defer rows.Close()

	var result []models.Rule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id=?`, id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByCollection(ctx context.Context, collectionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE collection_id=?`, collectionID); err != nil {
		return fmt.Errorf("failed to delete rules: %w", err)
	}
	return nil
}

func scanRule(scan func(dest ...any) error) (*models.Rule, error) {
	rule := &models.Rule{}
	var params string

	err := scan(&rule.ID, &rule.CollectionID, &rule.Type, &params,
		&rule.Priority, &rule.Active, &rule.SyncStatus, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rule.Params = []byte(params)
	return rule, nil
}
