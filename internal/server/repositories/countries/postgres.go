// Package countries reads and seeds Country rule records.
package countries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/dbx"
	"github.com/dmitrijs2005/credeval/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*models.Country, error) {
	query := `SELECT id, code, name, rules, updated_at FROM countries WHERE code = $1`

	c := &models.Country{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(&c.ID, &c.Code, &c.Name, &c.Rules, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// Upsert inserts the country or replaces name and rules of the existing code.
func (r *PostgresRepository) Upsert(ctx context.Context, c *models.Country) error {
	query := `
		INSERT INTO countries (id, code, name, rules, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code)
		DO UPDATE SET name = EXCLUDED.name, rules = EXCLUDED.rules, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Code, c.Name, c.Rules, c.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
