// Package assignments records which evaluator an evaluation was assigned to, and when.
package assignments

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/credeval/internal/dbx"
	"github.com/dmitrijs2005/credeval/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (id, evaluation_id, assigned_to, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, a.ID, a.EvaluationID, a.AssignedTo, a.AssignedBy, a.AssignedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByEvaluation(ctx context.Context, evaluationID string) ([]*models.Assignment, error) {
	query := `
		SELECT id, evaluation_id, assigned_to, assigned_by, assigned_at FROM assignments
		WHERE evaluation_id = $1
		ORDER BY assigned_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to select assignments: %w", err)
	}
	defer rows.Close()

	var result []*models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.EvaluationID, &a.AssignedTo, &a.AssignedBy, &a.AssignedAt); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
