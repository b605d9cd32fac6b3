// Package revisions stores the append-only status history of evaluations.
package revisions

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

// Append inserts r. A clash on (evaluation_id, seq) means another writer
// appended first and is reported as common.ErrConcurrentTransition.
func (r *PostgresRepository) Append(ctx context.Context, rev *models.Revision) error {
	query := `
		INSERT INTO revisions (id, evaluation_id, seq, status, actor, ts, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		rev.ID, rev.EvaluationID, rev.Seq, rev.Status, rev.Actor, rev.Timestamp, dbx.NullString(rev.Note))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrConcurrentTransition
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(row scanner) (*models.Revision, error) {
	var (
		rev  models.Revision
		note sql.NullString
	)
	if err := row.Scan(&rev.ID, &rev.EvaluationID, &rev.Seq, &rev.Status, &rev.Actor, &rev.Timestamp, &note); err != nil {
		return nil, err
	}
	rev.Note = dbx.StringPtr(note)
	return &rev, nil
}

func (r *PostgresRepository) Last(ctx context.Context, evaluationID string) (*models.Revision, error) {
	query := `
		SELECT id, evaluation_id, seq, status, actor, ts, note FROM revisions
		WHERE evaluation_id = $1
		ORDER BY ts DESC, seq DESC
		LIMIT 1
	`
	rev, err := scanRevision(r.db.QueryRowContext(ctx, query, evaluationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rev, nil
}

func (r *PostgresRepository) List(ctx context.Context, evaluationID string) ([]*models.Revision, error) {
	query := `
		SELECT id, evaluation_id, seq, status, actor, ts, note FROM revisions
		WHERE evaluation_id = $1
		ORDER BY ts ASC, seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to select revisions: %w", err)
	}
	defer rows.Close()

	var result []*models.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
