// Package evaluations persists Evaluation records in PostgreSQL.
package evaluations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/dbx"
	"github.com/dmitrijs2005/credeval/internal/server/models"
)

const selectColumns = `id, student_id, country_code, evaluation_type, institution, program, assigned_to,
		submitted_at, estimated_completion_date, progress, notes, closed_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Evaluation) error {
	query := `
		INSERT INTO evaluations (id, student_id, country_code, evaluation_type, institution, program,
			assigned_to, submitted_at, estimated_completion_date, progress, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.StudentID, e.CountryCode, e.EvaluationType, e.Institution, e.Program,
		e.AssignedTo, e.SubmittedAt, dbx.NullTime(e.EstimatedCompletionDate), dbx.NullInt(e.Progress), dbx.NullString(e.Notes))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Evaluation, error) {
	query := `SELECT ` + selectColumns + ` FROM evaluations WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Evaluation, error) {
	query := `SELECT ` + selectColumns + ` FROM evaluations WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Evaluation, error) {
	var (
		e         models.Evaluation
		estimated sql.NullTime
		progress  sql.NullInt32
		notes     sql.NullString
		closedAt  sql.NullTime
	)
	err := row.Scan(&e.ID, &e.StudentID, &e.CountryCode, &e.EvaluationType, &e.Institution, &e.Program,
		&e.AssignedTo, &e.SubmittedAt, &estimated, &progress, &notes, &closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	e.EstimatedCompletionDate = dbx.TimePtr(estimated)
	e.Progress = dbx.IntPtr(progress)
	e.Notes = dbx.StringPtr(notes)
	e.ClosedAt = dbx.TimePtr(closedAt)
	return &e, nil
}

// UpdateProgress stores the progress and, for terminal statuses, the close time.
// A closed evaluation keeps its original closed_at.
func (r *PostgresRepository) UpdateProgress(ctx context.Context, id string, progress int, closedAt *time.Time) error {
	query := `UPDATE evaluations SET progress = $2, closed_at = COALESCE(closed_at, $3) WHERE id = $1`
	return r.execOne(ctx, query, id, progress, dbx.NullTime(closedAt))
}

func (r *PostgresRepository) UpdateAssignee(ctx context.Context, id string, assignedTo string) error {
	query := `UPDATE evaluations SET assigned_to = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, assignedTo)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
