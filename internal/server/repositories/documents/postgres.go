// Package documents persists uploaded Document records and their parsed
// content in PostgreSQL.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/credeval/internal/common"
	"github.com/dmitrijs2005/credeval/internal/dbx"
	"github.com/dmitrijs2005/credeval/internal/server/models"
)

const selectColumns = `id, evaluation_request_id, filename, original_name, path, type, mimetype, size,
		parsed_content, parsed_page_count, parsed_checksum, parsed_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO documents (id, evaluation_request_id, filename, original_name, path, type, mimetype, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.EvaluationRequestID, d.Filename, d.OriginalName, d.Path, d.Type, d.Mimetype, d.Size, d.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var (
		d         models.Document
		content   sql.NullString
		pageCount sql.NullInt32
		checksum  sql.NullString
		parsedAt  sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.EvaluationRequestID, &d.Filename, &d.OriginalName, &d.Path, &d.Type,
		&d.Mimetype, &d.Size, &content, &pageCount, &checksum, &parsedAt, &d.CreatedAt); err != nil {
		return nil, err
	}
	if parsedAt.Valid {
		d.ParsedData = &models.ParsedData{
			Content:   content.String,
			PageCount: int(pageCount.Int32),
			Checksum:  checksum.String,
			ParsedAt:  parsedAt.Time,
		}
	}
	return &d, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + selectColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) ListByEvaluation(ctx context.Context, evaluationID string) ([]*models.Document, error) {
	query := `SELECT ` + selectColumns + ` FROM documents WHERE evaluation_request_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SaveParsedData(ctx context.Context, id string, pd *models.ParsedData) error {
	query := `
		UPDATE documents
		SET parsed_content = $2, parsed_page_count = $3, parsed_checksum = $4, parsed_at = $5
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, pd.Content, pd.PageCount, pd.Checksum, pd.ParsedAt)
}

func (r *PostgresRepository) ReplaceSource(ctx context.Context, d *models.Document) error {
	if d.ParsedData == nil {
		return fmt.Errorf("%w: replacement source has no parsed data", common.ErrorValidation)
	}
	query := `
		UPDATE documents
		SET filename = $2, original_name = $3, path = $4, mimetype = $5, size = $6,
			parsed_content = $7, parsed_page_count = $8, parsed_checksum = $9, parsed_at = $10
		WHERE id = $1
	`
	pd := d.ParsedData
	return r.execOne(ctx, query, d.ID, d.Filename, d.OriginalName, d.Path, d.Mimetype, d.Size,
		pd.Content, pd.PageCount, pd.Checksum, pd.ParsedAt)
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
	if n == 0 {
		return common.ErrorNotFound
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}
