package documents

import (
	"context"

	"github.com/dmitrijs2005/credeval/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, d *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	ListByEvaluation(ctx context.Context, evaluationID string) ([]*models.Document, error)
	// SaveParsedData writes all parsed fields in one statement.
	SaveParsedData(ctx context.Context, id string, pd *models.ParsedData) error
	// ReplaceSource points the document at a re-uploaded file and stores
	// the file's parsed data in the same statement.
	ReplaceSource(ctx context.Context, d *models.Document) error
}
