package revisions

import (
	"context"

	"github.com/dmitrijs2005/credeval/internal/server/models"
)

// Repository is append-only: there is deliberately no update or delete.
type Repository interface {
	Append(ctx context.Context, r *models.Revision) error
	// Last returns the current revision (max timestamp, then max seq).
	Last(ctx context.Context, evaluationID string) (*models.Revision, error)
	// List returns the history ordered by timestamp, then seq.
	List(ctx context.Context, evaluationID string) ([]*models.Revision, error)
}
