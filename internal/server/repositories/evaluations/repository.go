package evaluations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/credeval/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Evaluation) error
	Get(ctx context.Context, id string) (*models.Evaluation, error)
	// GetForUpdate reads the evaluation and locks its row until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Evaluation, error)
	UpdateProgress(ctx context.Context, id string, progress int, closedAt *time.Time) error
	UpdateAssignee(ctx context.Context, id string, assignedTo string) error
}
