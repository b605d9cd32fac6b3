package assignments

import (
	"context"

	"github.com/dmitrijs2005/credeval/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Assignment) error
	ListByEvaluation(ctx context.Context, evaluationID string) ([]*models.Assignment, error)
}
