package countries

import (
	"context"

	"github.com/dmitrijs2005/credeval/internal/server/models"
)

type Repository interface {
	GetByCode(ctx context.Context, code string) (*models.Country, error)
	Upsert(ctx context.Context, c *models.Country) error
}
