package applications

import (
	"context"

	"github.com/dmitrijs2005/dovol/internal/server/models"
)

type Repository interface {
	// Create fails with common.ErrorConflict when the volunteer already
	// applied to the task.
	Create(ctx context.Context, app *models.Application) (*models.Application, error)
	GetByID(ctx context.Context, id string) (*models.Application, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, error)
	Counts(ctx context.Context) (total, pending int, err error)
}
