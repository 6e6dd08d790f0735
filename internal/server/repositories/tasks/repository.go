package tasks

import (
	"context"

	"github.com/dmitrijs2005/dovol/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	List(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error)
	Counts(ctx context.Context) (total, active int, err error)
}
