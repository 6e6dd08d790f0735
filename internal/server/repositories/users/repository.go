package users

import (
	"context"

	"github.com/dmitrijs2005/dovol/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	Counts(ctx context.Context) (*Counts, error)
}

// Counts are aggregate user totals.
type Counts struct {
	Total  int
	Active int
	ByRole map[models.Role]int
}
