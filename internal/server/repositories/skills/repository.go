package skills

import (
	"context"

	"github.com/dmitrijs2005/dovol/internal/server/models"
)

type Repository interface {
	// Ensure returns the skill called name, creating it if needed.
	Ensure(ctx context.Context, name string) (*models.Skill, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Skill, error)
	Link(ctx context.Context, userID, skillID string) error
	// Unlink removes one link and fails with common.ErrorNotFound when absent.
	Unlink(ctx context.Context, userID, skillID string) error
	UnlinkAll(ctx context.Context, userID string) error
}
