package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/server/metrics"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/repomanager"
)

// TokenVerifier resolves a bearer token to the subject it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Gate turns bearer tokens into users and checks role membership.
type Gate struct {
	tokens  TokenVerifier
	repos   repomanager.RepositoryManager
	tx      dbx.Transactor
	metrics *metrics.Metrics
}

func NewGate(tokens TokenVerifier, m repomanager.RepositoryManager, tx dbx.Transactor, mt *metrics.Metrics) *Gate {
	return &Gate{tokens: tokens, repos: m, tx: tx, metrics: mt}
}

// Authenticate verifies token and loads its subject. Token problems surface
// as common.ErrorUnauthenticated wrapping the verifier's error; a subject
// that no longer exists is common.ErrUserNotFound and a deactivated one is
// common.ErrorForbidden.
func (g *Gate) Authenticate(ctx context.Context, token string) (*models.User, error) {
	id, err := g.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			g.metrics.Auth("expired")
		} else {
			g.metrics.Auth("invalid")
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthenticated, err)
	}

	user, err := g.repos.Users(g.tx.Conn()).GetByID(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		g.metrics.Auth("unknown_user")
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		g.metrics.Auth("error")
		return nil, wrapErr("load user", err)
	}

	if !user.IsActive {
		g.metrics.Auth("inactive")
		return nil, fmt.Errorf("%w: account disabled", common.ErrorForbidden)
	}

	g.metrics.Auth("ok")
	return user, nil
}

// Authorize returns user when its role is one of allowed. An empty allowed
// list admits any known role.
func (g *Gate) Authorize(user *models.User, allowed ...models.Role) (*models.User, error) {
	if user == nil {
		return nil, common.ErrorUnauthenticated
	}

	switch user.Role {
	case models.RoleVolunteer, models.RoleNGO, models.RoleAdmin:
		if len(allowed) == 0 || slices.Contains(allowed, user.Role) {
			return user, nil
		}
		return nil, fmt.Errorf("%w: role %s not permitted", common.ErrorForbidden, user.Role)
	default:
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorForbidden, user.Role)
	}
}
