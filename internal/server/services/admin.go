package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/cryptox"
	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dovol/internal/timex"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// SystemHealth is a coarse liveness report for the admin dashboard.
type SystemHealth struct {
	DatabaseConnected bool
	TotalRecords      int
	Uptime            time.Duration
}

// AdminService backs the admin dashboard. Every mutation of a user refuses
// to act on the calling admin's own account.
type AdminService struct {
	repos   repomanager.RepositoryManager
	tx      dbx.Transactor
	clock   timex.Clock
	logger  logging.Logger
	started time.Time
}

func NewAdminService(m repomanager.RepositoryManager, tx dbx.Transactor, clock timex.Clock, l logging.Logger) *AdminService {
	return &AdminService{
		repos:   m,
		tx:      tx,
		clock:   clock,
		logger:  l.With("module", "admin_service"),
		started: clock.Now(),
	}
}

// pageLimit applies the default page size and rejects anything outside
// 1..MaxPageSize.
func pageLimit(skip, limit int) (int, error) {
	if skip < 0 {
		return 0, validationErr("skip must not be negative")
	}
	if limit == 0 {
		return DefaultPageSize, nil
	}
	if limit < 0 || limit > MaxPageSize {
		return 0, validationErr("limit must be between 1 and %d", MaxPageSize)
	}
	return limit, nil
}

func (s *AdminService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	conn := s.tx.Conn()

	uc, err := s.repos.Users(conn).Counts(ctx)
	if err != nil {
		return nil, wrapErr("count users", err)
	}
	totalTasks, activeTasks, err := s.repos.Tasks(conn).Counts(ctx)
	if err != nil {
		return nil, wrapErr("count tasks", err)
	}
	totalApps, pendingApps, err := s.repos.Applications(conn).Counts(ctx)
	if err != nil {
		return nil, wrapErr("count applications", err)
	}

	byRole := make(map[models.Role]int, len(models.Roles))
	for _, r := range models.Roles {
		byRole[r] = uc.ByRole[r]
	}

	return &models.DashboardStats{
		TotalUsers:          uc.Total,
		ActiveUsers:         uc.Active,
		UsersByRole:         byRole,
		TotalTasks:          totalTasks,
		ActiveTasks:         activeTasks,
		TotalApplications:   totalApps,
		PendingApplications: pendingApps,
	}, nil
}

func (s *AdminService) ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, validationErr("invalid role %q", filter.Role)
	}
	limit, err := pageLimit(filter.Skip, filter.Limit)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit

	out, err := s.repos.Users(s.tx.Conn()).List(ctx, filter)
	return out, wrapErr("list users", err)
}

func (s *AdminService) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repos.Users(s.tx.Conn()).GetByID(ctx, id)
	return u, wrapErr("get user", err)
}

// UpdateUserStatus activates or deactivates targetID.
func (s *AdminService) UpdateUserStatus(ctx context.Context, actor *models.User, targetID string, active bool) (*models.User, error) {
	return s.modifyUser(ctx, actor, targetID, "status", func(u *models.User) error {
		u.IsActive = active
		return nil
	})
}

func (s *AdminService) UpdateUserRole(ctx context.Context, actor *models.User, targetID string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, validationErr("invalid role %q", role)
	}
	return s.modifyUser(ctx, actor, targetID, "role", func(u *models.User) error {
		u.Role = role
		return nil
	})
}

// CreateAdmin bootstraps an admin account. Admins cannot sign up through
// the public flow, so this is the only way the first one comes to exist.
func (s *AdminService) CreateAdmin(ctx context.Context, email, fullName, password, location string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, validationErr("a valid email is required")
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, validationErr("full name is required")
	}
	if len(password) < 8 {
		return nil, validationErr("password must be at least 8 characters")
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *models.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)
		if _, err := repo.GetByEmail(ctx, email); err == nil {
			return fmt.Errorf("email already registered: %w", common.ErrorConflict)
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		now := s.clock.Now()
		var err error
		user, err = repo.Create(ctx, &models.User{
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			FullName:     strings.TrimSpace(fullName),
			Location:     strings.TrimSpace(location),
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return err
	})
	if err != nil {
		return nil, wrapErr("create admin", err)
	}

	s.logger.Info(ctx, "admin created", "user_id", user.ID)
	return user, nil
}

// DeleteUser deactivates targetID. Accounts are never removed.
func (s *AdminService) DeleteUser(ctx context.Context, actor *models.User, targetID string) error {
	_, err := s.modifyUser(ctx, actor, targetID, "account", func(u *models.User) error {
		u.IsActive = false
		return nil
	})
	return err
}

func (s *AdminService) modifyUser(ctx context.Context, actor *models.User, targetID, what string, apply func(*models.User) error) (*models.User, error) {
	if actor == nil {
		return nil, common.ErrorUnauthenticated
	}
	if actor.ID == targetID {
		return nil, fmt.Errorf("%w: cannot modify your own %s", common.ErrorForbidden, what)
	}

	var out *models.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)
		u, err := repo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if err := apply(u); err != nil {
			return err
		}
		u.UpdatedAt = s.clock.Now()
		if err := repo.Update(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, wrapErr("update user "+what, err)
	}

	s.logger.Info(ctx, "user modified", "actor", actor.ID, "target", targetID, "field", what)
	return out, nil
}

func (s *AdminService) ListTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	limit, err := pageLimit(filter.Skip, filter.Limit)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit

	out, err := s.repos.Tasks(s.tx.Conn()).List(ctx, filter)
	return out, wrapErr("list tasks", err)
}

func (s *AdminService) UpdateTaskStatus(ctx context.Context, id string, active bool) (*models.Task, error) {
	var out *models.Task
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Tasks(tx)
		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		t.IsActive = active
		t.UpdatedAt = s.clock.Now()
		if err := repo.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, wrapErr("update task status", err)
	}
	return out, nil
}

// DeleteTask hides a task from listings. The row and its applications stay.
func (s *AdminService) DeleteTask(ctx context.Context, id string) error {
	_, err := s.UpdateTaskStatus(ctx, id, false)
	return err
}

func (s *AdminService) ListApplications(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationErr("invalid status %q", filter.Status)
	}
	limit, err := pageLimit(filter.Skip, filter.Limit)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit

	out, err := s.repos.Applications(s.tx.Conn()).List(ctx, filter)
	return out, wrapErr("list applications", err)
}

func (s *AdminService) UpdateApplicationStatus(ctx context.Context, id string, status models.ApplicationStatus) (*models.Application, error) {
	return updateApplicationStatus(ctx, s.repos, s.tx, id, status, nil)
}

// SystemHealth counts rows across the main tables. A failing store is
// reported as disconnected rather than as an error.
func (s *AdminService) SystemHealth(ctx context.Context) *SystemHealth {
	h := &SystemHealth{Uptime: s.clock.Now().Sub(s.started)}

	stats, err := s.DashboardStats(ctx)
	if err != nil {
		s.logger.Warn(ctx, "health check failed", "error", err)
		return h
	}

	h.DatabaseConnected = true
	h.TotalRecords = stats.TotalUsers + stats.TotalTasks + stats.TotalApplications
	return h
}
