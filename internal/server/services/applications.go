package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dovol/internal/timex"
)

// ApplicationService handles volunteers applying to tasks and NGOs
// reviewing those applications.
type ApplicationService struct {
	repos  repomanager.RepositoryManager
	tx     dbx.Transactor
	clock  timex.Clock
	logger logging.Logger
}

func NewApplicationService(m repomanager.RepositoryManager, tx dbx.Transactor, clock timex.Clock, l logging.Logger) *ApplicationService {
	return &ApplicationService{repos: m, tx: tx, clock: clock, logger: l.With("module", "application_service")}
}

// Apply records a pending application from volunteer to taskID. The task
// must exist and be active; a second application to the same task is a
// conflict.
func (s *ApplicationService) Apply(ctx context.Context, volunteer *models.User, taskID string) (*models.Application, error) {
	var out *models.Application
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		t, err := s.repos.Tasks(tx).GetByID(ctx, taskID)
		if err != nil {
			return fmt.Errorf("task: %w", err)
		}
		if !t.IsActive {
			return fmt.Errorf("task: %w", common.ErrorNotFound)
		}

		out, err = s.repos.Applications(tx).Create(ctx, &models.Application{
			TaskID:      taskID,
			VolunteerID: volunteer.ID,
			Status:      models.ApplicationPending,
			AppliedAt:   s.clock.Now(),
		})
		if errors.Is(err, common.ErrorConflict) {
			return fmt.Errorf("already applied for this task: %w", err)
		}
		return err
	})
	if err != nil {
		return nil, wrapErr("apply", err)
	}

	s.logger.Info(ctx, "application created", "application_id", out.ID, "task_id", taskID, "volunteer_id", volunteer.ID)
	return out, nil
}

// Mine lists the volunteer's own applications.
func (s *ApplicationService) Mine(ctx context.Context, volunteer *models.User) ([]*models.Application, error) {
	out, err := s.repos.Applications(s.tx.Conn()).List(ctx, models.ApplicationFilter{VolunteerID: volunteer.ID})
	return out, wrapErr("list applications", err)
}

// ForTask lists applications to a task posted by ngo.
func (s *ApplicationService) ForTask(ctx context.Context, ngo *models.User, taskID string) ([]*models.Application, error) {
	conn := s.tx.Conn()
	t, err := s.repos.Tasks(conn).GetByID(ctx, taskID)
	if err != nil {
		return nil, wrapErr("get task", err)
	}
	if t.PostedByID != ngo.ID {
		return nil, fmt.Errorf("%w: not the owner of this task", common.ErrorForbidden)
	}

	out, err := s.repos.Applications(conn).List(ctx, models.ApplicationFilter{TaskID: taskID})
	return out, wrapErr("list applications", err)
}

// UpdateStatus lets the NGO owning the task accept or reject an application.
func (s *ApplicationService) UpdateStatus(ctx context.Context, ngo *models.User, id string, status models.ApplicationStatus) (*models.Application, error) {
	return updateApplicationStatus(ctx, s.repos, s.tx, id, status, func(ctx context.Context, tx dbx.DBTX, app *models.Application) error {
		return s.requireTaskOwner(ctx, tx, ngo, app)
	})
}

// Delete withdraws an application. The applying volunteer or the NGO owning
// the task may do so.
func (s *ApplicationService) Delete(ctx context.Context, actor *models.User, id string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Applications(tx)
		app, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		switch actor.Role {
		case models.RoleVolunteer:
			if app.VolunteerID != actor.ID {
				return fmt.Errorf("%w: not your application", common.ErrorForbidden)
			}
		case models.RoleNGO:
			if err := s.requireTaskOwner(ctx, tx, actor, app); err != nil {
				return err
			}
		case models.RoleAdmin:
		default:
			return common.ErrorForbidden
		}

		return repo.Delete(ctx, id)
	})
	return wrapErr("delete application", err)
}

func (s *ApplicationService) requireTaskOwner(ctx context.Context, tx dbx.DBTX, ngo *models.User, app *models.Application) error {
	t, err := s.repos.Tasks(tx).GetByID(ctx, app.TaskID)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: task no longer exists", common.ErrorForbidden)
	}
	if err != nil {
		return err
	}
	if t.PostedByID != ngo.ID {
		return fmt.Errorf("%w: not the owner of this task", common.ErrorForbidden)
	}
	return nil
}

// updateApplicationStatus is shared by the NGO and admin paths; check, when
// set, runs on the loaded application before the change.
func updateApplicationStatus(ctx context.Context, repos repomanager.RepositoryManager, tx dbx.Transactor, id string,
	status models.ApplicationStatus, check func(context.Context, dbx.DBTX, *models.Application) error) (*models.Application, error) {
	if !status.Valid() {
		return nil, validationErr("invalid status %q", status)
	}

	var out *models.Application
	err := tx.WithinTx(ctx, func(ctx context.Context, db dbx.DBTX) error {
		repo := repos.Applications(db)
		app, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(ctx, db, app); err != nil {
				return err
			}
		}
		if err := repo.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		app.Status = status
		out = app
		return nil
	})
	if err != nil {
		return nil, wrapErr("update application status", err)
	}
	return out, nil
}
