package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dovol/internal/timex"
)

// TaskInput carries the editable fields of a task.
type TaskInput struct {
	Title          string
	Description    string
	Location       string
	SkillsRequired []string
}

func (in TaskInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return validationErr("title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return validationErr("description is required")
	}
	return nil
}

// TaskService manages volunteer tasks posted by NGOs.
type TaskService struct {
	repos  repomanager.RepositoryManager
	tx     dbx.Transactor
	clock  timex.Clock
	logger logging.Logger
}

func NewTaskService(m repomanager.RepositoryManager, tx dbx.Transactor, clock timex.Clock, l logging.Logger) *TaskService {
	return &TaskService{repos: m, tx: tx, clock: clock, logger: l.With("module", "task_service")}
}

func (s *TaskService) Create(ctx context.Context, actor *models.User, in TaskInput) (*models.Task, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t, err := s.repos.Tasks(s.tx.Conn()).Create(ctx, &models.Task{
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Location:       strings.TrimSpace(in.Location),
		SkillsRequired: cleanNames(in.SkillsRequired),
		PostedByID:     actor.ID,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, wrapErr("create task", err)
	}

	s.logger.Info(ctx, "task created", "task_id", t.ID, "posted_by", actor.ID)
	return t, nil
}

// List returns active tasks.
func (s *TaskService) List(ctx context.Context, search string, skip, limit int) ([]*models.Task, error) {
	limit, err := pageLimit(skip, limit)
	if err != nil {
		return nil, err
	}
	active := true
	out, err := s.repos.Tasks(s.tx.Conn()).List(ctx, models.TaskFilter{
		Active: &active,
		Search: strings.TrimSpace(search),
		Skip:   skip,
		Limit:  limit,
	})
	return out, wrapErr("list tasks", err)
}

func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.repos.Tasks(s.tx.Conn()).GetByID(ctx, id)
	return t, wrapErr("get task", err)
}

// Update replaces the task's fields. Only the posting NGO or an admin may.
func (s *TaskService) Update(ctx context.Context, actor *models.User, id string, in TaskInput) (*models.Task, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.modify(ctx, actor, id, func(t *models.Task) {
		t.Title = strings.TrimSpace(in.Title)
		t.Description = strings.TrimSpace(in.Description)
		t.Location = strings.TrimSpace(in.Location)
		t.SkillsRequired = cleanNames(in.SkillsRequired)
	})
}

// Delete deactivates the task.
func (s *TaskService) Delete(ctx context.Context, actor *models.User, id string) error {
	_, err := s.modify(ctx, actor, id, func(t *models.Task) { t.IsActive = false })
	return err
}

func (s *TaskService) modify(ctx context.Context, actor *models.User, id string, apply func(*models.Task)) (*models.Task, error) {
	var out *models.Task
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Tasks(tx)
		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !canManageTask(actor, t) {
			return fmt.Errorf("%w: not the owner of this task", common.ErrorForbidden)
		}
		apply(t)
		t.UpdatedAt = s.clock.Now()
		if err := repo.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, wrapErr("modify task", err)
	}
	return out, nil
}

func canManageTask(actor *models.User, t *models.Task) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleNGO:
		return t.PostedByID == actor.ID
	case models.RoleVolunteer:
		return false
	default:
		return false
	}
}

// cleanNames trims names and drops blanks and duplicates, keeping order.
func cleanNames(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
