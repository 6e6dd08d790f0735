package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/google/uuid"
)

type taskRepo struct {
	s *Store
	h handle
}

func (r *taskRepo) Create(_ context.Context, task *models.Task) (*models.Task, error) {
	err := r.s.write(r.h, func(st *state) error {
		task.ID = uuid.NewString()
		st.tasks[task.ID] = cloneTask(*task)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepo) GetByID(_ context.Context, id string) (*models.Task, error) {
	var out *models.Task
	err := r.s.read(r.h, func(st *state) error {
		t, ok := st.tasks[id]
		if !ok {
			return common.ErrorNotFound
		}
		c := cloneTask(t)
		out = &c
		return nil
	})
	return out, err
}

func (r *taskRepo) Update(_ context.Context, task *models.Task) error {
	return r.s.write(r.h, func(st *state) error {
		cur, ok := st.tasks[task.ID]
		if !ok {
			return common.ErrorNotFound
		}
		cur.Title = task.Title
		cur.Description = task.Description
		cur.Location = task.Location
		cur.SkillsRequired = append([]string(nil), task.SkillsRequired...)
		cur.IsActive = task.IsActive
		cur.UpdatedAt = task.UpdatedAt
		st.tasks[task.ID] = cur
		return nil
	})
}

func (r *taskRepo) List(_ context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	var out []*models.Task
	err := r.s.read(r.h, func(st *state) error {
		search := strings.ToLower(filter.Search)
		for _, t := range st.tasks {
			if filter.Active != nil && t.IsActive != *filter.Active {
				continue
			}
			if filter.PostedBy != "" && t.PostedByID != filter.PostedBy {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(t.Title), search) &&
				!strings.Contains(strings.ToLower(t.Description), search) {
				continue
			}
			c := cloneTask(t)
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter.Skip, filter.Limit), err
}

func (r *taskRepo) Counts(_ context.Context) (int, int, error) {
	var total, active int
	err := r.s.read(r.h, func(st *state) error {
		for _, t := range st.tasks {
			total++
			if t.IsActive {
				active++
			}
		}
		return nil
	})
	return total, active, err
}

func cloneTask(t models.Task) models.Task {
	t.SkillsRequired = append([]string(nil), t.SkillsRequired...)
	return t
}
