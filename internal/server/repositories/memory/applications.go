package memory

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/google/uuid"
)

type applicationRepo struct {
	s *Store
	h handle
}

func (r *applicationRepo) Create(_ context.Context, app *models.Application) (*models.Application, error) {
	err := r.s.write(r.h, func(st *state) error {
		for _, a := range st.apps {
			if a.TaskID == app.TaskID && a.VolunteerID == app.VolunteerID {
				return common.ErrorConflict
			}
		}
		app.ID = uuid.NewString()
		st.apps[app.ID] = *app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (r *applicationRepo) GetByID(_ context.Context, id string) (*models.Application, error) {
	var out *models.Application
	err := r.s.read(r.h, func(st *state) error {
		a, ok := st.apps[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *applicationRepo) UpdateStatus(_ context.Context, id string, status models.ApplicationStatus) error {
	return r.s.write(r.h, func(st *state) error {
		a, ok := st.apps[id]
		if !ok {
			return common.ErrorNotFound
		}
		a.Status = status
		st.apps[id] = a
		return nil
	})
}

func (r *applicationRepo) Delete(_ context.Context, id string) error {
	return r.s.write(r.h, func(st *state) error {
		if _, ok := st.apps[id]; !ok {
			return common.ErrorNotFound
		}
		delete(st.apps, id)
		return nil
	})
}

func (r *applicationRepo) List(_ context.Context, filter models.ApplicationFilter) ([]*models.Application, error) {
	var out []*models.Application
	err := r.s.read(r.h, func(st *state) error {
		for _, a := range st.apps {
			if filter.TaskID != "" && a.TaskID != filter.TaskID {
				continue
			}
			if filter.VolunteerID != "" && a.VolunteerID != filter.VolunteerID {
				continue
			}
			if filter.Status != "" && a.Status != filter.Status {
				continue
			}
			a := a
			out = append(out, &a)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppliedAt.Equal(out[j].AppliedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AppliedAt.After(out[j].AppliedAt)
	})
	return page(out, filter.Skip, filter.Limit), err
}

func (r *applicationRepo) Counts(_ context.Context) (int, int, error) {
	var total, pending int
	err := r.s.read(r.h, func(st *state) error {
		for _, a := range st.apps {
			total++
			if a.Status == models.ApplicationPending {
				pending++
			}
		}
		return nil
	})
	return total, pending, err
}
