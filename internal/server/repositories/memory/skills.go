package memory

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/google/uuid"
)

type skillRepo struct {
	s *Store
	h handle
}

func (r *skillRepo) Ensure(_ context.Context, name string) (*models.Skill, error) {
	var out models.Skill
	err := r.s.write(r.h, func(st *state) error {
		for _, sk := range st.skills {
			if sk.Name == name {
				out = sk
				return nil
			}
		}
		out = models.Skill{ID: uuid.NewString(), Name: name}
		st.skills[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *skillRepo) ListForUser(_ context.Context, userID string) ([]*models.Skill, error) {
	var out []*models.Skill
	err := r.s.read(r.h, func(st *state) error {
		for id := range st.links[userID] {
			sk := st.skills[id]
			out = append(out, &sk)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *skillRepo) Link(_ context.Context, userID, skillID string) error {
	return r.s.write(r.h, func(st *state) error {
		if _, ok := st.skills[skillID]; !ok {
			return common.ErrorNotFound
		}
		set, ok := st.links[userID]
		if !ok {
			set = map[string]struct{}{}
			st.links[userID] = set
		}
		set[skillID] = struct{}{}
		return nil
	})
}

func (r *skillRepo) Unlink(_ context.Context, userID, skillID string) error {
	return r.s.write(r.h, func(st *state) error {
		if _, ok := st.links[userID][skillID]; !ok {
			return common.ErrorNotFound
		}
		delete(st.links[userID], skillID)
		return nil
	})
}

func (r *skillRepo) UnlinkAll(_ context.Context, userID string) error {
	return r.s.write(r.h, func(st *state) error {
		delete(st.links, userID)
		return nil
	})
}
