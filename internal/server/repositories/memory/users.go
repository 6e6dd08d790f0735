package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/users"
	"github.com/google/uuid"
)

type userRepo struct {
	s *Store
	h handle
}

func (r *userRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	err := r.s.write(r.h, func(st *state) error {
		email := strings.ToLower(user.Email)
		for _, u := range st.users {
			if u.Email == email {
				return common.ErrorConflict
			}
		}
		user.ID = uuid.NewString()
		user.Email = email
		st.users[user.ID] = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.s.read(r.h, func(st *state) error {
		email = strings.ToLower(email)
		for _, u := range st.users {
			if u.Email == email {
				u := u
				out = &u
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return out, err
}

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	var out *models.User
	err := r.s.read(r.h, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) Update(_ context.Context, user *models.User) error {
	return r.s.write(r.h, func(st *state) error {
		cur, ok := st.users[user.ID]
		if !ok {
			return common.ErrorNotFound
		}
		cur.PasswordHash = user.PasswordHash
		cur.Role = user.Role
		cur.FullName = user.FullName
		cur.Location = user.Location
		cur.IsActive = user.IsActive
		cur.UpdatedAt = user.UpdatedAt
		st.users[user.ID] = cur
		return nil
	})
}

func (r *userRepo) List(_ context.Context, filter models.UserFilter) ([]*models.User, error) {
	var out []*models.User
	err := r.s.read(r.h, func(st *state) error {
		search := strings.ToLower(filter.Search)
		for _, u := range st.users {
			if filter.Role != "" && u.Role != filter.Role {
				continue
			}
			if filter.Active != nil && u.IsActive != *filter.Active {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(u.FullName), search) && !strings.Contains(u.Email, search) {
				continue
			}
			u := u
			out = append(out, &u)
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

func (r *userRepo) Counts(_ context.Context) (*users.Counts, error) {
	c := &users.Counts{ByRole: map[models.Role]int{}}
	err := r.s.read(r.h, func(st *state) error {
		for _, u := range st.users {
			c.Total++
			c.ByRole[u.Role]++
			if u.IsActive {
				c.Active++
			}
		}
		return nil
	})
	return c, err
}
