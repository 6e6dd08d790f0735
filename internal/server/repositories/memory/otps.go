package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/otps"
	"github.com/google/uuid"
)

type otpRepo struct {
	s *Store
	h handle
}

func (r *otpRepo) Create(_ context.Context, otp *models.OTP) (*models.OTP, error) {
	err := r.s.write(r.h, func(st *state) error {
		otp.ID = uuid.NewString()
		st.otps = append(st.otps, *otp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return otp, nil
}

// FindNewest scans from the most recent insert. lock is implied: callers in
// a transaction already hold the store's transaction lock.
func (r *otpRepo) FindNewest(_ context.Context, lookup models.OTPLookup, _ bool) (*models.OTP, error) {
	var out *models.OTP
	err := r.s.read(r.h, func(st *state) error {
		var best *models.OTP
		for i := len(st.otps) - 1; i >= 0; i-- {
			o := st.otps[i]
			if o.Email != lookup.Email || o.Code != lookup.Code || o.Purpose != lookup.Purpose {
				continue
			}
			if lookup.OnlyUnused && o.Used {
				continue
			}
			if lookup.OnlyVerified && !o.Verified {
				continue
			}
			if best == nil || o.CreatedAt.After(best.CreatedAt) {
				best = &o
			}
		}
		if best == nil {
			return common.ErrorNotFound
		}
		out = cloneOTP(*best)
		return nil
	})
	return out, err
}

func (r *otpRepo) MarkVerified(_ context.Context, id string) error {
	return r.s.write(r.h, func(st *state) error {
		for i := range st.otps {
			if st.otps[i].ID == id && !st.otps[i].Used {
				st.otps[i].Verified = true
				return nil
			}
		}
		return common.ErrorNotFound
	})
}

func (r *otpRepo) MarkUsed(_ context.Context, id string, at time.Time) (bool, error) {
	won := false
	err := r.s.write(r.h, func(st *state) error {
		for i := range st.otps {
			if st.otps[i].ID == id && !st.otps[i].Used {
				usedAt := at
				st.otps[i].Used = true
				st.otps[i].UsedAt = &usedAt
				won = true
				return nil
			}
		}
		return nil
	})
	return won, err
}

func (r *otpRepo) Delete(_ context.Context, id string) error {
	return r.s.write(r.h, func(st *state) error {
		for i := range st.otps {
			if st.otps[i].ID == id {
				st.otps = append(st.otps[:i:i], st.otps[i+1:]...)
				return nil
			}
		}
		return common.ErrorNotFound
	})
}

func (r *otpRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.s.write(r.h, func(st *state) error {
		kept := st.otps[:0:0]
		for _, o := range st.otps {
			if o.ExpiresAt.Before(now) {
				n++
				continue
			}
			kept = append(kept, o)
		}
		st.otps = kept
		return nil
	})
	return n, err
}

func (r *otpRepo) DeleteAll(_ context.Context) (int64, error) {
	var n int64
	err := r.s.write(r.h, func(st *state) error {
		n = int64(len(st.otps))
		st.otps = nil
		return nil
	})
	return n, err
}

func (r *otpRepo) List(_ context.Context, filter otps.ListFilter) ([]*models.OTP, error) {
	var out []*models.OTP
	err := r.s.read(r.h, func(st *state) error {
		for i := len(st.otps) - 1; i >= 0; i-- {
			o := st.otps[i]
			if filter.Email != "" && o.Email != filter.Email {
				continue
			}
			if filter.ActiveAt != nil && (o.Used || o.ExpiresAt.Before(*filter.ActiveAt)) {
				continue
			}
			out = append(out, cloneOTP(o))
		}
		return nil
	})
	return page(out, 0, filter.Limit), err
}

func (r *otpRepo) Stats(_ context.Context, now time.Time) (*models.OTPStats, error) {
	s := &models.OTPStats{}
	err := r.s.read(r.h, func(st *state) error {
		for _, o := range st.otps {
			s.Total++
			if o.Used {
				s.Used++
			}
			if o.Verified {
				s.Verified++
			}
			if o.ExpiresAt.Before(now) {
				s.Expired++
			}
			if !o.Used && !o.ExpiresAt.Before(now) {
				s.Active++
			}
		}
		s.Unused = s.Total - s.Used
		return nil
	})
	return s, err
}

func cloneOTP(o models.OTP) *models.OTP {
	if o.UsedAt != nil {
		t := *o.UsedAt
		o.UsedAt = &t
	}
	return &o
}
