package otps

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dovol/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, otp *models.OTP) (*models.OTP, error)
	// FindNewest returns the most recently created record matching lookup.
	// With lock set the row stays locked until the surrounding transaction
	// ends.
	FindNewest(ctx context.Context, lookup models.OTPLookup, lock bool) (*models.OTP, error)
	MarkVerified(ctx context.Context, id string) error
	// MarkUsed flips used=false to used=true. It reports false when the row
	// was already used, which means a concurrent consumer won.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]*models.OTP, error)
	Stats(ctx context.Context, now time.Time) (*models.OTPStats, error)
}

// ListFilter narrows housekeeping listings. Zero values mean "any".
type ListFilter struct {
	Email string
	// ActiveAt keeps only unused records not yet expired at that instant.
	ActiveAt *time.Time
	Limit    int
}
