// Package ratelimit throttles OTP requests per key with a fixed budget per
// window.
package ratelimit

import (
	"context"
	"errors"
)

// ErrUnavailable means the limiter could not reach its backing store.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Limiter records one hit for key. It returns common.ErrRateLimited once the
// key has exceeded its budget for the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// Unlimited never throttles.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) error { return nil }
