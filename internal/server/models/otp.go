package models

import "time"

// Purpose scopes a one-time code to a single flow.
type Purpose string

const (
	PurposeSignup        Purpose = "signup"
	PurposePasswordReset Purpose = "password_reset"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignup, PurposePasswordReset:
		return true
	default:
		return false
	}
}

// OTP is a stored one-time code. Records move unused -> verified -> used
// (reset) or unused -> used (signup) and never back.
type OTP struct {
	ID        string
	Email     string
	Code      string
	Purpose   Purpose
	Verified  bool
	Used      bool
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// Expired reports whether the code is past its expiry at now.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// OTPLookup selects which records a newest-match lookup considers.
type OTPLookup struct {
	Email        string
	Code         string
	Purpose      Purpose
	OnlyUnused   bool
	OnlyVerified bool
}

// OTPStats summarises the OTP table at a point in time.
type OTPStats struct {
	Total    int
	Used     int
	Unused   int
	Verified int
	Expired  int
	Active   int
}
